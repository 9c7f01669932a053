package vkk

import vk "github.com/vulkan-go/vulkan"

// stagePipelineFlags maps a Stage to the pipeline stage(s) a
// shader-read-only transition should synchronize against - vertex and
// fragment stages are ORed together for StageVertexFragment since either
// shader might be the one sampling the image.
var stagePipelineFlags = [...]vk.PipelineStageFlagBits{
	StageDepth:          0,
	StageVertex:         vk.PipelineStageVertexShaderBit,
	StageFragment:       vk.PipelineStageFragmentShaderBit,
	StageVertexFragment: vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit,
	StageCompute:        vk.PipelineStageComputeShaderBit,
}

// transitionImageLayout inserts a vkCmdPipelineBarrier moving
// [baseMipLevel, baseMipLevel+levelCount) of image from oldLayout to
// newLayout, deriving access masks and pipeline stages from a fixed
// table of layouts this library actually uses. A no-op when the layouts
// already match.
func transitionImageLayout(cb vk.CommandBuffer, image vk.Image, baseMipLevel, levelCount uint32, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout) {
	transitionImageLayoutStaged(cb, image, baseMipLevel, levelCount, aspect, oldLayout, newLayout, StageFragment)
}

// transitionImageLayoutStaged is transitionImageLayout generalized with
// an explicit consuming Stage. Its only caller in this package is
// transitionImageLayout, which passes StageFragment.
func transitionImageLayoutStaged(cb vk.CommandBuffer, image vk.Image, baseMipLevel, levelCount uint32, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout, stage Stage) {
	if oldLayout == newLayout {
		return
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:   aspect,
			BaseMipLevel: baseMipLevel,
			LevelCount:   levelCount,
			LayerCount:   1,
		},
	}

	srcStage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	switch oldLayout {
	case vk.ImageLayoutUndefined:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		barrier.SrcAccessMask = 0
	case vk.ImageLayoutTransferSrcOptimal:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutTransferDstOptimal:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		srcStage = vk.PipelineStageFlags(stagePipelineFlags[stage])
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	default:
		warnf("unhandled oldLayout=%d in layout transition", oldLayout)
		return
	}

	dstStage := vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	switch newLayout {
	case vk.ImageLayoutTransferDstOptimal:
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	case vk.ImageLayoutTransferSrcOptimal:
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		dstStage = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		dstStage = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		dstStage = vk.PipelineStageFlags(stagePipelineFlags[stage])
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	default:
		warnf("unhandled newLayout=%d in layout transition", newLayout)
		return
	}

	vk.CmdPipelineBarrier(cb, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// hazardBarrier inserts the barrier a compute dispatch needs before
// reading/writing a resource another dispatch already touched, tuned to
// the producer/consumer Hazard between them: RAW and Any need a real
// SHADER_WRITE -> SHADER_READ memory barrier, WAR only needs execution
// ordering (the write can't start until the prior read is done, but
// there is no data to flush/invalidate), and None needs nothing at all.
func hazardBarrier(cb vk.CommandBuffer, hazard Hazard, buffer vk.Buffer, size vk.DeviceSize) {
	stage := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)

	if hazard == HazardNone {
		return
	}
	if hazard == HazardWAR {
		vk.CmdPipelineBarrier(cb, stage, stage, 0, 0, nil, 0, nil, 0, nil)
		return
	}

	var srcAccess, dstAccess vk.AccessFlagBits
	switch hazard {
	case HazardRAW, HazardAny:
		srcAccess, dstAccess = vk.AccessShaderWriteBit, vk.AccessShaderReadBit
	}

	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Size:                size,
	}
	vk.CmdPipelineBarrier(cb, stage, stage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}
