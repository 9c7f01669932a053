package vkk

import vk "github.com/vulkan-go/vulkan"

// ImageRenderer renders synchronously into a private offscreen color
// image, then blits (and mip-generates) the result into a caller-owned
// destination Image, waiting on its own fence before returning - the
// "render to texture" specialization, as opposed to DefaultRenderer's
// continuously-pipelined presentation.
type ImageRenderer struct {
	base baseRenderer

	width, height uint32
	format        ImageFormat

	src   *attachmentImage
	depth *attachmentImage

	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer

	cmdPool *commandPool
	cmd     vk.CommandBuffer
	fence   vk.Fence

	dst *Image
}

// NewImageRenderer builds a private src+depth attachment pair, render
// pass, and framebuffer sized for width x height, in format. The caller
// supplies a destination Image of the same dimensions/format to each
// Begin call.
func (e *Engine) NewImageRenderer(width, height uint32, format ImageFormat) (ir *ImageRenderer, err error) {
	defer checkErr(&err)

	ir = &ImageRenderer{
		base:   baseRenderer{engine: e, rtype: RendererImage},
		width:  width,
		height: height,
		format: format,
	}

	colorFmt := imageFormatMap[format]
	src, serr := e.newAttachmentImage(width, height, colorFmt,
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageUsageColorAttachmentBit|vk.ImageUsageTransferSrcBit, vk.SampleCount1Bit)
	orPanic(serr)
	ir.src = src

	depth, derr := e.newAttachmentImage(width, height, vk.FormatD32Sfloat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), vk.ImageUsageDepthStencilAttachmentBit, vk.SampleCount1Bit)
	orPanic(derr)
	ir.depth = depth

	orPanic(ir.buildRenderPass(colorFmt))

	var fb vk.Framebuffer
	orPanic(newError(vk.CreateFramebuffer(e.device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      ir.renderPass,
		AttachmentCount: 2,
		PAttachments:    []vk.ImageView{src.view, depth.view},
		Width:           width,
		Height:          height,
		Layers:          1,
	}, nil, &fb)))
	ir.framebuffer = fb

	pool, perr := newCommandPool(e)
	orPanic(perr)
	ir.cmdPool = pool
	bufs, berr := pool.alloc(vk.CommandBufferLevelPrimary, 1)
	orPanic(berr)
	ir.cmd = bufs[0]

	var fence vk.Fence
	orPanic(newError(vk.CreateFence(e.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence)))
	ir.fence = fence

	return ir, nil
}

func (ir *ImageRenderer) buildRenderPass(colorFmt vk.Format) error {
	e := ir.base.engine
	attachments := []vk.AttachmentDescription{
		{
			Format: colorFmt, Samples: vk.SampleCount1Bit,
			LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore,
			StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutTransferSrcOptimal,
		},
		{
			Format: vk.FormatD32Sfloat, Samples: vk.SampleCount1Bit,
			LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpDontCare,
			StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	colorRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}
	deps := []vk.SubpassDependency{
		{
			SrcSubpass: vk.MaxUint32, DstSubpass: 0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		},
	}
	var rp vk.RenderPass
	if ret := vk.CreateRenderPass(e.device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil, &rp); isError(ret) {
		return newError(ret)
	}
	ir.renderPass = rp
	return nil
}

// Begin accepts only ModeDraw and starts a render with no destination
// Image, so End performs no blit; it waits for the previous render into
// this renderer to finish and opens the render pass. BeginImage is the
// entry point that takes and validates a destination.
func (ir *ImageRenderer) Begin(mode RendererMode, clearColor [4]float32) bool {
	if mode != ModeDraw {
		warnf("image renderer only supports ModeDraw")
		return false
	}
	return ir.begin(nil, clearColor)
}

// BeginImage is the image-renderer-specific entry point real callers use
// (the Renderer interface's Begin cannot carry the destination Image
// parameter); dst must match this renderer's width/height/format.
func (ir *ImageRenderer) BeginImage(dst *Image, clearColor [4]float32) bool {
	return ir.begin(dst, clearColor)
}

func (ir *ImageRenderer) begin(dst *Image, clearColor [4]float32) bool {
	e := ir.base.engine
	if dst != nil {
		if dst.width != ir.width || dst.height != ir.height || dst.format != ir.format {
			warnf("image renderer begin: dst dimensions/format mismatch")
			return false
		}
	}
	ir.dst = dst

	vk.WaitForFences(e.device, 1, []vk.Fence{ir.fence}, vk.True, vk.MaxUint64)
	vk.ResetFences(e.device, 1, []vk.Fence{ir.fence})

	ir.cmdPool.reset()
	vk.BeginCommandBuffer(ir.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})

	clear := []vk.ClearValue{
		vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]}),
		vk.NewClearDepthStencil(1, 0),
	}
	vk.CmdBeginRenderPass(ir.cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      ir.renderPass,
		Framebuffer:     ir.framebuffer,
		RenderArea:      vk.Rect2D{Extent: vk.Extent2D{Width: ir.width, Height: ir.height}},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)

	ir.base.mode = ModeDraw
	ir.base.state = stateRecording
	return true
}

// End ends the pass, blits src into dst (generating dst's mip chain if
// it has one), transitions dst to SHADER_READ_ONLY_OPTIMAL, submits on
// the background queue and blocks until it retires.
func (ir *ImageRenderer) End() {
	e := ir.base.engine
	vk.CmdEndRenderPass(ir.cmd)

	if ir.dst != nil {
		aspect := aspectForFormat(ir.dst.format)
		transitionImageLayout(ir.cmd, ir.dst.handle, 0, ir.dst.mipLevels, aspect,
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, LayerCount: 1},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: int32(ir.width), Y: int32(ir.height), Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: int32(ir.dst.width), Y: int32(ir.dst.height), Z: 1}
		vk.CmdBlitImage(ir.cmd, ir.src.handle, vk.ImageLayoutTransferSrcOptimal,
			ir.dst.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		if ir.dst.mipLevels > 1 {
			generateMips(ir.cmd, ir.dst)
		} else {
			transitionImageLayout(ir.cmd, ir.dst.handle, 0, 1, aspect,
				vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
			ir.dst.layoutArr[0] = vk.ImageLayoutShaderReadOnlyOptimal
		}
	}

	vk.EndCommandBuffer(ir.cmd)

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{ir.cmd},
	}
	if ret := vk.QueueSubmit(e.Background(), 1, []vk.SubmitInfo{submit}, ir.fence); isError(ret) {
		warnf("image renderer submit failed: %v", newError(ret))
		ir.base.state = stateIdle
		return
	}
	ir.base.state = stateSubmitted
	vk.WaitForFences(e.device, 1, []vk.Fence{ir.fence}, vk.True, vk.MaxUint64)
	ir.base.state = stateIdle
	e.destroyQ.bump()
}

func (ir *ImageRenderer) Type() RendererType              { return ir.base.rtype }
func (ir *ImageRenderer) RenderPass() vk.RenderPass       { return ir.renderPass }
func (ir *ImageRenderer) CommandBuffer() vk.CommandBuffer { return ir.cmd }
func (ir *ImageRenderer) SurfaceSize() (uint32, uint32)   { return ir.width, ir.height }

func (ir *ImageRenderer) BindGraphicsPipeline(gp *GraphicsPipeline) {
	bindGraphicsPipeline(&ir.base, ir.cmd, gp)
}

func (ir *ImageRenderer) BindUniformSet(set uint32, us *UniformSet) {
	bindUniformSet(&ir.base, ir.cmd, set, us)
}

func (ir *ImageRenderer) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(ir.cmd, vertexCount, instanceCount, 0, 0)
}

func (ir *ImageRenderer) destroy() {
	e := ir.base.engine
	vk.WaitForFences(e.device, 1, []vk.Fence{ir.fence}, vk.True, vk.MaxUint64)
	vk.DestroyFence(e.device, ir.fence, nil)
	ir.cmdPool.destroy()
	vk.DestroyFramebuffer(e.device, ir.framebuffer, nil)
	vk.DestroyRenderPass(e.device, ir.renderPass, nil)
	ir.depth.destroy()
	ir.src.destroy()
}

// DeleteImageRenderer defers ir's destruction.
func (e *Engine) DeleteImageRenderer(ir *ImageRenderer) {
	if ir == nil {
		return
	}
	e.destroyQ.defer_(ir, e.destroyExpiry())
}
