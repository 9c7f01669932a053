package vkk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// xferBuffer is a host-visible staging buffer sized to fit one upload or
// download, cached by size so repeated transfers of the same size (a
// very common case - uploading many same-sized textures at load time)
// don't pay for a fresh vkCreateBuffer/vkAllocateMemory each time.
type xferBuffer struct {
	handle vk.Buffer
	mem    *memory
	size   vk.DeviceSize
}

// transferManager owns a one-shot command pool/fence pair and a small
// cache of staging buffers, used for synchronous CPU<->GPU image and
// buffer transfers (initial upload, mip-chain generation, readback).
type transferManager struct {
	engine *Engine
	pool   *commandPool
	fences *fenceManager

	mu      sync.Mutex
	staging map[vk.DeviceSize][]*xferBuffer
}

func newTransferManager(e *Engine) (*transferManager, error) {
	pool, err := newCommandPool(e)
	if err != nil {
		return nil, err
	}
	return &transferManager{
		engine:  e,
		pool:    pool,
		fences:  newFenceManager(e),
		staging: make(map[vk.DeviceSize][]*xferBuffer),
	}, nil
}

func (tm *transferManager) acquireStaging(size vk.DeviceSize) (*xferBuffer, error) {
	tm.mu.Lock()
	if list := tm.staging[size]; len(list) > 0 {
		xb := list[len(list)-1]
		tm.staging[size] = list[:len(list)-1]
		tm.mu.Unlock()
		return xb, nil
	}
	tm.mu.Unlock()

	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  size,
		Usage:                 vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit),
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{tm.engine.queueFamilyIndex},
	}
	var handle vk.Buffer
	if ret := vk.CreateBuffer(tm.engine.device, &info, nil, &handle); isError(ret) {
		return nil, newError(ret)
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(tm.engine.device, handle, &reqs)
	reqs.Deref()
	typeIndex, ok := findMemoryType(tm.engine.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok {
		return nil, errNoMemoryType
	}
	m, err := tm.engine.mem.alloc(typeIndex, reqs.Size, reqs.Alignment)
	if err != nil {
		return nil, err
	}
	if ret := vk.BindBufferMemory(tm.engine.device, handle, m.chunk.mem, m.offset); isError(ret) {
		return nil, newError(ret)
	}
	return &xferBuffer{handle: handle, mem: m, size: size}, nil
}

func (tm *transferManager) releaseStaging(xb *xferBuffer) {
	tm.mu.Lock()
	tm.staging[xb.size] = append(tm.staging[xb.size], xb)
	tm.mu.Unlock()
}

// oneShot allocates a primary command buffer, runs fn to record into it,
// submits it to the background queue and blocks until it completes.
func (tm *transferManager) oneShot(fn func(cb vk.CommandBuffer)) error {
	return runOneShot(tm.engine, tm.pool, tm.fences, fn)
}

func (tm *transferManager) destroy() {
	tm.mu.Lock()
	for _, list := range tm.staging {
		for _, xb := range list {
			vk.DestroyBuffer(tm.engine.device, xb.handle, nil)
			tm.engine.mem.free(xb.mem)
		}
	}
	tm.mu.Unlock()
	tm.fences.destroy()
	tm.pool.destroy()
}

// uploadImage copies pixels into img's level-0 mip through a staging
// buffer, transitioning level 0 to vk.ImageLayoutShaderReadOnlyOptimal
// (or generating the rest of the chain first, by iterative blit, when
// img has more than one level).
func (e *Engine) uploadImage(img *Image, pixels []byte) error {
	size := vk.DeviceSize(len(pixels))
	xb, err := e.transfer.acquireStaging(size)
	if err != nil {
		return err
	}
	defer e.transfer.releaseStaging(xb)

	if err := e.mem.write(xb.mem, 0, pixels); err != nil {
		return err
	}

	return e.transfer.oneShot(func(cb vk.CommandBuffer) {
		transitionImageLayout(cb, img.handle, 0, img.mipLevels, aspectForFormat(img.format),
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

		region := vk.BufferImageCopy{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: aspectForFormat(img.format),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: img.width, Height: img.height, Depth: 1},
		}
		vk.CmdCopyBufferToImage(cb, xb.handle, img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

		if img.mipLevels > 1 {
			generateMips(cb, img)
		} else {
			transitionImageLayout(cb, img.handle, 0, 1, aspectForFormat(img.format),
				vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
			img.layoutArr[0] = vk.ImageLayoutShaderReadOnlyOptimal
		}
	})
}

// blitStorage moves host bytes into or out of a device buffer through a
// cached staging buffer: write copies host into dst via vkCmdCopyBuffer,
// read copies dst into host the same way, letting compute round-trip a
// Storage/Uniform buffer's contents without that buffer needing to be
// host-visible itself.
func (tm *transferManager) blitStorage(write bool, dst vk.Buffer, size, offset vk.DeviceSize, host []byte) error {
	xb, err := tm.acquireStaging(size)
	if err != nil {
		return err
	}
	defer tm.releaseStaging(xb)

	if write {
		if err := tm.engine.mem.write(xb.mem, 0, host); err != nil {
			return err
		}
	}

	region := vk.BufferCopy{Size: size}
	if err := tm.oneShot(func(cb vk.CommandBuffer) {
		if write {
			region.SrcOffset, region.DstOffset = 0, offset
			vk.CmdCopyBuffer(cb, xb.handle, dst, 1, []vk.BufferCopy{region})
		} else {
			region.SrcOffset, region.DstOffset = offset, 0
			vk.CmdCopyBuffer(cb, dst, xb.handle, 1, []vk.BufferCopy{region})
		}
	}); err != nil {
		return err
	}

	if !write {
		return tm.engine.mem.read(xb.mem, 0, host)
	}
	return nil
}

func aspectForFormat(f ImageFormat) vk.ImageAspectFlags {
	if f == FormatDepth1X || f == FormatDepth4X {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// generateMips iteratively blits level i into level i+1, halving extent
// each step, moving each source level to
// vk.ImageLayoutShaderReadOnlyOptimal once it has been read; the last
// level is only a blit destination and is moved from TransferDst to the
// same layout after the loop. Every level must start in TransferDst.
func generateMips(cb vk.CommandBuffer, img *Image) {
	w, h := int32(img.width), int32(img.height)
	aspect := aspectForFormat(img.format)

	for i := uint32(1); i < img.mipLevels; i++ {
		transitionImageLayout(cb, img.handle, i-1, 1, aspect,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal)

		nw, nh := w, h
		if nw > 1 {
			nw /= 2
		}
		if nh > 1 {
			nh /= 2
		}

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i - 1, LayerCount: 1},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i, LayerCount: 1},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: w, Y: h, Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: nw, Y: nh, Z: 1}
		vk.CmdBlitImage(cb, img.handle, vk.ImageLayoutTransferSrcOptimal,
			img.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		transitionImageLayout(cb, img.handle, i-1, 1, aspect,
			vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
		img.layoutArr[i-1] = vk.ImageLayoutShaderReadOnlyOptimal

		w, h = nw, nh
	}
	last := img.mipLevels - 1
	transitionImageLayout(cb, img.handle, last, 1, aspect,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	img.layoutArr[last] = vk.ImageLayoutShaderReadOnlyOptimal
}
