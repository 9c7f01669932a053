package vkk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// downloadManager owns a one-shot command pool/fence pair and a cache of
// staging buffers, the read-back mirror of transferManager - kept as its
// own pool and cache rather than sharing transferManager's, matching
// libvkk's vkk_imageDownloader_t being a manager distinct from
// vkk_xferManager_t.
type downloadManager struct {
	engine *Engine
	pool   *commandPool
	fences *fenceManager

	mu      sync.Mutex
	staging map[vk.DeviceSize][]*xferBuffer
}

func newDownloadManager(e *Engine) (*downloadManager, error) {
	pool, err := newCommandPool(e)
	if err != nil {
		return nil, err
	}
	return &downloadManager{
		engine:  e,
		pool:    pool,
		fences:  newFenceManager(e),
		staging: make(map[vk.DeviceSize][]*xferBuffer),
	}, nil
}

func (dm *downloadManager) acquireStaging(size vk.DeviceSize) (*xferBuffer, error) {
	dm.mu.Lock()
	if list := dm.staging[size]; len(list) > 0 {
		xb := list[len(list)-1]
		dm.staging[size] = list[:len(list)-1]
		dm.mu.Unlock()
		return xb, nil
	}
	dm.mu.Unlock()

	info := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  size,
		Usage:                 vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{dm.engine.queueFamilyIndex},
	}
	var handle vk.Buffer
	if ret := vk.CreateBuffer(dm.engine.device, &info, nil, &handle); isError(ret) {
		return nil, newError(ret)
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dm.engine.device, handle, &reqs)
	reqs.Deref()
	typeIndex, ok := findMemoryType(dm.engine.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok {
		return nil, errNoMemoryType
	}
	m, err := dm.engine.mem.alloc(typeIndex, reqs.Size, reqs.Alignment)
	if err != nil {
		return nil, err
	}
	if ret := vk.BindBufferMemory(dm.engine.device, handle, m.chunk.mem, m.offset); isError(ret) {
		return nil, newError(ret)
	}
	return &xferBuffer{handle: handle, mem: m, size: size}, nil
}

func (dm *downloadManager) releaseStaging(xb *xferBuffer) {
	dm.mu.Lock()
	dm.staging[xb.size] = append(dm.staging[xb.size], xb)
	dm.mu.Unlock()
}

func (dm *downloadManager) destroy() {
	dm.mu.Lock()
	for _, list := range dm.staging {
		for _, xb := range list {
			vk.DestroyBuffer(dm.engine.device, xb.handle, nil)
			dm.engine.mem.free(xb.mem)
		}
	}
	dm.mu.Unlock()
	dm.fences.destroy()
	dm.pool.destroy()
}

// readImage copies img's level-0 mip into pixels through a staging
// buffer: transition level 0 to TransferSrcOptimal, vkCmdCopyImageToBuffer
// into staging, transition level 0 back to its prior layout, submit and
// wait, then read the staging memory into pixels.
func (dm *downloadManager) readImage(img *Image, pixels []byte) error {
	size := vk.DeviceSize(len(pixels))
	xb, err := dm.acquireStaging(size)
	if err != nil {
		return err
	}
	defer dm.releaseStaging(xb)

	restoreLayout := img.layoutArr[0]
	aspect := aspectForFormat(img.format)

	err = runOneShot(dm.engine, dm.pool, dm.fences, func(cb vk.CommandBuffer) {
		transitionImageLayout(cb, img.handle, 0, 1, aspect, restoreLayout, vk.ImageLayoutTransferSrcOptimal)

		region := vk.BufferImageCopy{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: aspect,
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: img.width, Height: img.height, Depth: 1},
		}
		vk.CmdCopyImageToBuffer(cb, img.handle, vk.ImageLayoutTransferSrcOptimal, xb.handle, 1, []vk.BufferImageCopy{region})

		transitionImageLayout(cb, img.handle, 0, 1, aspect, vk.ImageLayoutTransferSrcOptimal, restoreLayout)
	})
	if err != nil {
		return err
	}

	return dm.engine.mem.read(xb.mem, 0, pixels)
}
