package vkk

import vk "github.com/vulkan-go/vulkan"

// commandPool wraps one vk.CommandPool with VK_COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
// generalizing vulkan-go-asche/pools.go's CorePool away from a single
// hardcoded per-frame pool into something the transfer manager and
// secondary renderers can also allocate from.
type commandPool struct {
	engine *Engine
	handle vk.CommandPool
}

func newCommandPool(e *Engine) (*commandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: e.queueFamilyIndex,
	}
	var handle vk.CommandPool
	if ret := vk.CreateCommandPool(e.device, &info, nil, &handle); isError(ret) {
		return nil, newError(ret)
	}
	return &commandPool{engine: e, handle: handle}, nil
}

func (p *commandPool) alloc(level vk.CommandBufferLevel, count int) ([]vk.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.handle,
		Level:              level,
		CommandBufferCount: uint32(count),
	}
	bufs := make([]vk.CommandBuffer, count)
	if ret := vk.AllocateCommandBuffers(p.engine.device, &info, bufs); isError(ret) {
		return nil, newError(ret)
	}
	return bufs, nil
}

func (p *commandPool) reset() {
	vk.ResetCommandPool(p.engine.device, p.handle, 0)
}

func (p *commandPool) destroy() {
	if p.handle != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(p.engine.device, p.handle, nil)
	}
}

// fenceManager recycles vk.Fence objects instead of creating one per
// submission, mirroring vulkan-go-asche/managers.go's FenceManager.
type fenceManager struct {
	engine *Engine
	free   []vk.Fence
	active []vk.Fence
}

func newFenceManager(e *Engine) *fenceManager {
	return &fenceManager{engine: e}
}

func (fm *fenceManager) next(signaled bool) (vk.Fence, error) {
	if n := len(fm.free); n > 0 {
		f := fm.free[n-1]
		fm.free = fm.free[:n-1]
		fm.active = append(fm.active, f)
		return f, nil
	}
	flags := vk.FenceCreateFlags(0)
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if ret := vk.CreateFence(fm.engine.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &f); isError(ret) {
		return vk.Fence(vk.NullHandle), newError(ret)
	}
	fm.active = append(fm.active, f)
	return f, nil
}

func (fm *fenceManager) release(f vk.Fence) {
	for i, a := range fm.active {
		if a == f {
			fm.active = append(fm.active[:i], fm.active[i+1:]...)
			break
		}
	}
	vk.ResetFences(fm.engine.device, 1, []vk.Fence{f})
	fm.free = append(fm.free, f)
}

func (fm *fenceManager) destroy() {
	for _, f := range fm.active {
		vk.DestroyFence(fm.engine.device, f, nil)
	}
	for _, f := range fm.free {
		vk.DestroyFence(fm.engine.device, f, nil)
	}
	fm.active = nil
	fm.free = nil
}

// runOneShot allocates a primary command buffer from pool, records fn into
// it, submits it to the background queue using a fence borrowed from
// fences, and blocks until it retires - the single-use command-buffer
// pattern the transfer manager and image downloader both need.
func runOneShot(e *Engine, pool *commandPool, fences *fenceManager, fn func(cb vk.CommandBuffer)) error {
	bufs, err := pool.alloc(vk.CommandBufferLevelPrimary, 1)
	if err != nil {
		return err
	}
	cb := bufs[0]
	defer vk.FreeCommandBuffers(e.device, pool.handle, 1, bufs)

	if ret := vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}); isError(ret) {
		return newError(ret)
	}
	fn(cb)
	if ret := vk.EndCommandBuffer(cb); isError(ret) {
		return newError(ret)
	}

	fence, err := fences.next(false)
	if err != nil {
		return err
	}
	defer fences.release(fence)

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    bufs,
	}
	if ret := vk.QueueSubmit(e.Background(), 1, []vk.SubmitInfo{submit}, fence); isError(ret) {
		return newError(ret)
	}
	if ret := vk.WaitForFences(e.device, 1, []vk.Fence{fence}, vk.True, ^uint64(0)); isError(ret) {
		return newError(ret)
	}
	return nil
}
