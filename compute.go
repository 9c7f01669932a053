package vkk

import vk "github.com/vulkan-go/vulkan"

// ComputePipeline is a bound-once vk.Pipeline built from a single
// compute shader module, the compute-side mirror of GraphicsPipeline.
type ComputePipeline struct {
	engine *Engine
	layout *PipelineLayout
	handle vk.Pipeline
}

// NewComputePipeline builds a compute pipeline from the shader at path
// against layout.
func (e *Engine) NewComputePipeline(layout *PipelineLayout, path string) (cp *ComputePipeline, err error) {
	defer checkErr(&err)

	spirv, rerr := loadShaderFile(path)
	orPanic(rerr)
	module, merr := e.shaderModule(path, spirv)
	orPanic(merr)

	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  safeString("main"),
		},
		Layout: layout.handle,
	}
	handles := make([]vk.Pipeline, 1)
	orPanic(newError(vk.CreateComputePipelines(e.device, e.pipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, handles)))

	return &ComputePipeline{engine: e, layout: layout, handle: handles[0]}, nil
}

func (cp *ComputePipeline) destroy() {
	if cp.handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(cp.engine.device, cp.handle, nil)
	}
}

// DeleteComputePipeline defers cp's destruction.
func (e *Engine) DeleteComputePipeline(cp *ComputePipeline) {
	if cp == nil {
		return
	}
	e.destroyQ.defer_(cp, e.destroyExpiry())
}

// Compute is the dispatch-recording counterpart to a Renderer: a single
// command buffer, bound pipeline, and fence, synchronous like
// ImageRenderer since compute work is typically a prerequisite for a
// later draw rather than something to pipeline across frames.
type Compute struct {
	engine *Engine

	boundPipeline *ComputePipeline

	cmdPool *commandPool
	cmd     vk.CommandBuffer
	fence   vk.Fence
}

// NewCompute allocates the single command buffer and fence a compute
// dispatch sequence records into.
func (e *Engine) NewCompute() (c *Compute, err error) {
	defer checkErr(&err)

	c = &Compute{engine: e}

	pool, perr := newCommandPool(e)
	orPanic(perr)
	c.cmdPool = pool
	bufs, berr := pool.alloc(vk.CommandBufferLevelPrimary, 1)
	orPanic(berr)
	c.cmd = bufs[0]

	var fence vk.Fence
	orPanic(newError(vk.CreateFence(e.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence)))
	c.fence = fence

	return c, nil
}

// Begin resets and opens the single command buffer for recording.
func (c *Compute) Begin() bool {
	vk.WaitForFences(c.engine.device, 1, []vk.Fence{c.fence}, vk.True, vk.MaxUint64)
	c.cmdPool.reset()
	if ret := vk.BeginCommandBuffer(c.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}); isError(ret) {
		warnf("compute begin failed: %v", newError(ret))
		return false
	}
	return true
}

// BindComputePipeline records vkCmdBindPipeline against cp.
func (c *Compute) BindComputePipeline(cp *ComputePipeline) {
	vk.CmdBindPipeline(c.cmd, vk.PipelineBindPointCompute, cp.handle)
	c.boundPipeline = cp
}

// BindUniformSet records vkCmdBindDescriptorSets against the currently
// bound compute pipeline's layout.
func (c *Compute) BindUniformSet(set uint32, us *UniformSet) {
	if c.boundPipeline == nil {
		warnf("Compute.BindUniformSet called with no bound pipeline")
		return
	}
	sets := []vk.DescriptorSet{us.Handle()}
	vk.CmdBindDescriptorSets(c.cmd, vk.PipelineBindPointCompute, c.boundPipeline.layout.handle, set, 1, sets, 0, nil)
}

// Dispatch inserts a hazard-tuned barrier against buf (the resource the
// prior dispatch/draw touched) and issues vkCmdDispatch with group
// counts computed by dividing count by localSize, per axis, rounding up.
func (c *Compute) Dispatch(hazard Hazard, buf *Buffer, count, localSize [3]uint32) {
	if buf != nil {
		hazardBarrier(c.cmd, hazard, buf.Handle(), buf.Size())
	}
	groupX := ceilDiv(count[0], localSize[0])
	groupY := ceilDiv(count[1], localSize[1])
	groupZ := ceilDiv(count[2], localSize[2])
	vk.CmdDispatch(c.cmd, groupX, groupY, groupZ)
}

func ceilDiv(count, localSize uint32) uint32 {
	if localSize == 0 {
		localSize = 1
	}
	return (count + localSize - 1) / localSize
}

// End closes and submits the command buffer on the background queue,
// blocking until it retires, then clears the bound pipeline.
func (c *Compute) End() {
	vk.EndCommandBuffer(c.cmd)
	vk.ResetFences(c.engine.device, 1, []vk.Fence{c.fence})

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{c.cmd},
	}
	if ret := vk.QueueSubmit(c.engine.Background(), 1, []vk.SubmitInfo{submit}, c.fence); isError(ret) {
		warnf("compute submit failed: %v", newError(ret))
		return
	}
	if ret := vk.WaitForFences(c.engine.device, 1, []vk.Fence{c.fence}, vk.True, vk.MaxUint64); isError(ret) {
		warnf("compute wait failed: %v", newError(ret))
		vk.QueueWaitIdle(c.engine.Background())
	}
	c.boundPipeline = nil
	c.engine.destroyQ.bump()
}

// WriteBuffer uploads data into buf through the engine's transfer
// manager, the round-trip counterpart ReadBuffer mirrors. Independent of
// Begin/End recording since it submits its own one-shot command buffer.
func (c *Compute) WriteBuffer(buf *Buffer, data []byte) error {
	return c.engine.transfer.blitStorage(true, buf.Handle(), vk.DeviceSize(len(data)), 0, data)
}

// ReadBuffer copies buf's current contents back into data, blocking
// until the copy lands. Callers issuing a Dispatch that writes buf must
// End() the Compute first so the read observes that dispatch's results.
func (c *Compute) ReadBuffer(buf *Buffer, data []byte) error {
	return c.engine.transfer.blitStorage(false, buf.Handle(), vk.DeviceSize(len(data)), 0, data)
}

func (c *Compute) destroy() {
	vk.WaitForFences(c.engine.device, 1, []vk.Fence{c.fence}, vk.True, vk.MaxUint64)
	vk.DestroyFence(c.engine.device, c.fence, nil)
	c.cmdPool.destroy()
}

// DeleteCompute defers c's destruction.
func (e *Engine) DeleteCompute(c *Compute) {
	if c == nil {
		return
	}
	e.destroyQ.defer_(c, e.destroyExpiry())
}
