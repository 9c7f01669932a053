package vkk

import vk "github.com/vulkan-go/vulkan"

// SecondaryRenderer records into a secondary command buffer that
// inherits its primary's render pass (subpass 0; the framebuffer is
// left unspecified in the inheritance info), one
// buffer per frame of the primary so recording for frame i+1 can start
// before frame i's vkCmdExecuteCommands has retired.
type SecondaryRenderer struct {
	base baseRenderer

	primary Renderer

	cmdPool *commandPool
	cmds    []vk.CommandBuffer

	curIndex int
}

// NewSecondaryRenderer allocates n secondary command buffers (n =
// primary's frame count) against primary.
func (e *Engine) NewSecondaryRenderer(primary Renderer, n int) (sr *SecondaryRenderer, err error) {
	defer checkErr(&err)
	if n < 1 {
		n = 1
	}

	sr = &SecondaryRenderer{
		base:    baseRenderer{engine: e, rtype: RendererSecondary},
		primary: primary,
	}

	pool, perr := newCommandPool(e)
	orPanic(perr)
	sr.cmdPool = pool
	bufs, berr := pool.alloc(vk.CommandBufferLevelSecondary, n)
	orPanic(berr)
	sr.cmds = bufs

	return sr, nil
}

func (sr *SecondaryRenderer) primaryFrameIndex() int {
	if dr, ok := sr.primary.(*DefaultRenderer); ok {
		return dr.frameIndex % len(sr.cmds)
	}
	return 0
}

// Begin opens this frame's secondary command buffer with
// RENDER_PASS_CONTINUE_BIT, inheriting the primary's render pass at
// subpass 0 without naming a framebuffer - clearColor is unused since the primary already
// cleared the attachments when it began its own render pass.
func (sr *SecondaryRenderer) Begin(mode RendererMode, clearColor [4]float32) bool {
	if mode != ModeDraw {
		warnf("secondary renderer only supports ModeDraw")
		return false
	}
	idx := sr.primaryFrameIndex()
	sr.curIndex = idx
	cb := sr.cmds[idx]

	vk.ResetCommandBuffer(cb, 0)
	inherit := vk.CommandBufferInheritanceInfo{
		SType:      vk.StructureTypeCommandBufferInheritanceInfo,
		RenderPass: sr.primary.RenderPass(),
		Subpass:    0,
	}
	if ret := vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		Flags:            vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit),
		PInheritanceInfo: &inherit,
	}); isError(ret) {
		warnf("secondary renderer begin failed: %v", newError(ret))
		return false
	}

	width, height := sr.primary.SurfaceSize()
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{Width: float32(width), Height: float32(height), MaxDepth: 1}})
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{Extent: vk.Extent2D{Width: width, Height: height}}})

	sr.base.mode = ModeDraw
	sr.base.state = stateRecording
	return true
}

// End only ends the command buffer - the render pass itself belongs to
// the primary and is ended there.
func (sr *SecondaryRenderer) End() {
	vk.EndCommandBuffer(sr.cmds[sr.curIndex])
	sr.base.state = stateIdle
}

func (sr *SecondaryRenderer) Type() RendererType              { return sr.base.rtype }
func (sr *SecondaryRenderer) RenderPass() vk.RenderPass       { return sr.primary.RenderPass() }
func (sr *SecondaryRenderer) CommandBuffer() vk.CommandBuffer { return sr.cmds[sr.curIndex] }
func (sr *SecondaryRenderer) SurfaceSize() (uint32, uint32)   { return sr.primary.SurfaceSize() }

func (sr *SecondaryRenderer) BindGraphicsPipeline(gp *GraphicsPipeline) {
	bindGraphicsPipeline(&sr.base, sr.cmds[sr.curIndex], gp)
}

func (sr *SecondaryRenderer) BindUniformSet(set uint32, us *UniformSet) {
	bindUniformSet(&sr.base, sr.cmds[sr.curIndex], set, us)
}

func (sr *SecondaryRenderer) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(sr.cmds[sr.curIndex], vertexCount, instanceCount, 0, 0)
}

// Execute records vkCmdExecuteCommands in primary's current command
// buffer for every secondary renderer's just-ended buffer - the only
// legal operation while primary is in Recording(Execute) mode.
func Execute(primary Renderer, secondaries ...*SecondaryRenderer) {
	if len(secondaries) == 0 {
		return
	}
	handles := make([]vk.CommandBuffer, len(secondaries))
	for i, s := range secondaries {
		handles[i] = s.cmds[s.curIndex]
	}
	vk.CmdExecuteCommands(primary.CommandBuffer(), uint32(len(handles)), handles)
}

func (sr *SecondaryRenderer) destroy() {
	sr.cmdPool.destroy()
}

// DeleteSecondaryRenderer defers sr's destruction.
func (e *Engine) DeleteSecondaryRenderer(sr *SecondaryRenderer) {
	if sr == nil {
		return
	}
	e.destroyQ.defer_(sr, e.destroyExpiry())
}
