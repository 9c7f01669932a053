package vkk

import vk "github.com/vulkan-go/vulkan"

// Renderer is the common surface all four specializations expose: a
// begin/end-bracketed recording scope around one vk.CommandBuffer, either
// drawing directly (ModeDraw) or recording for later execution from a
// primary buffer (ModeExecute).
type Renderer interface {
	Begin(mode RendererMode, clearColor [4]float32) bool
	End()
	Type() RendererType
	RenderPass() vk.RenderPass
	CommandBuffer() vk.CommandBuffer
	SurfaceSize() (width, height uint32)
	BindGraphicsPipeline(gp *GraphicsPipeline)
	BindUniformSet(set uint32, us *UniformSet)
	Draw(vertexCount, instanceCount uint32)
}

// rendererState tracks the Idle -> Recording -> Submitted -> Idle cycle
// every renderer specialization drives its command buffer(s) through.
type rendererState int

const (
	stateIdle rendererState = iota
	stateRecording
	stateSubmitted
)

// baseRenderer holds bookkeeping shared by every specialization: its kind,
// current recording state and mode, the currently bound pipeline (so
// BindUniformSet can validate a set index against the bound pipeline's
// layout in a fuller implementation), and the extra semaphores this
// renderer wants the eventual submit to wait on.
type baseRenderer struct {
	engine *Engine
	rtype  RendererType
	mode   RendererMode
	state  rendererState

	boundPipeline *GraphicsPipeline

	waitSemaphores []vk.Semaphore
	waitStages     []vk.PipelineStageFlags
}

func (b *baseRenderer) Type() RendererType { return b.rtype }

func (b *baseRenderer) addWaitSemaphore(s vk.Semaphore, stage vk.PipelineStageFlagBits) {
	b.waitSemaphores = append(b.waitSemaphores, s)
	b.waitStages = append(b.waitStages, vk.PipelineStageFlags(stage))
}

func (b *baseRenderer) clearWaits() {
	b.waitSemaphores = b.waitSemaphores[:0]
	b.waitStages = b.waitStages[:0]
}

// bindGraphicsPipeline records vkCmdBindPipeline and remembers the bound
// pipeline for subsequent BindUniformSet calls on the same recording.
func bindGraphicsPipeline(b *baseRenderer, cb vk.CommandBuffer, gp *GraphicsPipeline) {
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, gp.handle)
	b.boundPipeline = gp
}

// bindUniformSet records vkCmdBindDescriptorSets against the currently
// bound pipeline's layout; a no-op if nothing is bound yet.
func bindUniformSet(b *baseRenderer, cb vk.CommandBuffer, set uint32, us *UniformSet) {
	if b.boundPipeline == nil {
		warnf("BindUniformSet called with no bound pipeline")
		return
	}
	sets := []vk.DescriptorSet{us.Handle()}
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, b.boundPipeline.layout.handle, set, 1, sets, 0, nil)
}
