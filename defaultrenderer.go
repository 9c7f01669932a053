package vkk

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// acquireTimeoutNs bounds vkAcquireNextImageKHR so a stalled swapchain
// (e.g. mid-resize on desktop) can't hang the frame loop forever. The
// infinite-timeout branch the original library takes on Android has no
// analogue here since this module targets desktop presentation only.
const acquireTimeoutNs = 250 * 1000 * 1000

// DefaultRenderer presents to the engine's surface through a swapchain,
// rotating per-image fences and a semaphore pair independent of the
// acquired image index, generalizing vulkan-go-asche's CoreSwapchain +
// PerFrame + instance.go's acquire/submit/present trio into the shared
// Renderer contract.
type DefaultRenderer struct {
	base baseRenderer

	mu   sync.Mutex
	cond *sync.Cond

	resize bool

	format     vk.Format
	colorSpace vk.ColorSpace
	extent     vk.Extent2D

	swapchain vk.Swapchain
	images    []vk.Image
	imageFences []vk.Fence

	msaaSamples vk.SampleCountFlagBits
	depth       *attachmentImage
	msaaColor   *attachmentImage

	renderPass   vk.RenderPass
	imageViews   []vk.ImageView
	framebuffers []vk.Framebuffer

	cmdPool    *commandPool
	cmdBuffers []vk.CommandBuffer

	// frameIndex is the swapchain image index currently acquired -
	// referenced directly by Engine.frameIndex for
	// Asynchronous Buffer/UniformSet replica selection.
	frameIndex int

	tsArray      []uint64
	tsExpired    uint64
	frameCounter uint64

	semaphoreIndex   uint32
	semaphoreAcquire []vk.Semaphore
	semaphoreSubmit  []vk.Semaphore

	curAcquire vk.Semaphore
	curSubmit  vk.Semaphore
}

// NewDefaultRenderer builds the swapchain-backed presenting renderer and
// installs it as the engine's default renderer. An engine created for
// headless/off-screen use never calls this, matching the "default
// renderer may be absent" allowance.
func (e *Engine) NewDefaultRenderer() (dr *DefaultRenderer, err error) {
	defer checkErr(&err)

	dr = &DefaultRenderer{base: baseRenderer{engine: e, rtype: RendererDefault}}
	dr.cond = sync.NewCond(&dr.mu)
	dr.msaaSamples = chooseMsaaSampleCount(e)

	orPanic(dr.createSwapchain())
	orPanic(dr.createRenderPass())
	orPanic(dr.createAttachments())
	orPanic(dr.createFramebuffers())

	n := len(dr.images)
	pool, perr := newCommandPool(e)
	orPanic(perr)
	dr.cmdPool = pool
	bufs, berr := pool.alloc(vk.CommandBufferLevelPrimary, n)
	orPanic(berr)
	dr.cmdBuffers = bufs

	dr.imageFences = make([]vk.Fence, n)
	dr.tsArray = make([]uint64, n)
	dr.semaphoreAcquire = make([]vk.Semaphore, n)
	dr.semaphoreSubmit = make([]vk.Semaphore, n)
	for i := 0; i < n; i++ {
		var f vk.Fence
		orPanic(newError(vk.CreateFence(e.device, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &f)))
		dr.imageFences[i] = f

		var sa, ss vk.Semaphore
		orPanic(newError(vk.CreateSemaphore(e.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &sa)))
		orPanic(newError(vk.CreateSemaphore(e.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &ss)))
		dr.semaphoreAcquire[i] = sa
		dr.semaphoreSubmit[i] = ss
	}

	e.defaultRenderer = dr
	return dr, nil
}

func chooseMsaaSampleCount(e *Engine) vk.SampleCountFlagBits {
	e.physicalDeviceProps.Deref()
	limits := e.physicalDeviceProps.Limits
	limits.Deref()
	counts := vk.SampleCountFlagBits(limits.FramebufferColorSampleCounts) &
		vk.SampleCountFlagBits(limits.FramebufferDepthSampleCounts)
	if counts&vk.SampleCount4Bit != 0 {
		return vk.SampleCount4Bit
	}
	return vk.SampleCount1Bit
}

func (dr *DefaultRenderer) createSwapchain() error {
	e := dr.base.engine

	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(e.physicalDevice, e.surface, &caps); isError(ret) {
		return newError(ret)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(e.physicalDevice, e.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(e.physicalDevice, e.surface, &formatCount, formats)
	format := formats[0]
	format.Deref()
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Unorm
	}
	dr.format = format.Format
	dr.colorSpace = format.ColorSpace

	width, height := e.platform.SurfaceSize()
	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		extent = caps.CurrentExtent
	}
	dr.extent = extent

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	old := dr.swapchain
	var swapchain vk.Swapchain
	ret := vk.CreateSwapchain(e.device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          e.surface,
		MinImageCount:    imageCount,
		ImageFormat:      dr.format,
		ImageColorSpace:  dr.colorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     old,
		ImageSharingMode: vk.SharingModeExclusive,
	}, nil, &swapchain)
	if isError(ret) {
		return newError(ret)
	}
	if old != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(e.device, old, nil)
	}
	dr.swapchain = swapchain

	var n uint32
	vk.GetSwapchainImages(e.device, swapchain, &n, nil)
	images := make([]vk.Image, n)
	vk.GetSwapchainImages(e.device, swapchain, &n, images)
	dr.images = images

	dr.imageViews = make([]vk.ImageView, n)
	for i := range images {
		var view vk.ImageView
		if ret := vk.CreateImageView(e.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   dr.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity, G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity, A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view); isError(ret) {
			return newError(ret)
		}
		dr.imageViews[i] = view
	}
	return nil
}

// createRenderPass builds a 2-attachment (color, depth) pass, or a
// 3-attachment (color-resolve, depth, color-MS) pass when the device
// supports 4x MSAA and it was chosen by chooseMsaaSampleCount.
func (dr *DefaultRenderer) createRenderPass() error {
	e := dr.base.engine
	depthFormat := vk.FormatD32Sfloat

	colorFinal := vk.ImageLayoutPresentSrc
	if dr.msaaSamples != vk.SampleCount1Bit {
		attachments := []vk.AttachmentDescription{
			{ // 0: color resolve target (the swapchain image)
				Format: dr.format, Samples: vk.SampleCount1Bit,
				LoadOp: vk.AttachmentLoadOpDontCare, StoreOp: vk.AttachmentStoreOpStore,
				StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
				InitialLayout: vk.ImageLayoutUndefined, FinalLayout: colorFinal,
			},
			{ // 1: depth
				Format: depthFormat, Samples: dr.msaaSamples,
				LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpDontCare,
				StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
				InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			},
			{ // 2: color MSAA target, resolved into attachment 0
				Format: dr.format, Samples: dr.msaaSamples,
				LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpDontCare,
				StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
				InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutColorAttachmentOptimal,
			},
		}
		colorRef := vk.AttachmentReference{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal}
		depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
		resolveRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
		subpass := vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       []vk.AttachmentReference{colorRef},
			PResolveAttachments:     []vk.AttachmentReference{resolveRef},
			PDepthStencilAttachment: &depthRef,
		}
		return dr.buildRenderPass(attachments, subpass)
	}

	attachments := []vk.AttachmentDescription{
		{
			Format: dr.format, Samples: vk.SampleCount1Bit,
			LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore,
			StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined, FinalLayout: colorFinal,
		},
		{
			Format: depthFormat, Samples: vk.SampleCount1Bit,
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
	_ = e
	return dr.buildRenderPass(attachments, subpass)
}

func (dr *DefaultRenderer) buildRenderPass(attachments []vk.AttachmentDescription, subpass vk.SubpassDescription) error {
	e := dr.base.engine
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
	dr.renderPass = rp
	return nil
}

func (dr *DefaultRenderer) createAttachments() error {
	e := dr.base.engine
	depth, err := e.newAttachmentImage(dr.extent.Width, dr.extent.Height, vk.FormatD32Sfloat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), vk.ImageUsageDepthStencilAttachmentBit, dr.msaaSamples)
	if err != nil {
		return err
	}
	dr.depth = depth

	if dr.msaaSamples != vk.SampleCount1Bit {
		msaa, err := e.newAttachmentImage(dr.extent.Width, dr.extent.Height, dr.format,
			vk.ImageAspectFlags(vk.ImageAspectColorBit), vk.ImageUsageColorAttachmentBit, dr.msaaSamples)
		if err != nil {
			return err
		}
		dr.msaaColor = msaa
	}
	return nil
}

func (dr *DefaultRenderer) createFramebuffers() error {
	e := dr.base.engine
	dr.framebuffers = make([]vk.Framebuffer, len(dr.imageViews))
	for i, cview := range dr.imageViews {
		var views []vk.ImageView
		if dr.msaaSamples != vk.SampleCount1Bit {
			views = []vk.ImageView{cview, dr.depth.view, dr.msaaColor.view}
		} else {
			views = []vk.ImageView{cview, dr.depth.view}
		}
		var fb vk.Framebuffer
		if ret := vk.CreateFramebuffer(e.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      dr.renderPass,
			AttachmentCount: uint32(len(views)),
			PAttachments:    views,
			Width:           dr.extent.Width,
			Height:          dr.extent.Height,
			Layers:          1,
		}, nil, &fb); isError(ret) {
			return newError(ret)
		}
		dr.framebuffers[i] = fb
	}
	return nil
}

func (dr *DefaultRenderer) destroySwapchainObjects() {
	e := dr.base.engine
	for _, fb := range dr.framebuffers {
		vk.DestroyFramebuffer(e.device, fb, nil)
	}
	dr.framebuffers = nil
	if dr.renderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(e.device, dr.renderPass, nil)
	}
	dr.depth.destroy()
	dr.depth = nil
	if dr.msaaColor != nil {
		dr.msaaColor.destroy()
		dr.msaaColor = nil
	}
	for _, v := range dr.imageViews {
		vk.DestroyImageView(e.device, v, nil)
	}
	dr.imageViews = nil
}

// Resize recreates the swapchain, render pass, attachments and
// framebuffers for the platform's current surface size. image_count must
// stay the same across a resize; if the new swapchain reports a different
// count, Resize returns an error before recreating the render pass
// (per-image state is not re-derived, since this module assumes a stable
// presentation mode across the engine's life).
func (dr *DefaultRenderer) Resize() error {
	e := dr.base.engine
	e.WaitForIdle()

	prevCount := len(dr.images)
	dr.destroySwapchainObjects()
	if err := dr.createSwapchain(); err != nil {
		return err
	}
	if len(dr.images) != prevCount {
		return fmt.Errorf("vkk: resize changed swapchain image count from %d to %d", prevCount, len(dr.images))
	}
	if err := dr.createRenderPass(); err != nil {
		return err
	}
	if err := dr.createAttachments(); err != nil {
		return err
	}
	if err := dr.createFramebuffers(); err != nil {
		return err
	}
	dr.resize = false
	return nil
}

func (dr *DefaultRenderer) destroy() {
	e := dr.base.engine
	e.WaitForIdle()
	dr.destroySwapchainObjects()
	for _, f := range dr.imageFences {
		vk.DestroyFence(e.device, f, nil)
	}
	for _, s := range dr.semaphoreAcquire {
		vk.DestroySemaphore(e.device, s, nil)
	}
	for _, s := range dr.semaphoreSubmit {
		vk.DestroySemaphore(e.device, s, nil)
	}
	dr.cmdPool.destroy()
	if dr.swapchain != vk.Swapchain(vk.NullHandle) {
		vk.DestroySwapchain(e.device, dr.swapchain, nil)
	}
}

// Begin implements the per-frame sequence: semaphore-pair selection,
// acquire, resize detection, fence wait, timestamp bookkeeping, and
// command-buffer/render-pass begin.
func (dr *DefaultRenderer) Begin(mode RendererMode, clearColor [4]float32) bool {
	e := dr.base.engine

	if dr.resize {
		if err := dr.Resize(); err != nil {
			warnf("default renderer resize failed: %v", err)
			return false
		}
	}

	n := uint32(len(dr.images))
	idx := dr.semaphoreIndex % n
	dr.semaphoreIndex++
	acquireSem := dr.semaphoreAcquire[idx]
	submitSem := dr.semaphoreSubmit[idx]

	var imageIndex uint32
	ret := vk.AcquireNextImage(e.device, dr.swapchain, acquireTimeoutNs, acquireSem, vk.Fence(vk.NullHandle), &imageIndex)
	if ret == vk.ErrorOutOfDate {
		dr.resize = true
		return false
	}
	if ret != vk.Success && ret != vk.Suboptimal {
		warnf("vkAcquireNextImageKHR failed: %v", newError(ret))
		return false
	}

	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(e.physicalDevice, e.surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width != vk.MaxUint32 &&
		(caps.CurrentExtent.Width != dr.extent.Width || caps.CurrentExtent.Height != dr.extent.Height) {
		dr.resize = true
		return false
	}

	dr.frameIndex = int(imageIndex)
	fence := dr.imageFences[imageIndex]
	vk.WaitForFences(e.device, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64)
	vk.ResetFences(e.device, 1, []vk.Fence{fence})

	dr.mu.Lock()
	if dr.tsArray[imageIndex] > dr.tsExpired {
		dr.tsExpired = dr.tsArray[imageIndex]
		dr.cond.Broadcast()
	}
	dr.frameCounter++
	dr.tsArray[imageIndex] = dr.frameCounter
	dr.mu.Unlock()
	e.destroyQ.advance(dr.frameCounter)

	dr.curAcquire = acquireSem
	dr.curSubmit = submitSem
	dr.base.mode = mode
	dr.base.state = stateRecording
	dr.base.clearWaits()

	cb := dr.cmdBuffers[imageIndex]
	vk.ResetCommandBuffer(cb, 0)
	vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo})

	transitionImageLayout(cb, dr.images[imageIndex], 0, 1, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)

	if mode == ModeDraw {
		viewport := vk.Viewport{Width: float32(dr.extent.Width), Height: float32(dr.extent.Height), MinDepth: 0, MaxDepth: 1}
		vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{viewport})
		scissor := vk.Rect2D{Extent: dr.extent}
		vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{scissor})
	}

	clear := []vk.ClearValue{
		vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]}),
		vk.NewClearDepthStencil(1, 0),
	}
	if dr.msaaSamples != vk.SampleCount1Bit {
		clear = append(clear, vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]}))
	}

	contents := vk.SubpassContentsInline
	if mode == ModeExecute {
		contents = vk.SubpassContentsSecondaryCommandBuffers
	}
	vk.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      dr.renderPass,
		Framebuffer:     dr.framebuffers[imageIndex],
		RenderArea:      vk.Rect2D{Extent: dr.extent},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, contents)

	return true
}

// End ends the render pass and command buffer, submits, and presents.
func (dr *DefaultRenderer) End() {
	e := dr.base.engine
	idx := dr.frameIndex
	cb := dr.cmdBuffers[idx]

	vk.CmdEndRenderPass(cb)
	vk.EndCommandBuffer(cb)

	waits := append([]vk.Semaphore{dr.curAcquire}, dr.base.waitSemaphores...)
	stages := append([]vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}, dr.base.waitStages...)

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{dr.curSubmit},
	}
	if ret := vk.QueueSubmit(e.Foreground(), 1, []vk.SubmitInfo{submit}, dr.imageFences[idx]); isError(ret) {
		warnf("vkQueueSubmit failed: %v", newError(ret))
		dr.base.state = stateIdle
		return
	}
	dr.base.state = stateSubmitted

	imageIndex := uint32(idx)
	present := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{dr.curSubmit},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{dr.swapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	ret := vk.QueuePresent(e.Foreground(), &present)
	if ret == vk.ErrorOutOfDate {
		dr.resize = true
	} else if ret != vk.Success && ret != vk.Suboptimal {
		warnf("vkQueuePresentKHR failed: %v", newError(ret))
	}
	dr.base.state = stateIdle
}

func (dr *DefaultRenderer) RenderPass() vk.RenderPass          { return dr.renderPass }
func (dr *DefaultRenderer) CommandBuffer() vk.CommandBuffer    { return dr.cmdBuffers[dr.frameIndex] }
func (dr *DefaultRenderer) SurfaceSize() (uint32, uint32)      { return dr.extent.Width, dr.extent.Height }
func (dr *DefaultRenderer) Type() RendererType                 { return dr.base.rtype }

func (dr *DefaultRenderer) BindGraphicsPipeline(gp *GraphicsPipeline) {
	bindGraphicsPipeline(&dr.base, dr.cmdBuffers[dr.frameIndex], gp)
}

func (dr *DefaultRenderer) BindUniformSet(set uint32, us *UniformSet) {
	bindUniformSet(&dr.base, dr.cmdBuffers[dr.frameIndex], set, us)
}

func (dr *DefaultRenderer) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(dr.cmdBuffers[dr.frameIndex], vertexCount, instanceCount, 0, 0)
}

// timestamp returns the frame-generation counter Engine.currentTs/
// destroyExpiry build deferred-destruction expiry timestamps from.
func (dr *DefaultRenderer) timestamp() uint64 {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.frameCounter
}
