package vkk

import vk "github.com/vulkan-go/vulkan"

// ImageStreamRenderer produces a ring of N caller-visible images - one
// per frame of a consumer renderer - transitioning each to
// COLOR_ATTACHMENT_OPTIMAL on begin and to SHADER_READ_ONLY_OPTIMAL (via
// a generated mip chain, if the stream was built with one) on end,
// signaling a per-image semaphore the consumer is made to wait on. This
// is how an off-screen pass (a UI layer, a video frame) gets handed to
// the default renderer without the GPU ever stalling to synchronize
// with the CPU.
type ImageStreamRenderer struct {
	base baseRenderer

	consumer      Renderer
	width, height uint32
	format        ImageFormat

	images      []*Image
	mip0Views   []vk.ImageView
	depth       *attachmentImage

	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer

	cmdPool *commandPool
	cmds    []vk.CommandBuffer

	semaphores []vk.Semaphore

	curIndex int
}

// NewImageStreamRenderer builds an N-image ring sized for consumer's
// frame count (1 for an off-screen consumer, the swapchain image count
// for the default renderer). mipmap requests a mip chain on every ring
// image, generated on each End; width/height must then be powers of two.
func (e *Engine) NewImageStreamRenderer(consumer Renderer, width, height uint32, format ImageFormat, n int, mipmap bool) (isr *ImageStreamRenderer, err error) {
	defer checkErr(&err)
	if n < 1 {
		n = 1
	}

	isr = &ImageStreamRenderer{
		base:     baseRenderer{engine: e, rtype: RendererImageStream},
		consumer: consumer,
		width:    width,
		height:   height,
		format:   format,
	}

	depth, derr := e.newAttachmentImage(width, height, vk.FormatD32Sfloat,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit), vk.ImageUsageDepthStencilAttachmentBit, vk.SampleCount1Bit)
	orPanic(derr)
	isr.depth = depth

	orPanic(isr.buildRenderPass(imageFormatMap[format]))

	isr.images = make([]*Image, n)
	isr.mip0Views = make([]vk.ImageView, n)
	isr.framebuffers = make([]vk.Framebuffer, n)
	isr.semaphores = make([]vk.Semaphore, n)
	for i := 0; i < n; i++ {
		img, ierr := e.NewImage(width, height, format, mipmap, StageFragment, nil)
		orPanic(ierr)
		isr.images[i] = img

		var mip0 vk.ImageView
		orPanic(newError(vk.CreateImageView(e.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img.handle,
			ViewType: vk.ImageViewType2d,
			Format:   imageFormatMap[format],
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &mip0)))
		isr.mip0Views[i] = mip0

		var fb vk.Framebuffer
		orPanic(newError(vk.CreateFramebuffer(e.device, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      isr.renderPass,
			AttachmentCount: 2,
			PAttachments:    []vk.ImageView{mip0, depth.view},
			Width:           width,
			Height:          height,
			Layers:          1,
		}, nil, &fb)))
		isr.framebuffers[i] = fb

		var sem vk.Semaphore
		orPanic(newError(vk.CreateSemaphore(e.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &sem)))
		isr.semaphores[i] = sem
	}

	pool, perr := newCommandPool(e)
	orPanic(perr)
	isr.cmdPool = pool
	bufs, berr := pool.alloc(vk.CommandBufferLevelPrimary, n)
	orPanic(berr)
	isr.cmds = bufs

	return isr, nil
}

func (isr *ImageStreamRenderer) buildRenderPass(colorFmt vk.Format) error {
	e := isr.base.engine
	attachments := []vk.AttachmentDescription{
		{
			Format: colorFmt, Samples: vk.SampleCount1Bit,
			LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore,
			StencilLoadOp: vk.AttachmentLoadOpDontCare, StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutColorAttachmentOptimal,
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
	isr.renderPass = rp
	return nil
}

// consumerFrameIndex picks the ring slot bound to the consumer's current
// frame - the default renderer's swapchain image index when it is the
// consumer, or slot 0 for any single-buffered off-screen consumer.
func (isr *ImageStreamRenderer) consumerFrameIndex() int {
	if dr, ok := isr.consumer.(*DefaultRenderer); ok {
		return dr.frameIndex % len(isr.images)
	}
	return 0
}

func (isr *ImageStreamRenderer) Begin(mode RendererMode, clearColor [4]float32) bool {
	if mode != ModeDraw {
		warnf("image-stream renderer only supports ModeDraw")
		return false
	}
	idx := isr.consumerFrameIndex()
	isr.curIndex = idx

	cb := isr.cmds[idx]
	vk.ResetCommandBuffer(cb, 0)
	vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})

	img := isr.images[idx]
	transitionImageLayout(cb, img.handle, 0, 1, vk.ImageAspectFlags(vk.ImageAspectColorBit),
		img.layoutArr[0], vk.ImageLayoutColorAttachmentOptimal)

	clear := []vk.ClearValue{
		vk.NewClearValue([]float32{clearColor[0], clearColor[1], clearColor[2], clearColor[3]}),
		vk.NewClearDepthStencil(1, 0),
	}
	vk.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      isr.renderPass,
		Framebuffer:     isr.framebuffers[idx],
		RenderArea:      vk.Rect2D{Extent: vk.Extent2D{Width: isr.width, Height: isr.height}},
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)

	isr.base.mode = ModeDraw
	isr.base.state = stateRecording
	return true
}

// End ends the pass, generates the image's mip chain if it has one
// (re-deriving the subsequent levels from the just-rendered level 0),
// transitions to SHADER_READ_ONLY_OPTIMAL, submits signaling this slot's
// semaphore, then appends that semaphore to the consumer's wait list.
// Queue selection follows the consumer's kind: FOREGROUND keeps the
// hand-off inside the same frame the default renderer is about to
// submit, BACKGROUND otherwise.
func (isr *ImageStreamRenderer) End() {
	e := isr.base.engine
	idx := isr.curIndex
	cb := isr.cmds[idx]
	img := isr.images[idx]
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	vk.CmdEndRenderPass(cb)

	if img.mipLevels > 1 {
		transitionImageLayout(cb, img.handle, 0, 1, aspect,
			vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferDstOptimal)
		transitionImageLayout(cb, img.handle, 1, img.mipLevels-1, aspect,
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		generateMips(cb, img)
	} else {
		transitionImageLayout(cb, img.handle, 0, 1, aspect,
			vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
		img.layoutArr[0] = vk.ImageLayoutShaderReadOnlyOptimal
	}

	vk.EndCommandBuffer(cb)

	queue := e.Background()
	var consumerBase *baseRenderer
	switch c := isr.consumer.(type) {
	case *DefaultRenderer:
		queue = e.Foreground()
		consumerBase = &c.base
	case *ImageRenderer:
		consumerBase = &c.base
	case *SecondaryRenderer:
		consumerBase = &c.base
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{isr.semaphores[idx]},
	}
	if ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submit}, vk.Fence(vk.NullHandle)); isError(ret) {
		warnf("image-stream renderer submit failed: %v", newError(ret))
		isr.base.state = stateIdle
		return
	}
	isr.base.state = stateSubmitted

	if consumerBase != nil {
		consumerBase.addWaitSemaphore(isr.semaphores[idx], vk.PipelineStageColorAttachmentOutputBit)
	}
	isr.base.state = stateIdle
}

func (isr *ImageStreamRenderer) Type() RendererType              { return isr.base.rtype }
func (isr *ImageStreamRenderer) RenderPass() vk.RenderPass       { return isr.renderPass }
func (isr *ImageStreamRenderer) CommandBuffer() vk.CommandBuffer { return isr.cmds[isr.curIndex] }
func (isr *ImageStreamRenderer) SurfaceSize() (uint32, uint32)   { return isr.width, isr.height }

func (isr *ImageStreamRenderer) BindGraphicsPipeline(gp *GraphicsPipeline) {
	bindGraphicsPipeline(&isr.base, isr.cmds[isr.curIndex], gp)
}

func (isr *ImageStreamRenderer) BindUniformSet(set uint32, us *UniformSet) {
	bindUniformSet(&isr.base, isr.cmds[isr.curIndex], set, us)
}

func (isr *ImageStreamRenderer) Draw(vertexCount, instanceCount uint32) {
	vk.CmdDraw(isr.cmds[isr.curIndex], vertexCount, instanceCount, 0, 0)
}

// Image returns the ring slot currently bound to the consumer's frame,
// for the consumer to sample from after waiting on this stream's
// semaphore.
func (isr *ImageStreamRenderer) Image() *Image {
	return isr.images[isr.consumerFrameIndex()]
}

func (isr *ImageStreamRenderer) destroy() {
	e := isr.base.engine
	e.WaitForIdle()
	for _, fb := range isr.framebuffers {
		vk.DestroyFramebuffer(e.device, fb, nil)
	}
	vk.DestroyRenderPass(e.device, isr.renderPass, nil)
	isr.depth.destroy()
	for _, v := range isr.mip0Views {
		vk.DestroyImageView(e.device, v, nil)
	}
	for _, img := range isr.images {
		img.destroy()
	}
	for _, s := range isr.semaphores {
		vk.DestroySemaphore(e.device, s, nil)
	}
	isr.cmdPool.destroy()
}

// DeleteImageStreamRenderer defers isr's destruction.
func (e *Engine) DeleteImageStreamRenderer(isr *ImageStreamRenderer) {
	if isr == nil {
		return
	}
	e.destroyQ.defer_(isr, e.destroyExpiry())
}
