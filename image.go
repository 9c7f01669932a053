package vkk

import vk "github.com/vulkan-go/vulkan"

var imageFormatMap = [...]vk.Format{
	FormatRGBA8888: vk.FormatR8g8b8a8Unorm,
	FormatRGBA4444: vk.FormatR4g4b4a4UnormPack16,
	FormatRGBA5551: vk.FormatR5g5b5a1UnormPack16,
	FormatRGB888:   vk.FormatR8g8b8Unorm,
	FormatRGB565:   vk.FormatR5g6b5UnormPack16,
	FormatRG88:     vk.FormatR8g8Unorm,
	FormatR8:       vk.FormatR8Unorm,
	FormatRGBAF32:  vk.FormatR32g32b32a32Sfloat,
	FormatRGBAF16:  vk.FormatR16g16b16a16Sfloat,
	FormatRGBF32:   vk.FormatR32g32b32Sfloat,
	FormatRGF32:    vk.FormatR32g32Sfloat,
	FormatRGF16:    vk.FormatR16g16Sfloat,
	FormatRF32:     vk.FormatR32Sfloat,
	FormatRF16:     vk.FormatR16Sfloat,
	FormatDepth1X:  vk.FormatD32Sfloat,
	FormatDepth4X:  vk.FormatD32Sfloat,
}

// Image is a sampled or render-target GAPI image with its own mip chain,
// each level tracked independently since a mip-generation blit leaves
// lower levels in vk.ImageLayoutTransferSrcOptimal while the last
// generated level is still vk.ImageLayoutTransferDstOptimal.
type Image struct {
	engine *Engine

	width, height uint32
	format        ImageFormat
	stage         Stage
	mipLevels     uint32
	renderTarget  bool

	handle    vk.Image
	view      vk.ImageView
	mem       *memory
	layoutArr []vk.ImageLayout
}

// NewImage creates an Image, optionally generating a mip chain (which
// requires width/height to be powers of two) and optionally uploading
// pixels synchronously via the transfer manager.
func (e *Engine) NewImage(width, height uint32, format ImageFormat, mipmap bool, stage Stage, pixels []byte) (img *Image, err error) {
	defer checkErr(&err)

	levels := uint32(1)
	if mipmap {
		if format == FormatDepth1X || format == FormatDepth4X {
			orPanic(errMipmapDepth)
		}
		if !isPow2(width) || !isPow2(height) {
			orPanic(errMipmapNotPow2)
		}
		levels = mipLevels(width, height)
	}

	img = &Image{
		engine:       e,
		width:        width,
		height:       height,
		format:       format,
		stage:        stage,
		mipLevels:    levels,
		renderTarget: pixels == nil && format != FormatDepth1X && format != FormatDepth4X,
	}
	img.layoutArr = make([]vk.ImageLayout, levels)
	for i := range img.layoutArr {
		img.layoutArr[i] = vk.ImageLayoutUndefined
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit)
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	depth := format == FormatDepth1X || format == FormatDepth4X
	if depth {
		usage = vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	} else {
		// TransferSrc is always requested, not just when levels > 1, so
		// a single-level image can still be read back through Download.
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
		if img.renderTarget {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}

	info := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      imageFormatMap[format],
		Extent:      vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:   levels,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	orPanic(newError(vk.CreateImage(e.device, &info, nil, &handle)))
	img.handle = handle

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(e.device, handle, &reqs)
	reqs.Deref()
	typeIndex, ok := findMemoryType(e.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		orPanic(errNoMemoryType)
	}
	m, allocErr := e.mem.alloc(typeIndex, reqs.Size, reqs.Alignment)
	orPanic(allocErr)
	orPanic(newError(vk.BindImageMemory(e.device, handle, m.chunk.mem, m.offset)))
	img.mem = m

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   imageFormatMap[format],
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			LevelCount:     levels,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	orPanic(newError(vk.CreateImageView(e.device, &viewInfo, nil, &view)))
	img.view = view

	if pixels != nil {
		orPanic(e.uploadImage(img, pixels))
	}

	return img, nil
}

func (img *Image) Width() uint32        { return img.width }
func (img *Image) Height() uint32       { return img.height }
func (img *Image) Format() ImageFormat  { return img.format }
func (img *Image) MipLevels() uint32    { return img.mipLevels }

// Download reads level 0 of img back into pixels, which must be sized
// for width*height pixels at this image's format. Blocks until the
// readback completes.
func (img *Image) Download(pixels []byte) error {
	return img.engine.download.readImage(img, pixels)
}

func (img *Image) destroy() {
	if img.view != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(img.engine.device, img.view, nil)
	}
	if img.handle != vk.Image(vk.NullHandle) {
		vk.DestroyImage(img.engine.device, img.handle, nil)
	}
	img.engine.mem.free(img.mem)
}

// DeleteImage defers img's destruction until no in-flight frame can
// still reference it.
func (e *Engine) DeleteImage(img *Image) {
	if img == nil {
		return
	}
	e.destroyQ.defer_(img, e.destroyExpiry())
}

// attachmentImage is a private renderer-owned image that is only ever
// rendered into, never sampled - a depth buffer or an MSAA color target.
// It speaks the raw vk.Format the swapchain/depth selection already
// settled on rather than the public ImageFormat enum.
type attachmentImage struct {
	engine *Engine
	handle vk.Image
	view   vk.ImageView
	mem    *memory
}

// newAttachmentImage allocates a TRANSIENT_ATTACHMENT image, preferring a
// lazily-allocated device-local memory type (the attachment's contents
// never need to leave the GPU, so tile memory suffices where supported)
// and falling back to plain device-local.
func (e *Engine) newAttachmentImage(width, height uint32, format vk.Format, aspect vk.ImageAspectFlags, usage vk.ImageUsageFlagBits, samples vk.SampleCountFlagBits) (*attachmentImage, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage) | vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	if ret := vk.CreateImage(e.device, &info, nil, &handle); isError(ret) {
		return nil, newError(ret)
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(e.device, handle, &reqs)
	reqs.Deref()

	typeIndex, ok := findMemoryType(e.memProps, reqs.MemoryTypeBits,
		vk.MemoryPropertyFlagBits(vk.MemoryLazilyAllocatedBit)|vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		typeIndex, ok = findMemoryType(e.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	}
	if !ok {
		vk.DestroyImage(e.device, handle, nil)
		return nil, errNoMemoryType
	}
	m, err := e.mem.alloc(typeIndex, reqs.Size, reqs.Alignment)
	if err != nil {
		vk.DestroyImage(e.device, handle, nil)
		return nil, err
	}
	if ret := vk.BindImageMemory(e.device, handle, m.chunk.mem, m.offset); isError(ret) {
		return nil, newError(ret)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if ret := vk.CreateImageView(e.device, &viewInfo, nil, &view); isError(ret) {
		return nil, newError(ret)
	}
	return &attachmentImage{engine: e, handle: handle, view: view, mem: m}, nil
}

func (a *attachmentImage) destroy() {
	if a == nil {
		return
	}
	if a.view != vk.ImageView(vk.NullHandle) {
		vk.DestroyImageView(a.engine.device, a.view, nil)
	}
	if a.handle != vk.Image(vk.NullHandle) {
		vk.DestroyImage(a.engine.device, a.handle, nil)
	}
	a.engine.mem.free(a.mem)
}
