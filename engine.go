package vkk

import (
	"fmt"
	"log"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// imageCapability records which operations the device supports for one
// ImageFormat with optimal tiling - sampled, storage, color attachment,
// blit src/dst - computed once after device creation. Linear-filter
// support is not recorded, and only ImageCapable reads the table (the
// sampled bit); NewImage and the renderer constructors do not consult it.
type imageCapability struct {
	sampled     bool
	storage     bool
	attachment  bool
	blitSrc     bool
	blitDst     bool
}

// Engine is the top-level handle a program holds: one GAPI device, its
// memory and destruction subsystems, and every cached or reference-
// counted object (samplers, shader modules) built on
// top of it. Renderer, Buffer, Image, Sampler, UniformSetFactory and
// GraphicsPipeline are all created through it, mirroring vkk_engine_t's
// role as the allocator of record for every other handle in the library.
type Engine struct {
	platform Platform

	instance            vk.Instance
	physicalDevice      vk.PhysicalDevice
	physicalDeviceProps vk.PhysicalDeviceProperties
	memProps            vk.PhysicalDeviceMemoryProperties
	device              vk.Device

	queueFamilyIndex uint32
	queueFG          vk.Queue
	queueBG          vk.Queue
	aliasedQueues    bool

	surface vk.Surface

	mem      *memoryManager
	destroyQ *destroyQueue
	transfer *transferManager
	download *downloadManager

	imageCaps [imageFormatCount]imageCapability

	mu            sync.Mutex
	shaderModules map[string]vk.ShaderModule
	pipelineCache vk.PipelineCache
	samplers      map[samplerKey]*Sampler

	deviceLost bool

	defaultRenderer *DefaultRenderer
}

// NewEngine brings up a GAPI instance and device suitable for the given
// platform and returns the Engine ready for resource creation. The
// caller is expected to follow with NewDefaultRenderer to obtain a
// swapchain-backed renderer, or NewImage/NewCompute to use the
// engine in an off-screen-only capacity.
func NewEngine(p Platform, info EngineInfo) (e *Engine, err error) {
	defer checkErr(&err)

	e = &Engine{
		platform:      p,
		shaderModules: make(map[string]vk.ShaderModule),
		samplers:      make(map[samplerKey]*Sampler),
	}

	requiredInstanceExt := safeStrings(p.InstanceExtensions())
	actualInstanceExt, ierr := instanceExtensions()
	orPanic(ierr)
	enabledInstanceExt, missing := checkExisting(actualInstanceExt, requiredInstanceExt)
	if missing > 0 {
		log.Printf("vkk: missing %d required instance extensions", missing)
	}

	var layers []string
	if info.ValidationLayer {
		wanted := safeStrings([]string{"VK_LAYER_KHRONOS_validation\x00"})
		actual, lerr := validationLayers()
		orPanic(lerr)
		layers, _ = checkExisting(actual, wanted)
	}

	appName := info.AppName
	if appName == "" {
		appName = "vkk"
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(appName),
			ApplicationVersion: info.AppVersion,
			PEngineName:        safeString("vkk\x00"),
			EngineVersion:      1,
			ApiVersion:         vk.ApiVersion10,
		},
		EnabledExtensionCount:   uint32(len(enabledInstanceExt)),
		PpEnabledExtensionNames: enabledInstanceExt,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	orPanic(newError(ret))
	e.instance = instance
	vk.InitInstance(instance)

	surface, serr := p.CreateSurface(instance)
	orPanic(serr)
	e.surface = surface

	orPanic(e.selectPhysicalDevice())
	orPanic(e.createDevice())

	e.mem = newMemoryManager(newDeviceMemoryOps(e.device))
	e.destroyQ = newDestroyQueue()
	e.computeImageCapabilities()

	xfer, xerr := newTransferManager(e)
	orPanic(xerr)
	e.transfer = xfer

	dl, derr := newDownloadManager(e)
	orPanic(derr)
	e.download = dl

	var pc vk.PipelineCache
	orPanic(newError(vk.CreatePipelineCache(e.device, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &pc)))
	e.pipelineCache = pc

	return e, nil
}

func (e *Engine) selectPhysicalDevice() error {
	var count uint32
	if ret := vk.EnumeratePhysicalDevices(e.instance, &count, nil); isError(ret) {
		return newError(ret)
	}
	if count == 0 {
		return fmt.Errorf("vkk: no physical devices")
	}
	devices := make([]vk.PhysicalDevice, count)
	if ret := vk.EnumeratePhysicalDevices(e.instance, &count, devices); isError(ret) {
		return newError(ret)
	}

	for _, gpu := range devices {
		familyIndex, ok := findGraphicsPresentQueueFamily(gpu, e.surface)
		if !ok {
			continue
		}
		e.physicalDevice = gpu
		e.queueFamilyIndex = familyIndex
		vk.GetPhysicalDeviceProperties(gpu, &e.physicalDeviceProps)
		e.physicalDeviceProps.Deref()
		vk.GetPhysicalDeviceMemoryProperties(gpu, &e.memProps)
		e.memProps.Deref()
		return nil
	}
	return fmt.Errorf("vkk: no suitable physical device")
}

// findGraphicsPresentQueueFamily returns the first queue family that is
// both graphics-capable and can present to surface. Separate present
// queues (spec.md §C item 4 territory) are intentionally not selected
// here - the default renderer falls back to a single combined queue,
// logging a warning via Engine.Background when only one exists.
func findGraphicsPresentQueueFamily(gpu vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		if props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &supported)
		if supported.B() {
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) createDevice() error {
	requiredExt := safeStrings([]string{"VK_KHR_swapchain\x00"})
	actualExt, err := deviceExtensions(e.physicalDevice)
	if err != nil {
		return err
	}
	enabledExt, missing := checkExisting(actualExt, requiredExt)
	if missing > 0 {
		return fmt.Errorf("vkk: missing %d required device extensions", missing)
	}

	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: e.queueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}

	var device vk.Device
	ret := vk.CreateDevice(e.physicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		EnabledExtensionCount:   uint32(len(enabledExt)),
		PpEnabledExtensionNames: enabledExt,
	}, nil, &device)
	if isError(ret) {
		return newError(ret)
	}
	e.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, e.queueFamilyIndex, 0, &queue)
	e.queueFG = queue
	// A single combined queue backs both Foreground and Background; real
	// separation would need a second queue in the same family or a
	// dedicated compute family, which most integrated GPUs this library
	// targets do not expose.
	e.queueBG = queue
	e.aliasedQueues = true
	return nil
}

// Foreground returns the queue draw/present work is submitted on.
func (e *Engine) Foreground() vk.Queue { return e.queueFG }

// Background returns the queue compute/transfer work not tied to a
// specific frame is submitted on. createDevice creates a single queue,
// so this always aliases Foreground and logs a warning on every call.
func (e *Engine) Background() vk.Queue {
	if e.aliasedQueues {
		warnf("no dedicated background queue, aliasing foreground queue")
	}
	return e.queueBG
}

func (e *Engine) computeImageCapabilities() {
	formatMap := [...]vk.Format{
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
	for i, f := range formatMap {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(e.physicalDevice, f, &props)
		props.Deref()
		tiling := vk.FormatFeatureFlags(props.OptimalTilingFeatures)
		e.imageCaps[i] = imageCapability{
			sampled:    tiling&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit) != 0,
			storage:    tiling&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) != 0,
			attachment: tiling&vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit) != 0,
			blitSrc:    tiling&vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit) != 0,
			blitDst:    tiling&vk.FormatFeatureFlags(vk.FormatFeatureBlitDstBit) != 0,
		}
	}
}

// ImageCapable reports whether format supports sampling on this device.
func (e *Engine) ImageCapable(format ImageFormat) bool {
	return e.imageCaps[format].sampled
}

func (e *Engine) shaderModule(name string, spirv []byte) (vk.ShaderModule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.shaderModules[name]; ok {
		return m, nil
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}
	var m vk.ShaderModule
	if ret := vk.CreateShaderModule(e.device, &info, nil, &m); isError(ret) {
		return vk.ShaderModule(vk.NullHandle), newError(ret)
	}
	e.shaderModules[name] = m
	return m, nil
}

func (e *Engine) swapchainImageCount() int {
	if e.defaultRenderer == nil {
		return 1
	}
	return len(e.defaultRenderer.images)
}

func (e *Engine) frameIndex() int {
	if e.defaultRenderer == nil {
		return 0
	}
	return e.defaultRenderer.frameIndex
}

func (e *Engine) currentTs() uint64 {
	if e.defaultRenderer == nil {
		return 0
	}
	return e.defaultRenderer.timestamp()
}

// destroyExpiry returns the destroyQueue timestamp safe to use as a
// deleted object's expireTs: the current frame plus one full swapchain
// cycle, so every command buffer that could still be referencing the
// object has retired before it is actually freed.
func (e *Engine) destroyExpiry() uint64 {
	return e.currentTs() + uint64(e.swapchainImageCount())
}

// WaitForIdle blocks until every queue on the device has drained,
// required before destroying anything the GAPI might still be reading
// (swapchain recreation, engine shutdown).
func (e *Engine) WaitForIdle() {
	vk.DeviceWaitIdle(e.device)
}

// Delete tears the engine and every cached object it owns down, including
// the cached samplers and shader modules. Any Buffer/Image the caller
// forgot to delete is leaked at the GAPI level, matching the teacher's
// non-reference-counted shutdown idiom.
func (e *Engine) Delete() {
	e.WaitForIdle()
	if e.defaultRenderer != nil {
		e.defaultRenderer.destroy()
		e.defaultRenderer = nil
	}
	e.destroyQ.close()
	e.transfer.destroy()
	e.download.destroy()

	e.mu.Lock()
	for _, m := range e.shaderModules {
		vk.DestroyShaderModule(e.device, m, nil)
	}
	for _, s := range e.samplers {
		s.destroy()
	}
	e.mu.Unlock()

	if e.pipelineCache != vk.PipelineCache(vk.NullHandle) {
		vk.DestroyPipelineCache(e.device, e.pipelineCache, nil)
	}
	if e.device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(e.device, nil)
	}
	if e.surface != vk.Surface(vk.NullHandle) {
		vk.DestroySurface(e.instance, e.surface, nil)
	}
	if e.instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(e.instance, nil)
	}
}
