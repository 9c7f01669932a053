package vkk

import vk "github.com/vulkan-go/vulkan"

// Platform is the window-system glue Engine needs but does not own: the
// caller creates the vk.Surface (GLFW, Android, Wayland, ...) and reports
// its current pixel size. This replaces the C library's process-global
// platform callback table with an explicit constructor argument, since Go
// has no equivalent of weak-linked platform-specific object files.
type Platform interface {
	// InstanceExtensions lists the instance extensions the windowing
	// system requires (e.g. VK_KHR_surface plus a platform-specific
	// surface extension).
	InstanceExtensions() []string
	// CreateSurface creates a vk.Surface for instance. Called once
	// during NewEngine.
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// SurfaceSize reports the current drawable size in pixels.
	SurfaceSize() (width, height uint32)
}

// EngineInfo names the application the Engine is being created for and
// which optional GAPI validation layers to request - mirrors
// vkk_engine_new's (app, app_name, app_version, resource) signature:
// AppName and AppVersion carry app_name/app_version; there is no field
// for resource.
type EngineInfo struct {
	AppName         string
	AppVersion      uint32
	ValidationLayer bool
}
