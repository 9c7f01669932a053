//go:build glfw_example

package vkk

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// glfwPlatform is the reference Platform implementation a desktop caller
// wires up: it owns the window, hands the engine a vk.Surface, and reports
// the window's current framebuffer size for swapchain (re)creation. Guarded
// behind the glfw_example build tag so the default build of this module
// never drags a windowing toolkit into its import graph - window creation
// is explicitly the caller's job, not the core's.
type glfwPlatform struct {
	window *glfw.Window
}

// newGLFWPlatform creates a GLFW window in Vulkan mode (no client API,
// since GLFW's OpenGL context creation has nothing to do with Vulkan) and
// wraps it as a Platform.
func newGLFWPlatform(title string, width, height int) (*glfwPlatform, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return &glfwPlatform{window: window}, nil
}

func (p *glfwPlatform) InstanceExtensions() []string {
	return p.window.GetRequiredInstanceExtensions()
}

func (p *glfwPlatform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

func (p *glfwPlatform) SurfaceSize() (width, height uint32) {
	w, h := p.window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *glfwPlatform) destroy() {
	p.window.Destroy()
	glfw.Terminate()
}
