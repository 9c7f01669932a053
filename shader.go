package vkk

import "os"

// loadShaderFile reads a compiled SPIR-V module from disk, mirroring
// vulkan-go-asche/shader.go's LoadShaderModule minus the immediate
// vk.CreateShaderModule call - Engine.shaderModule does that part so it
// can cache by name.
func loadShaderFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
