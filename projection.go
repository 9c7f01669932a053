package vkk

import lin "github.com/xlab/linmath"

// VulkanProjectionFixup converts an OpenGL-style projection matrix (whose
// clip space has a bottom-left origin and a [-1, 1] depth range) into the
// Vulkan-style clip space a GraphicsPipeline's vertex shader expects:
// top-left origin, [0, 1] depth range.
func VulkanProjectionFixup(m *lin.Mat4x4, proj *lin.Mat4x4) {
	m.Fill(1.0)
	m.ScaleAniso(m, 1.0, -1.0, 1.0)
	m.ScaleAniso(m, 1.0, 1.0, 0.5)
	m.Translate(0.0, 0.0, 1.0)
	m.Mult(m, proj)
}
