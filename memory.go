package vkk

import vk "github.com/vulkan-go/vulkan"

// memory is a handle to one slot of a memoryChunk - the GAPI-side
// allocation backing a Buffer or Image. It carries no Vulkan resources of
// its own; chunk owns the vk.DeviceMemory and offset is the slot's byte
// offset within it.
type memory struct {
	chunk  *memoryChunk
	offset vk.DeviceSize
}

func newMemory(chunk *memoryChunk, offset vk.DeviceSize) *memory {
	return &memory{chunk: chunk, offset: offset}
}
