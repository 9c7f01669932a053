package vkk

import vk "github.com/vulkan-go/vulkan"

var bufferUsageMap = [...]vk.BufferUsageFlagBits{
	Uniform: vk.BufferUsageUniformBufferBit,
	Vertex:  vk.BufferUsageVertexBufferBit,
	Index:   vk.BufferUsageIndexBufferBit,
	Storage: vk.BufferUsageStorageBufferBit,
}

// Buffer is a GPU buffer, replicated once per frame-in-flight when its
// UpdateMode is Asynchronous so the renderer can rewrite frame N+1's copy
// while frame N's is still in flight on the GAPI.
type Buffer struct {
	engine *Engine
	update UpdateMode
	usage  BufferUsage
	size   vk.DeviceSize

	handles []vk.Buffer
	mem     []*memory
}

// replicaCount returns how many GAPI-side copies update needs, given how
// many images the default renderer's swapchain currently has.
func replicaCount(update UpdateMode, swapchainImages int) int {
	if update == Asynchronous {
		if swapchainImages < 1 {
			return 1
		}
		return swapchainImages
	}
	return 1
}

// NewBuffer allocates a Buffer of size bytes, optionally initialized from
// buf (buf may be nil to leave the contents undefined).
func (e *Engine) NewBuffer(update UpdateMode, usage BufferUsage, size vk.DeviceSize, buf []byte) (b *Buffer, err error) {
	defer checkErr(&err)

	count := replicaCount(update, e.swapchainImageCount())
	b = &Buffer{engine: e, update: update, usage: usage, size: size}
	b.handles = make([]vk.Buffer, count)
	b.mem = make([]*memory, count)

	for i := 0; i < count; i++ {
		info := vk.BufferCreateInfo{
			SType:                 vk.StructureTypeBufferCreateInfo,
			Size:                  size,
			Usage:                 vk.BufferUsageFlags(bufferUsageMap[usage]),
			SharingMode:           vk.SharingModeExclusive,
			QueueFamilyIndexCount: 1,
			PQueueFamilyIndices:   []uint32{e.queueFamilyIndex},
		}
		var handle vk.Buffer
		orPanic(newError(vk.CreateBuffer(e.device, &info, nil, &handle)))
		b.handles[i] = handle

		var reqs vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(e.device, handle, &reqs)
		reqs.Deref()
		typeIndex, ok := findMemoryType(e.memProps, reqs.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if !ok {
			orPanic(errNoMemoryType)
		}
		m, allocErr := e.mem.alloc(typeIndex, reqs.Size, reqs.Alignment)
		orPanic(allocErr)
		orPanic(newError(vk.BindBufferMemory(e.device, handle, m.chunk.mem, m.offset)))
		if buf != nil {
			orPanic(e.mem.write(m, 0, buf))
		}
		b.mem[i] = m
	}
	return b, nil
}

// Update rewrites the GAPI-side copy for the engine's current frame index
// (Asynchronous buffers) or the single shared copy (Static/Synchronous).
func (b *Buffer) Update(buf []byte) error {
	idx := 0
	if b.update == Asynchronous {
		idx = b.engine.frameIndex()
	}
	return b.engine.mem.write(b.mem[idx], 0, buf)
}

// Handle returns the vk.Buffer backing the engine's current frame.
func (b *Buffer) Handle() vk.Buffer {
	idx := 0
	if b.update == Asynchronous {
		idx = b.engine.frameIndex()
	}
	return b.handles[idx]
}

func (b *Buffer) Size() vk.DeviceSize { return b.size }

func (b *Buffer) destroy() {
	for i, h := range b.handles {
		if h != vk.Buffer(vk.NullHandle) {
			vk.DestroyBuffer(b.engine.device, h, nil)
		}
		b.engine.mem.free(b.mem[i])
	}
}

// DeleteBuffer defers b's destruction until no in-flight frame can still
// reference it.
func (e *Engine) DeleteBuffer(b *Buffer) {
	if b == nil {
		return
	}
	e.destroyQ.defer_(b, e.destroyExpiry())
}
