package vkk

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// deviceMemoryOps is the real gpuMemoryOps implementation, issuing
// vkAllocateMemory/vkFreeMemory/vkMapMemory directly against one device -
// the idiom vulkan-go-asche/extensions.go's CreateBuffer uses for the same
// calls, generalized here to stand on its own rather than being inlined
// into buffer creation.
type deviceMemoryOps struct {
	device vk.Device
}

func newDeviceMemoryOps(device vk.Device) *deviceMemoryOps {
	return &deviceMemoryOps{device: device}
}

func (o *deviceMemoryOps) allocate(typeIndex uint32, size vk.DeviceSize) (vk.DeviceMemory, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var mem vk.DeviceMemory
	if ret := vk.AllocateMemory(o.device, &info, nil, &mem); isError(ret) {
		return vk.DeviceMemory(vk.NullHandle), newError(ret)
	}
	return mem, nil
}

func (o *deviceMemoryOps) free(mem vk.DeviceMemory) {
	if mem == vk.DeviceMemory(vk.NullHandle) {
		return
	}
	vk.FreeMemory(o.device, mem, nil)
}

func (o *deviceMemoryOps) mapWrite(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error {
	var ptr unsafe.Pointer
	if ret := vk.MapMemory(o.device, mem, offset, size, 0, &ptr); isError(ret) {
		return newError(ret)
	}
	defer vk.UnmapMemory(o.device, mem)

	dst := unsafe.Slice((*byte)(ptr), int(size))
	if len(buf) != len(dst) {
		return fmt.Errorf("vkk: write size mismatch: buf=%d slot=%d", len(buf), len(dst))
	}
	copy(dst, buf)
	return nil
}

func (o *deviceMemoryOps) mapRead(mem vk.DeviceMemory, offset, size vk.DeviceSize, buf []byte) error {
	var ptr unsafe.Pointer
	if ret := vk.MapMemory(o.device, mem, offset, size, 0, &ptr); isError(ret) {
		return newError(ret)
	}
	defer vk.UnmapMemory(o.device, mem)

	src := unsafe.Slice((*byte)(ptr), int(size))
	if len(buf) != len(src) {
		return fmt.Errorf("vkk: read size mismatch: buf=%d slot=%d", len(buf), len(src))
	}
	copy(buf, src)
	return nil
}
