package vkk

import vk "github.com/vulkan-go/vulkan"

// instanceExtensions lists every instance extension the loader reports as
// available, mirroring vulkan-go-asche/extensions.go's InstanceExtensions.
func instanceExtensions() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, nil); isError(ret) {
		return nil, newError(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateInstanceExtensionProperties("", &count, list); isError(ret) {
		return nil, newError(ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// deviceExtensions lists every device extension gpu reports as available.
func deviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil); isError(ret) {
		return nil, newError(ret)
	}
	list := make([]vk.ExtensionProperties, count)
	if ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list); isError(ret) {
		return nil, newError(ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// validationLayers lists every instance validation layer the loader
// reports as available.
func validationLayers() ([]string, error) {
	var count uint32
	if ret := vk.EnumerateInstanceLayerProperties(&count, nil); isError(ret) {
		return nil, newError(ret)
	}
	list := make([]vk.LayerProperties, count)
	if ret := vk.EnumerateInstanceLayerProperties(&count, list); isError(ret) {
		return nil, newError(ret)
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// findMemoryType returns the index of a memory type on props matching
// typeBits and carrying every flag in want, mirroring
// vulkan-go-asche/extensions.go's FindRequiredMemoryType.
func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if vk.MemoryPropertyFlagBits(props.MemoryTypes[i].PropertyFlags)&want == want {
			return i, true
		}
	}
	return 0, false
}
