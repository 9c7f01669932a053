package vkk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words
// vk.ShaderModuleCreateInfo.PCode expects, mirroring the teacher's
// shader.go sliceUint32 helper.
func sliceUint32(b []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// safeString null-terminates s for passing to the GAPI, mirroring the
// teacher's safeString helper used throughout platform.go/core.go.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

// safeStrings null-terminates every element of in.
func safeStrings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = safeString(s)
	}
	return out
}

// checkExisting partitions wanted into the subset present in actual,
// returning that subset (each null-terminated for the GAPI) and the count
// missing - mirrors the filtering vulkan-go-asche/platform.go performs
// against InstanceExtensions()/DeviceExtensions() results. A wanted name
// may already carry its trailing NUL; it is ignored when matching.
func checkExisting(actual, wanted []string) (existing []string, missing int) {
	set := make(map[string]struct{}, len(actual))
	for _, a := range actual {
		set[a] = struct{}{}
	}
	for _, w := range wanted {
		name := w
		if n := len(name); n > 0 && name[n-1] == 0 {
			name = name[:n-1]
		}
		if _, ok := set[name]; ok {
			existing = append(existing, safeString(name))
		} else {
			missing++
		}
	}
	return existing, missing
}

// nextStride doubles align until it is at least size, the pool-stride
// computation from spec.md §4.1 step 2 / original_source
// core/vkk_memoryManager.c's computeStride loop.
func nextStride(alignment, size vk.DeviceSize) vk.DeviceSize {
	stride := alignment
	if stride == 0 {
		stride = 1
	}
	for stride < size {
		stride *= 2
	}
	return stride
}

// poolCount picks a chunk's slot count so count*stride falls in
// [2MiB, 16MiB], per spec.md §4.1 step 3 / original_source
// core/vkk_memoryManager.c's computePoolCount.
func poolCount(stride uint64) uint32 {
	const (
		mib = 1024 * 1024
		min = 2 * mib
		max = 16 * mib
	)
	if stride == 0 {
		return 1
	}
	count := max / stride
	size := stride * count
	if size >= max {
		count = max / stride
	} else if size < min {
		count = min / stride
	}
	if count == 0 {
		count = 1
	}
	return uint32(count)
}

// isPow2 reports whether v is a power of two and non-zero.
func isPow2(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// log2Ceil returns ceil(log2(v)) for v > 0.
func log2Ceil(v uint32) uint32 {
	if v <= 1 {
		return 0
	}
	n := uint32(0)
	x := v - 1
	for x > 0 {
		x >>= 1
		n++
	}
	return n
}

// mipLevels computes the mip chain length for a power-of-two sized image,
// per spec.md §3 Image: max(ceil(log2 w), ceil(log2 h)) + 1.
func mipLevels(w, h uint32) uint32 {
	lw := log2Ceil(w)
	lh := log2Ceil(h)
	if lw > lh {
		return lw + 1
	}
	return lh + 1
}
