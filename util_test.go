package vkk

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestNextStride(t *testing.T) {
	cases := []struct {
		name      string
		alignment uint64
		size      uint64
		want      uint64
	}{
		{"aligned exact", 16, 16, 16},
		{"rounds up once", 16, 17, 32},
		{"rounds up several", 4, 100, 128},
		{"zero alignment defaults to one", 0, 3, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := nextStride(vk.DeviceSize(c.alignment), vk.DeviceSize(c.size))
			if uint64(got) != c.want {
				t.Errorf("nextStride(%d, %d) = %d, want %d", c.alignment, c.size, got, c.want)
			}
		})
	}
}

func TestPoolCount(t *testing.T) {
	cases := []struct {
		name      string
		stride    uint64
		wantBytes func(count uint32) bool
	}{
		{"tiny stride reaches at least the min band", 64, func(count uint32) bool {
			bytes := uint64(count) * 64
			return bytes >= 2*1024*1024
		}},
		{"large stride still yields at least one slot", 32 * 1024 * 1024, func(count uint32) bool {
			return count >= 1
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			count := poolCount(c.stride)
			if !c.wantBytes(count) {
				t.Errorf("poolCount(%d) = %d, unexpected band", c.stride, count)
			}
		})
	}
}

func TestIsPow2(t *testing.T) {
	cases := []struct {
		v    uint32
		want bool
	}{
		{0, false}, {1, true}, {2, true}, {3, false}, {4, true}, {1023, false}, {1024, true},
	}
	for _, c := range cases {
		if got := isPow2(c.v); got != c.want {
			t.Errorf("isPow2(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestMipLevels(t *testing.T) {
	cases := []struct {
		w, h uint32
		want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{256, 256, 9},
		{256, 1, 9},
		{1, 256, 9},
		{1024, 512, 11},
	}
	for _, c := range cases {
		if got := mipLevels(c.w, c.h); got != c.want {
			t.Errorf("mipLevels(%d,%d) = %d, want %d", c.w, c.h, got, c.want)
		}
	}
}

func TestCheckExisting(t *testing.T) {
	actual := []string{"VK_KHR_swapchain", "VK_KHR_surface"}
	wanted := []string{"VK_KHR_swapchain", "VK_EXT_debug_report"}

	existing, missing := checkExisting(actual, wanted)
	if missing != 1 {
		t.Fatalf("missing = %d, want 1", missing)
	}
	if len(existing) != 1 || existing[0] != "VK_KHR_swapchain\x00" {
		t.Fatalf("existing = %v", existing)
	}
}
