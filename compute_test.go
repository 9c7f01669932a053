package vkk

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct {
		count, local, want uint32
	}{
		{0, 8, 0},
		{8, 8, 1},
		{9, 8, 2},
		{1, 8, 1},
		{256, 16, 16},
		{255, 16, 16},
		{5, 0, 5},
	}
	for _, c := range cases {
		if got := ceilDiv(c.count, c.local); got != c.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", c.count, c.local, got, c.want)
		}
	}
}
