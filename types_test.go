package vkk

import "testing"

func TestUpdateModeString(t *testing.T) {
	cases := []struct {
		m    UpdateMode
		want string
	}{
		{Static, "static"},
		{Synchronous, "synchronous"},
		{Asynchronous, "asynchronous"},
		{UpdateMode(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.m.String(); got != c.want {
			t.Errorf("UpdateMode(%d).String() = %q, want %q", c.m, got, c.want)
		}
	}
}

func TestUniformTypeIsRef(t *testing.T) {
	cases := []struct {
		t    UniformType
		want bool
	}{
		{UniformTypeBuffer, false},
		{UniformTypeStorage, false},
		{UniformTypeImage, false},
		{UniformTypeBufferRef, true},
		{UniformTypeStorageRef, true},
		{UniformTypeImageRef, true},
	}
	for _, c := range cases {
		if got := c.t.IsRef(); got != c.want {
			t.Errorf("UniformType(%d).IsRef() = %v, want %v", c.t, got, c.want)
		}
	}
}
