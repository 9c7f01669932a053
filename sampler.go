package vkk

import vk "github.com/vulkan-go/vulkan"

// SamplerFilter selects nearest or linear filtering.
type SamplerFilter int

const (
	FilterNearest SamplerFilter = iota
	FilterLinear
)

// SamplerMipmapMode selects how a sampler interpolates between mip levels.
type SamplerMipmapMode int

const (
	MipmapNearest SamplerMipmapMode = iota
	MipmapLinear
)

var samplerFilterMap = [...]vk.Filter{vk.FilterNearest, vk.FilterLinear}
var samplerMipmapMap = [...]vk.SamplerMipmapMode{vk.SamplerMipmapModeNearest, vk.SamplerMipmapModeLinear}

// samplerKey lets the engine cache and reuse identically configured
// samplers instead of creating a fresh vk.Sampler per Image, mirroring
// vkk_sampler_t's role as an engine-owned, reference-counted object.
type samplerKey struct {
	minFilter SamplerFilter
	magFilter SamplerFilter
	mipmap    SamplerMipmapMode
}

// Sampler is an engine-owned GAPI sampler, shared by every NewSampler
// call with the same filter/mipmap configuration.
type Sampler struct {
	engine  *Engine
	key     samplerKey
	handle  vk.Sampler
	refs    int
}

func newSampler(e *Engine, key samplerKey) (*Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               samplerFilterMap[key.magFilter],
		MinFilter:               samplerFilterMap[key.minFilter],
		MipmapMode:              samplerMipmapMap[key.mipmap],
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MinLod:                  0,
		MaxLod:                  1024,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
	}
	var handle vk.Sampler
	if ret := vk.CreateSampler(e.device, &info, nil, &handle); isError(ret) {
		return nil, newError(ret)
	}
	return &Sampler{engine: e, key: key, handle: handle}, nil
}

func (s *Sampler) destroy() {
	if s.handle != vk.Sampler(vk.NullHandle) {
		vk.DestroySampler(s.engine.device, s.handle, nil)
		s.handle = vk.Sampler(vk.NullHandle)
	}
}

// NewSampler returns the engine's shared Sampler for this filter
// configuration, creating it on first use.
func (e *Engine) NewSampler(minFilter, magFilter SamplerFilter, mipmap SamplerMipmapMode) (*Sampler, error) {
	key := samplerKey{minFilter: minFilter, magFilter: magFilter, mipmap: mipmap}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.samplers[key]; ok {
		s.refs++
		return s, nil
	}
	s, err := newSampler(e, key)
	if err != nil {
		return nil, err
	}
	s.refs = 1
	e.samplers[key] = s
	return s, nil
}

// DeleteSampler drops a reference; the underlying vk.Sampler is deferred
// for destruction once the last reference is released and any in-flight
// frame has retired.
func (e *Engine) DeleteSampler(s *Sampler) {
	if s == nil {
		return
	}
	e.mu.Lock()
	s.refs--
	dead := s.refs <= 0
	if dead {
		delete(e.samplers, s.key)
	}
	e.mu.Unlock()
	if dead {
		e.destroyQ.defer_(s, e.destroyExpiry())
	}
}
