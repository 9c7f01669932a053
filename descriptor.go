package vkk

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// UniformBinding describes one binding slot in a descriptor set layout:
// its binding index, descriptor type, and the shader stage(s) allowed to
// access it.
type UniformBinding struct {
	Binding uint32
	Type    UniformType
	Stage   Stage
	Sampler *Sampler // only meaningful for UniformTypeImage/UniformTypeImageRef
}

var descriptorTypeMap = [...]vk.DescriptorType{
	UniformTypeBuffer:     vk.DescriptorTypeUniformBuffer,
	UniformTypeStorage:    vk.DescriptorTypeStorageBuffer,
	UniformTypeImage:      vk.DescriptorTypeCombinedImageSampler,
	UniformTypeBufferRef:  vk.DescriptorTypeUniformBuffer,
	UniformTypeStorageRef: vk.DescriptorTypeStorageBuffer,
	UniformTypeImageRef:   vk.DescriptorTypeCombinedImageSampler,
}

var shaderStageMap = [...]vk.ShaderStageFlagBits{
	StageDepth:          0,
	StageVertex:         vk.ShaderStageVertexBit,
	StageFragment:       vk.ShaderStageFragmentBit,
	StageVertexFragment: vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit,
	StageCompute:        vk.ShaderStageComputeBit,
}

// UniformSetFactory owns a descriptor set layout and a growable pool of
// descriptor sets matching it, handing UniformSets out from a retired-set
// free list before ever allocating a new vk.DescriptorSet, mirroring
// libvkk's reuse-by-expired-timestamp scheme.
type UniformSetFactory struct {
	engine   *Engine
	update   UpdateMode
	bindings []UniformBinding

	layout vk.DescriptorSetLayout

	mu       sync.Mutex
	pools    []vk.DescriptorPool
	retired  []*UniformSet
	typeUsed map[vk.DescriptorType]uint32
}

const descriptorsPerPool = 64

// NewUniformSetFactory creates a descriptor set layout from bindings.
// update governs how many descriptor-set replicas each UniformSet
// allocated from this factory gets: Asynchronous factories get one
// replica per swapchain image so the default renderer can rewrite next
// frame's set without disturbing the one still in flight.
func (e *Engine) NewUniformSetFactory(update UpdateMode, bindings []UniformBinding) (usf *UniformSetFactory, err error) {
	defer checkErr(&err)

	dsBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	typeUsed := make(map[vk.DescriptorType]uint32)
	for i, b := range bindings {
		dt := descriptorTypeMap[b.Type]
		dsBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  dt,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(shaderStageMap[b.Stage]),
		}
		if b.Sampler != nil {
			dsBindings[i].PImmutableSamplers = []vk.Sampler{b.Sampler.handle}
		}
		typeUsed[dt]++
	}

	var layout vk.DescriptorSetLayout
	orPanic(newError(vk.CreateDescriptorSetLayout(e.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount:  uint32(len(dsBindings)),
		PBindings:     dsBindings,
	}, nil, &layout)))

	usf = &UniformSetFactory{
		engine:   e,
		update:   update,
		bindings: append([]UniformBinding(nil), bindings...),
		layout:   layout,
		typeUsed: typeUsed,
	}
	return usf, nil
}

func (usf *UniformSetFactory) newPool() (vk.DescriptorPool, error) {
	var sizes []vk.DescriptorPoolSize
	for dt, count := range usf.typeUsed {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            dt,
			DescriptorCount: count * descriptorsPerPool,
		})
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(usf.engine.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorsPerPool,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if isError(ret) {
		return vk.DescriptorPool(vk.NullHandle), newError(ret)
	}
	return pool, nil
}

func (usf *UniformSetFactory) allocSet() (vk.DescriptorSet, error) {
	usf.mu.Lock()
	pools := usf.pools
	usf.mu.Unlock()

	for _, pool := range pools {
		var set vk.DescriptorSet
		ret := vk.AllocateDescriptorSets(usf.engine.device, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{usf.layout},
		}, &set)
		if !isError(ret) {
			return set, nil
		}
	}

	pool, err := usf.newPool()
	if err != nil {
		return vk.DescriptorSet(vk.NullHandle), err
	}
	usf.mu.Lock()
	usf.pools = append(usf.pools, pool)
	usf.mu.Unlock()

	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(usf.engine.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{usf.layout},
	}, &set)
	if isError(ret) {
		return vk.DescriptorSet(vk.NullHandle), newError(ret)
	}
	return set, nil
}

func (usf *UniformSetFactory) destroy() {
	for _, pool := range usf.pools {
		vk.DestroyDescriptorPool(usf.engine.device, pool, nil)
	}
	vk.DestroyDescriptorSetLayout(usf.engine.device, usf.layout, nil)
}

// DeleteUniformSetFactory defers destruction of usf and every descriptor
// pool it grew.
func (e *Engine) DeleteUniformSetFactory(usf *UniformSetFactory) {
	if usf == nil {
		return
	}
	e.destroyQ.defer_(usf, e.destroyExpiry())
}

// UniformSet is one set of bound resources a pipeline can bind with
// BindUniformSet, N-way replicated when its factory's UpdateMode is
// Asynchronous.
type UniformSet struct {
	engine  *Engine
	usf     *UniformSetFactory
	set     uint32
	sets    []vk.DescriptorSet
	expires uint64
}

// NewUniformSet allocates (or reuses a retired) UniformSet for the given
// pipeline set index. It takes no attachments and writes no descriptors:
// eager bindings are written by AttachBuffer/AttachSampler, *Ref
// bindings by WriteBufferRef/WriteImageRef per frame, and a reused set
// keeps whatever descriptors it held when it was retired.
func (e *Engine) NewUniformSet(set uint32, usf *UniformSetFactory) (us *UniformSet, err error) {
	defer checkErr(&err)

	usf.mu.Lock()
	var reused *UniformSet
	if n := len(usf.retired); n > 0 {
		ets := e.currentTs()
		for i, r := range usf.retired {
			if ets >= r.expires {
				reused = r
				usf.retired = append(usf.retired[:i], usf.retired[i+1:]...)
				break
			}
		}
	}
	usf.mu.Unlock()

	if reused != nil {
		reused.set = set
		return reused, nil
	}

	count := replicaCount(usf.update, e.swapchainImageCount())
	us = &UniformSet{engine: e, usf: usf, set: set, sets: make([]vk.DescriptorSet, count)}
	for i := 0; i < count; i++ {
		s, aerr := usf.allocSet()
		orPanic(aerr)
		us.sets[i] = s
	}
	return us, nil
}

func (us *UniformSet) replicaIndex() int {
	if us.usf.update == Asynchronous {
		return us.engine.frameIndex()
	}
	return 0
}

// descriptorType looks up the vk.DescriptorType a binding index was
// declared with, so writes always match the layout entry allocSet's
// pool sizing was built against.
func (usf *UniformSetFactory) descriptorType(binding uint32) vk.DescriptorType {
	for _, b := range usf.bindings {
		if b.Binding == binding {
			return descriptorTypeMap[b.Type]
		}
	}
	return vk.DescriptorTypeUniformBuffer
}

// AttachBuffer eagerly writes a buffer binding into every replica.
func (us *UniformSet) AttachBuffer(b *Buffer, binding uint32) {
	dt := us.usf.descriptorType(binding)
	for i := range us.sets {
		writeBufferDescriptor(us.engine, us.sets[i], binding, dt, b.handles[minInt(i, len(b.handles)-1)], b.size)
	}
}

// AttachSampler eagerly writes a combined image/sampler binding into
// every replica.
func (us *UniformSet) AttachSampler(s *Sampler, img *Image, binding uint32) {
	for i := range us.sets {
		writeImageDescriptor(us.engine, us.sets[i], binding, s.handle, img.view)
	}
}

// WriteBufferRef rewrites a *Ref binding for the engine's current frame
// replica only, leaving other in-flight frames' descriptors untouched.
func (us *UniformSet) WriteBufferRef(b *Buffer, binding uint32) {
	idx := us.replicaIndex()
	dt := us.usf.descriptorType(binding)
	writeBufferDescriptor(us.engine, us.sets[idx], binding, dt, b.Handle(), b.size)
}

// WriteImageRef rewrites a *Ref image binding for the current frame
// replica only.
func (us *UniformSet) WriteImageRef(s *Sampler, img *Image, binding uint32) {
	idx := us.replicaIndex()
	writeImageDescriptor(us.engine, us.sets[idx], binding, s.handle, img.view)
}

// Handle returns the vk.DescriptorSet for the engine's current frame.
func (us *UniformSet) Handle() vk.DescriptorSet {
	return us.sets[us.replicaIndex()]
}

func writeBufferDescriptor(e *Engine, set vk.DescriptorSet, binding uint32, dt vk.DescriptorType, buf vk.Buffer, size vk.DeviceSize) {
	info := vk.DescriptorBufferInfo{Buffer: buf, Offset: 0, Range: size}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  dt,
		PBufferInfo:     []vk.DescriptorBufferInfo{info},
	}
	vk.UpdateDescriptorSets(e.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func writeImageDescriptor(e *Engine, set vk.DescriptorSet, binding uint32, sampler vk.Sampler, view vk.ImageView) {
	info := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{info},
	}
	vk.UpdateDescriptorSets(e.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// DeleteUniformSet retires us onto its factory's free list instead of
// freeing its descriptor sets outright, since the next NewUniformSet
// call for the same factory can reuse them once the current frame has
// retired.
func (e *Engine) DeleteUniformSet(us *UniformSet) {
	if us == nil {
		return
	}
	us.expires = e.destroyExpiry()
	us.usf.mu.Lock()
	us.usf.retired = append(us.usf.retired, us)
	us.usf.mu.Unlock()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
