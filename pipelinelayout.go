package vkk

import vk "github.com/vulkan-go/vulkan"

// PipelineLayout combines one or more UniformSetFactory descriptor set
// layouts into the vk.PipelineLayout a GraphicsPipeline or compute
// pipeline binds against, set index matching the UniformSetFactory's
// position in the array.
type PipelineLayout struct {
	engine *Engine
	usf    []*UniformSetFactory
	handle vk.PipelineLayout
}

// NewPipelineLayout builds a pipeline layout from an ordered list of
// uniform set factories; usf[i] becomes descriptor set i.
func (e *Engine) NewPipelineLayout(usf []*UniformSetFactory) (pl *PipelineLayout, err error) {
	defer checkErr(&err)

	layouts := make([]vk.DescriptorSetLayout, len(usf))
	for i, f := range usf {
		layouts[i] = f.layout
	}

	var handle vk.PipelineLayout
	orPanic(newError(vk.CreatePipelineLayout(e.device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}, nil, &handle)))

	return &PipelineLayout{engine: e, usf: append([]*UniformSetFactory(nil), usf...), handle: handle}, nil
}

func (pl *PipelineLayout) destroy() {
	if pl.handle != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(pl.engine.device, pl.handle, nil)
	}
}

// DeletePipelineLayout defers pl's destruction.
func (e *Engine) DeletePipelineLayout(pl *PipelineLayout) {
	if pl == nil {
		return
	}
	e.destroyQ.defer_(pl, e.destroyExpiry())
}
