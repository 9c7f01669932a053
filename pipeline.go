package vkk

import vk "github.com/vulkan-go/vulkan"

// Primitive selects the input assembly topology a GraphicsPipeline draws.
type Primitive int

const (
	PrimitiveTriangleList Primitive = iota
	PrimitiveTriangleStrip
	PrimitiveTriangleFan
)

var primitiveMap = [...]vk.PrimitiveTopology{
	PrimitiveTriangleList:  vk.PrimitiveTopologyTriangleList,
	PrimitiveTriangleStrip: vk.PrimitiveTopologyTriangleStrip,
	PrimitiveTriangleFan:   vk.PrimitiveTopologyTriangleFan,
}

// VertexFormat selects a vertex attribute's component type.
type VertexFormat int

const (
	VertexFormatFloat VertexFormat = iota
	VertexFormatInt
	VertexFormatShort
)

// BlendMode selects the color blend equation a GraphicsPipeline's single
// attachment uses.
type BlendMode int

const (
	BlendDisabled BlendMode = iota
	BlendTransparency
)

// VertexBufferInfo describes one vertex attribute's binding location and
// component layout. Components is the attribute's element count (e.g. 3
// for a vec3 position); every vertex buffer is tightly packed per its own
// attribute (libvkk never interleaves attributes within one buffer).
type VertexBufferInfo struct {
	Location   uint32
	Components uint32
	Format     VertexFormat
}

func vertexAttributeFormat(components uint32, f VertexFormat) vk.Format {
	switch f {
	case VertexFormatInt:
		switch components {
		case 1:
			return vk.FormatR32Sint
		case 2:
			return vk.FormatR32g32Sint
		case 3:
			return vk.FormatR32g32b32Sint
		default:
			return vk.FormatR32g32b32a32Sint
		}
	case VertexFormatShort:
		switch components {
		case 1:
			return vk.FormatR16Sint
		case 2:
			return vk.FormatR16g16Sint
		case 3:
			return vk.FormatR16g16b16Sint
		default:
			return vk.FormatR16g16b16a16Sint
		}
	default:
		switch components {
		case 1:
			return vk.FormatR32Sfloat
		case 2:
			return vk.FormatR32g32Sfloat
		case 3:
			return vk.FormatR32g32b32Sfloat
		default:
			return vk.FormatR32g32b32a32Sfloat
		}
	}
}

func vertexComponentSize(components uint32, f VertexFormat) uint32 {
	unit := uint32(4)
	if f == VertexFormatShort {
		unit = 2
	}
	return components * unit
}

// GraphicsPipelineInfo fully describes a graphics pipeline: the
// generalization of vulkan-go-asche/pipeline.go's PipelineBuilder, which
// hardcoded a single triangle pipeline, into libvkk's data-driven
// vkk_graphicsPipelineInfo_t.
type GraphicsPipelineInfo struct {
	Layout           *PipelineLayout
	VSPath, FSPath   string
	VertexBuffers    []VertexBufferInfo
	Primitive        Primitive
	PrimitiveRestart bool
	CullBack         bool
	DepthTest        bool
	DepthWrite       bool
	Blend            BlendMode
}

// GraphicsPipeline is a bound-once vk.Pipeline built from a
// GraphicsPipelineInfo against a renderer's render pass.
type GraphicsPipeline struct {
	engine *Engine
	layout *PipelineLayout
	handle vk.Pipeline
}

// NewGraphicsPipeline builds a graphics pipeline for renderPass/subpass -
// every renderer specialization builds its own render pass and passes it
// here, since libvkk ties a pipeline to the renderer it was created for.
func (e *Engine) NewGraphicsPipeline(info GraphicsPipelineInfo, renderPass vk.RenderPass, subpass uint32, msaa vk.SampleCountFlagBits) (gp *GraphicsPipeline, err error) {
	defer checkErr(&err)

	vs, verr := loadShaderFile(info.VSPath)
	orPanic(verr)
	fs, ferr := loadShaderFile(info.FSPath)
	orPanic(ferr)
	vsModule, vmerr := e.shaderModule(info.VSPath, vs)
	orPanic(vmerr)
	fsModule, fmerr := e.shaderModule(info.FSPath, fs)
	orPanic(fmerr)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vsModule,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fsModule,
			PName:  safeString("main"),
		},
	}

	bindings := make([]vk.VertexInputBindingDescription, len(info.VertexBuffers))
	attrs := make([]vk.VertexInputAttributeDescription, len(info.VertexBuffers))
	for i, vb := range info.VertexBuffers {
		bindings[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    vertexComponentSize(vb.Components, vb.Format),
			InputRate: vk.VertexInputRateVertex,
		}
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: vb.Location,
			Binding:  uint32(i),
			Format:   vertexAttributeFormat(vb.Components, vb.Format),
		}
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	restart := vk.False
	if info.PrimitiveRestart {
		restart = vk.True
	}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               primitiveMap[info.Primitive],
		PrimitiveRestartEnable: restart,
	}

	cullMode := vk.CullModeFlags(vk.CullModeNone)
	if info.CullBack {
		cullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    cullMode,
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: msaa,
	}

	var blendAttachment vk.PipelineColorBlendAttachmentState
	if info.Blend == BlendTransparency {
		blendAttachment = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vk.True,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}
	} else {
		blendAttachment = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	depthTest, depthWrite := vk.False, vk.False
	if info.DepthTest {
		depthTest = vk.True
	}
	if info.DepthWrite {
		depthWrite = vk.True
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  depthTest,
		DepthWriteEnable: depthWrite,
		DepthCompareOp:   vk.CompareOpLessOrEqual,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              info.Layout.handle,
		RenderPass:          renderPass,
		Subpass:             subpass,
	}

	handles := make([]vk.Pipeline, 1)
	orPanic(newError(vk.CreateGraphicsPipelines(e.device, e.pipelineCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, handles)))

	return &GraphicsPipeline{engine: e, layout: info.Layout, handle: handles[0]}, nil
}

func (gp *GraphicsPipeline) destroy() {
	if gp.handle != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(gp.engine.device, gp.handle, nil)
	}
}

// DeleteGraphicsPipeline defers gp's destruction.
func (e *Engine) DeleteGraphicsPipeline(gp *GraphicsPipeline) {
	if gp == nil {
		return
	}
	e.destroyQ.defer_(gp, e.destroyExpiry())
}
