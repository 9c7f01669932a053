package vkk

// UpdateMode controls how often a Buffer's contents are expected to change
// and therefore how many GAPI-side replicas it needs.
type UpdateMode int

const (
	// Static buffers are uploaded once and never re-uploaded.
	Static UpdateMode = iota
	// Synchronous buffers may be re-uploaded from off-screen/compute contexts.
	Synchronous
	// Asynchronous buffers are re-uploaded per swapchain frame from the
	// default renderer and require N-way replication.
	Asynchronous
)

func (m UpdateMode) String() string {
	switch m {
	case Static:
		return "static"
	case Synchronous:
		return "synchronous"
	case Asynchronous:
		return "asynchronous"
	default:
		return "unknown"
	}
}

// BufferUsage names the GAPI binding point a Buffer will be used from.
type BufferUsage int

const (
	Uniform BufferUsage = iota
	Vertex
	Index
	Storage
)

// ImageFormat enumerates the pixel formats the core understands.
type ImageFormat int

const (
	FormatRGBA8888 ImageFormat = iota
	FormatRGBA4444
	FormatRGBA5551
	FormatRGB888
	FormatRGB565
	FormatRG88
	FormatR8
	FormatRGBAF32
	FormatRGBAF16
	FormatRGBF32
	FormatRGF32
	FormatRGF16
	FormatRF32
	FormatRF16
	FormatDepth1X
	FormatDepth4X
)

// imageFormatCount is the number of enumerants above; used to size the
// engine's image-capability table (16 formats x 5 capability bits).
const imageFormatCount = 16

// Stage selects the pipeline-stage bit a resource binding participates in.
type Stage int

const (
	StageDepth Stage = iota
	StageVertex
	StageFragment
	StageVertexFragment
	StageCompute
)

// UniformType selects a descriptor binding's GAPI descriptor type and
// whether it is written once at construction (eager) or every frame (ref).
type UniformType int

const (
	UniformTypeBuffer UniformType = iota
	UniformTypeStorage
	UniformTypeImage
	UniformTypeBufferRef
	UniformTypeStorageRef
	UniformTypeImageRef
)

// IsRef reports whether a binding is rewritten per frame rather than bound
// eagerly at UniformSet construction.
func (t UniformType) IsRef() bool {
	switch t {
	case UniformTypeBufferRef, UniformTypeStorageRef, UniformTypeImageRef:
		return true
	default:
		return false
	}
}

// RendererType distinguishes the four renderer specializations.
type RendererType int

const (
	RendererDefault RendererType = iota
	RendererImage
	RendererImageStream
	RendererSecondary
)

// RendererMode is the recording mode a renderer is in between begin/end.
type RendererMode int

const (
	ModeDraw RendererMode = iota
	ModeExecute
)

// Hazard classifies the producer/consumer dependency a compute dispatch
// has on a prior dispatch, driving which memory barrier (if any) precedes
// it.
type Hazard int

const (
	HazardNone Hazard = iota
	HazardRAW
	HazardWAR
	HazardAny
)

// Queue selects which of the engine's (up to) two queues an operation runs
// on.
type Queue int

const (
	Foreground Queue = iota
	Background
)
