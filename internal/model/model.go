// Package model defines the flat record types produced by the container
// decoders and consumed by the loader, tree builder, index, and server.
package model

// Format identifies a checkpoint container format.
type Format int

// Supported container formats.
const (
	FormatUnknown Format = iota
	FormatSafeTensors
	FormatGGUF
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatGGUF:
		return "GGUF"
	default:
		return "Unknown"
	}
}

// TensorInfo describes one tensor as reported by a decoder. It carries no
// tensor data, only the descriptor from the container header.
type TensorInfo struct {
	// Name is the dot-delimited tensor path, e.g.
	// "model.layers.12.self_attn.q_proj.weight".
	Name string `json:"name"`

	// DType is the format's type tag (e.g. "F16", "Q4_K"). Opaque here.
	DType string `json:"dtype"`

	// Shape holds the tensor dimensions in the order the container
	// stores them.
	Shape []int64 `json:"shape"`

	// SizeBytes is the on-disk payload size. Zero means the decoder
	// could not report it; the loader then estimates it from DType.
	SizeBytes int64 `json:"size_bytes"`

	// NumElements is the product of Shape (1 for a scalar/empty shape).
	NumElements int64 `json:"num_elements"`
}

// NumElementsOf returns the element count for a shape, 1 for an empty shape.
func NumElementsOf(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// MetadataInfo describes one metadata entry. Keys are not unique across
// files; duplicates are deliberately preserved.
type MetadataInfo struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	ValueType string `json:"value_type"`
}

// FileReport records the outcome of decoding a single input file. A failed
// file carries Err and contributes no records; the batch continues.
type FileReport struct {
	Path        string
	Format      Format
	TensorCount int
	MetaCount   int

	// Model and Architecture are the container's self-description
	// (general.name / general.architecture in GGUF). Empty for formats
	// that carry none.
	Model        string
	Architecture string

	Err error
}
