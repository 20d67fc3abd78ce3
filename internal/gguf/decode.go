package gguf

import (
	"fmt"

	"github.com/tensorview/tensorview/internal/format"
	"github.com/tensorview/tensorview/internal/model"
)

// maxValueDisplayLen caps how much of a metadata value is carried into the
// display records. Large token tables would otherwise dominate the view.
const maxValueDisplayLen = 100

// Flatten converts the parsed tensor descriptors into flat records. Tensor
// sizes are exact, computed from the GGML type traits (block-quantized
// layouts included).
func Flatten(file *File) []model.TensorInfo {
	tensors := make([]model.TensorInfo, 0, len(file.Tensors))
	for i := range file.Tensors {
		desc := &file.Tensors[i]
		shape := make([]int64, len(desc.Dimensions))
		for j, d := range desc.Dimensions {
			shape[j] = int64(d) //nolint:gosec // G115: practical tensor dims fit int64.
		}
		tensors = append(tensors, model.TensorInfo{
			Name:        desc.Name,
			DType:       desc.Type.String(),
			Shape:       shape,
			SizeBytes:   desc.SizeBytes(),
			NumElements: desc.NumElements(),
		})
	}
	return tensors
}

// FlattenMetadata converts the metadata section into flat records, keeping
// file order. Values are rendered to strings and truncated for display.
func FlattenMetadata(file *File) []model.MetadataInfo {
	metadata := make([]model.MetadataInfo, 0, len(file.KVs))
	for _, kv := range file.KVs {
		metadata = append(metadata, model.MetadataInfo{
			Name:      kv.Key,
			Value:     FormatValue(kv.Value),
			ValueType: kv.ValueType.String(),
		})
	}
	return metadata
}

// FormatValue renders a metadata value for display, truncating anything
// longer than maxValueDisplayLen.
func FormatValue(v interface{}) string {
	return format.Truncate(fmt.Sprintf("%v", v), maxValueDisplayLen)
}
