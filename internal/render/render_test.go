package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorview/tensorview/internal/loader"
	"github.com/tensorview/tensorview/internal/model"
	"github.com/tensorview/tensorview/internal/tree"
)

func buildSample() []*tree.Node {
	tensors := []model.TensorInfo{
		{Name: "model.layers.0.weight", DType: "F16", Shape: []int64{2, 3}, SizeBytes: 12, NumElements: 6},
		{Name: "model.layers.1.weight", DType: "F16", Shape: []int64{2, 3}, SizeBytes: 12, NumElements: 6},
		{Name: "head", DType: "F32", Shape: []int64{4}, SizeBytes: 16, NumElements: 4},
	}
	metadata := []model.MetadataInfo{
		{Name: "format", Value: "pt", ValueType: "string"},
	}
	return tree.BuildMixed(tensors, metadata)
}

func TestTreeHonorsExpandedHints(t *testing.T) {
	var buf strings.Builder
	Tree(&buf, buildSample(), Options{})
	out := buf.String()

	// Metadata group is collapsed by default: no entries printed.
	assert.Contains(t, out, "Metadata (0 tensors, 0 B)")
	assert.NotContains(t, out, "format: pt")

	// Top-level tensor group expands one level; nested layers stay closed.
	assert.Contains(t, out, "model (2 tensors, 24 B)")
	assert.Contains(t, out, "layers (2 tensors, 24 B)")
	assert.NotContains(t, out, "weight [F16")
}

func TestTreeAll(t *testing.T) {
	var buf strings.Builder
	Tree(&buf, buildSample(), Options{All: true})
	out := buf.String()

	assert.Contains(t, out, "format: pt")
	assert.Contains(t, out, "weight [F16, (2, 3), 12 B]")
	assert.Contains(t, out, "head [F32, (4), 16 B]")
}

func TestLabelTruncatesMetadataValue(t *testing.T) {
	n := &tree.Node{
		Kind:     tree.KindMetadata,
		Name:     "tokenizer.json",
		Metadata: &model.MetadataInfo{Name: "tokenizer.json", Value: strings.Repeat("v", 80)},
	}
	label := Label(n)
	assert.True(t, strings.HasSuffix(label, "..."))
	assert.Less(t, len(label), 60)
}

func TestLabelTruncationKeepsValidUTF8(t *testing.T) {
	n := &tree.Node{
		Kind:     tree.KindMetadata,
		Name:     "k",
		Metadata: &model.MetadataInfo{Name: "k", Value: strings.Repeat("ü", 40)},
	}
	label := Label(n)
	assert.True(t, utf8.ValidString(label))
	assert.True(t, strings.HasSuffix(label, "..."))
}

func TestSummaryListsModels(t *testing.T) {
	snap := &loader.Snapshot{
		Reports: []model.FileReport{
			{Path: "m.gguf", Model: "tiny llama", Architecture: "llama"},
			{Path: "broken.gguf", Model: "ignored", Err: assert.AnError},
		},
	}

	var buf strings.Builder
	Summary(&buf, snap)
	out := buf.String()

	assert.Contains(t, out, "Models:      tiny llama (llama)")
	assert.NotContains(t, out, "ignored")
}

func TestSummary(t *testing.T) {
	snap := &loader.Snapshot{
		Tensors: []model.TensorInfo{
			{Name: "w", NumElements: 1_500_000, SizeBytes: 1536},
		},
		Metadata:        []model.MetadataInfo{{Name: "k", Value: "v"}},
		TotalParameters: 1_500_000,
		TotalSize:       1536,
		Reports: []model.FileReport{
			{Path: "a.safetensors"},
			{Path: "b.safetensors", Err: assert.AnError},
		},
	}

	var buf strings.Builder
	Summary(&buf, snap)
	out := buf.String()

	require.Contains(t, out, "1 loaded, 1 failed")
	assert.Contains(t, out, "1.5M")
	assert.Contains(t, out, "1.5 KB")
	assert.Contains(t, out, "failed: b.safetensors")
}
