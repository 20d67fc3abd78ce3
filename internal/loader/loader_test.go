package loader

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorview/tensorview/internal/gguf"
	"github.com/tensorview/tensorview/internal/model"
)

// writeSafeTensors creates a SafeTensors file whose header holds the given
// tensors as dtype/shape pairs.
func writeSafeTensors(t *testing.T, path string, tensors map[string]struct {
	DType string
	Shape []int64
}) {
	t.Helper()

	headerMap := make(map[string]interface{})
	offset := int64(0)
	for name, desc := range tensors {
		n := model.NumElementsOf(desc.Shape)
		headerMap[name] = map[string]interface{}{
			"dtype":        desc.DType,
			"shape":        desc.Shape,
			"data_offsets": []int64{offset, offset + n*4},
		}
		offset += n * 4
	}

	headerJSON, err := json.Marshal(headerMap)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeGGUF creates a tensor-free GGUF file carrying only the model's
// self-description metadata.
func writeGGUF(t *testing.T, path, arch, name string) {
	t.Helper()

	buf := new(bytes.Buffer)
	order := binary.LittleEndian
	write := func(v interface{}) { require.NoError(t, binary.Write(buf, order, v)) }
	writeStr := func(s string) {
		write(uint64(len(s)))
		buf.WriteString(s)
	}

	write(gguf.MagicGGUFLE)
	write(gguf.Version3)
	write(uint64(0)) // tensor count
	write(uint64(2)) // metadata kv count
	writeStr("general.architecture")
	write(uint32(gguf.ValueTypeString))
	writeStr(arch)
	writeStr("general.name")
	write(uint32(gguf.ValueTypeString))
	writeStr(name)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadSucceedsWithLiveContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.safetensors")
	writeSafeTensors(t, path, map[string]struct {
		DType string
		Shape []int64
	}{
		"w": {DType: "F32", Shape: []int64{4}},
	})

	// The caller's context is live, so Load must return a snapshot even
	// though the group's derived context is cancelled once Wait returns.
	snap, err := Load(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Tensors, 1)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(cancelled, []string{path}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadGGUFModelDescription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.gguf")
	writeGGUF(t, path, "llama", "tiny llama")

	snap, err := Load(context.Background(), []string{path}, nil)
	require.NoError(t, err)

	require.Len(t, snap.Reports, 1)
	assert.Equal(t, "tiny llama", snap.Reports[0].Model)
	assert.Equal(t, "llama", snap.Reports[0].Architecture)
	assert.Equal(t, []string{"tiny llama (llama)"}, snap.Models())
}

func TestLoadHeuristicSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.safetensors")
	writeSafeTensors(t, path, map[string]struct {
		DType string
		Shape []int64
	}{
		"half":   {DType: "F16", Shape: []int64{100}},
		"single": {DType: "F32", Shape: []int64{100}},
		"byte":   {DType: "U8", Shape: []int64{100}},
		"double": {DType: "F64", Shape: []int64{100}},
	})

	snap, err := Load(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	require.Len(t, snap.Tensors, 4)

	sizes := make(map[string]int64)
	for _, tn := range snap.Tensors {
		sizes[tn.Name] = tn.SizeBytes
	}
	assert.Equal(t, int64(200), sizes["half"], "F16 counts 2 bytes per element")
	assert.Equal(t, int64(400), sizes["single"])
	assert.Equal(t, int64(100), sizes["byte"])
	assert.Equal(t, int64(800), sizes["double"])

	assert.Equal(t, int64(400), snap.TotalParameters)
	assert.Equal(t, int64(1500), snap.TotalSize)
}

func TestLoadFirstWinsDedup(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "shard1.safetensors")
	second := filepath.Join(dir, "shard2.safetensors")

	writeSafeTensors(t, first, map[string]struct {
		DType string
		Shape []int64
	}{
		"shared.weight": {DType: "F16", Shape: []int64{10}},
	})
	writeSafeTensors(t, second, map[string]struct {
		DType string
		Shape []int64
	}{
		"shared.weight": {DType: "F32", Shape: []int64{99}},
		"extra.weight":  {DType: "F32", Shape: []int64{5}},
	})

	snap, err := Load(context.Background(), []string{first, second}, nil)
	require.NoError(t, err)

	require.Len(t, snap.Tensors, 2)
	var shared *model.TensorInfo
	for i := range snap.Tensors {
		if snap.Tensors[i].Name == "shared.weight" {
			shared = &snap.Tensors[i]
		}
	}
	require.NotNil(t, shared)
	assert.Equal(t, "F16", shared.DType, "first file's record wins")
	assert.Equal(t, int64(10), shared.NumElements)

	// Deduped tensor counts once toward totals.
	assert.Equal(t, int64(15), snap.TotalParameters)
}

func TestLoadBadFileDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "corrupt.safetensors")
	good := filepath.Join(dir, "good.safetensors")

	require.NoError(t, os.WriteFile(bad, []byte{0xFF}, 0o644))
	writeSafeTensors(t, good, map[string]struct {
		DType string
		Shape []int64
	}{
		"w": {DType: "F32", Shape: []int64{4}},
	})

	snap, err := Load(context.Background(), []string{bad, good}, nil)
	require.NoError(t, err, "a malformed file never aborts the load")

	assert.Len(t, snap.Tensors, 1)
	require.Len(t, snap.Reports, 2)
	assert.Error(t, snap.Reports[0].Err)
	assert.NoError(t, snap.Reports[1].Err)
	assert.Equal(t, 1, snap.Files())
}

func TestLoadUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	snap, err := Load(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Tensors)
	require.Len(t, snap.Reports, 1)
	assert.Error(t, snap.Reports[0].Err)
}

func TestLoadManyFilesDeterministic(t *testing.T) {
	// Parallel decode must still merge in input order: every file repeats
	// the shared name, and the first file's dtype must win every run.
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 8; i++ {
		p := filepath.Join(dir, fmt.Sprintf("f%d.safetensors", i))
		dtype := "F32"
		if i == 0 {
			dtype = "F16"
		}
		writeSafeTensors(t, p, map[string]struct {
			DType string
			Shape []int64
		}{
			"shared": {DType: dtype, Shape: []int64{2}},
		})
		paths = append(paths, p)
	}

	for run := 0; run < 5; run++ {
		snap, err := Load(context.Background(), paths, nil)
		require.NoError(t, err)
		require.Len(t, snap.Tensors, 1)
		assert.Equal(t, "F16", snap.Tensors[0].DType)
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, model.FormatSafeTensors, DetectFormat("x/model.safetensors"))
	assert.Equal(t, model.FormatSafeTensors, DetectFormat("UPPER.SAFETENSORS"))
	assert.Equal(t, model.FormatGGUF, DetectFormat("q.gguf"))
	assert.Equal(t, model.FormatUnknown, DetectFormat("notes.txt"))
}

func TestHeuristicBytesPerElement(t *testing.T) {
	tests := []struct {
		dtype string
		want  int64
	}{
		{"F16", 2},
		{"BF16", 2},
		{"U8", 1},
		{"I64", 8},
		{"F32", 4},
		{"BOOL", 4},
		// "16" is checked before "8" or "64".
		{"F8_E4M3", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeuristicBytesPerElement(tt.dtype), "dtype %s", tt.dtype)
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.safetensors")
	writeSafeTensors(t, path, map[string]struct {
		DType string
		Shape []int64
	}{
		"w": {DType: "F32", Shape: []int64{3}},
	})

	tensors, metadata, report := DecodeFile(path)
	require.NoError(t, report.Err)
	assert.Equal(t, model.FormatSafeTensors, report.Format)
	assert.Len(t, tensors, 1)
	assert.Empty(t, metadata)
	assert.Equal(t, 1, report.TensorCount)
}
