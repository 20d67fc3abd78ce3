// Package gguf parses GGUF container files into typed metadata entries and
// tensor descriptors.
//
// GGUF (GGML Universal Format) is the file format used by llama.cpp for
// storing quantized LLM models. The explorer reads only the header, metadata
// key-value section, and tensor descriptor table; tensor payloads stay on
// disk.
//
// Specification: https://github.com/ggerganov/ggml/blob/master/docs/gguf.md
package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic bytes for GGUF format.
const (
	MagicGGUFLE uint32 = 0x46554747 // "GGUF" little-endian.
	MagicGGUFBE uint32 = 0x47475546 // "GGUF" big-endian (reversed).
)

// Version constants.
const (
	Version1 uint32 = 1
	Version2 uint32 = 2
	Version3 uint32 = 3 // Current version.
)

// DefaultAlignment is the default alignment for tensor data.
const DefaultAlignment = 32

// ValueType represents the type of a metadata value.
type ValueType uint32

// Metadata value types as defined in GGUF specification.
const (
	ValueTypeUint8   ValueType = 0
	ValueTypeInt8    ValueType = 1
	ValueTypeUint16  ValueType = 2
	ValueTypeInt16   ValueType = 3
	ValueTypeUint32  ValueType = 4
	ValueTypeInt32   ValueType = 5
	ValueTypeFloat32 ValueType = 6
	ValueTypeBool    ValueType = 7
	ValueTypeString  ValueType = 8
	ValueTypeArray   ValueType = 9
	ValueTypeUint64  ValueType = 10
	ValueTypeInt64   ValueType = 11
	ValueTypeFloat64 ValueType = 12
)

// String returns the string representation of the value type.
func (t ValueType) String() string {
	names := map[ValueType]string{
		ValueTypeUint8:   "uint8",
		ValueTypeInt8:    "int8",
		ValueTypeUint16:  "uint16",
		ValueTypeInt16:   "int16",
		ValueTypeUint32:  "uint32",
		ValueTypeInt32:   "int32",
		ValueTypeFloat32: "float32",
		ValueTypeBool:    "bool",
		ValueTypeString:  "string",
		ValueTypeArray:   "array",
		ValueTypeUint64:  "uint64",
		ValueTypeInt64:   "int64",
		ValueTypeFloat64: "float64",
	}
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// GGMLType represents the data type of tensor elements.
type GGMLType uint32

// GGML tensor types (quantization formats).
// Note: Names use underscores to match GGML specification exactly (e.g., Q4_K, not Q4K).
//
//nolint:revive // Underscores in names match GGML specification.
const (
	GGMLTypeF32  GGMLType = 0
	GGMLTypeF16  GGMLType = 1
	GGMLTypeQ4_0 GGMLType = 2
	GGMLTypeQ4_1 GGMLType = 3
	// Types 4, 5 are deprecated (Q4_2, Q4_3).
	GGMLTypeQ5_0    GGMLType = 6
	GGMLTypeQ5_1    GGMLType = 7
	GGMLTypeQ8_0    GGMLType = 8
	GGMLTypeQ8_1    GGMLType = 9
	GGMLTypeQ2_K    GGMLType = 10
	GGMLTypeQ3_K    GGMLType = 11
	GGMLTypeQ4_K    GGMLType = 12
	GGMLTypeQ5_K    GGMLType = 13
	GGMLTypeQ6_K    GGMLType = 14
	GGMLTypeQ8_K    GGMLType = 15
	GGMLTypeIQ2_XXS GGMLType = 16
	GGMLTypeIQ2_XS  GGMLType = 17
	GGMLTypeIQ3_XXS GGMLType = 18
	GGMLTypeIQ1_S   GGMLType = 19
	GGMLTypeIQ4_NL  GGMLType = 20
	GGMLTypeIQ3_S   GGMLType = 21
	GGMLTypeIQ2_S   GGMLType = 22
	GGMLTypeIQ4_XS  GGMLType = 23
	GGMLTypeI8      GGMLType = 24
	GGMLTypeI16     GGMLType = 25
	GGMLTypeI32     GGMLType = 26
	GGMLTypeI64     GGMLType = 27
	GGMLTypeF64     GGMLType = 28
	GGMLTypeBF16    GGMLType = 29
)

// TypeTrait contains metadata about a GGML type.
type TypeTrait struct {
	BlockSize int // Number of elements per block.
	TypeSize  int // Size in bytes per block.
	Quantized bool
}

// typeTraits maps GGML types to their traits.
var typeTraits = map[GGMLType]TypeTrait{
	GGMLTypeF32:     {BlockSize: 1, TypeSize: 4, Quantized: false},
	GGMLTypeF16:     {BlockSize: 1, TypeSize: 2, Quantized: false},
	GGMLTypeQ4_0:    {BlockSize: 32, TypeSize: 18, Quantized: true},
	GGMLTypeQ4_1:    {BlockSize: 32, TypeSize: 20, Quantized: true},
	GGMLTypeQ5_0:    {BlockSize: 32, TypeSize: 22, Quantized: true},
	GGMLTypeQ5_1:    {BlockSize: 32, TypeSize: 24, Quantized: true},
	GGMLTypeQ8_0:    {BlockSize: 32, TypeSize: 34, Quantized: true},
	GGMLTypeQ8_1:    {BlockSize: 32, TypeSize: 36, Quantized: true},
	GGMLTypeQ2_K:    {BlockSize: 256, TypeSize: 84, Quantized: true},
	GGMLTypeQ3_K:    {BlockSize: 256, TypeSize: 110, Quantized: true},
	GGMLTypeQ4_K:    {BlockSize: 256, TypeSize: 144, Quantized: true},
	GGMLTypeQ5_K:    {BlockSize: 256, TypeSize: 176, Quantized: true},
	GGMLTypeQ6_K:    {BlockSize: 256, TypeSize: 210, Quantized: true},
	GGMLTypeQ8_K:    {BlockSize: 256, TypeSize: 292, Quantized: true},
	GGMLTypeIQ2_XXS: {BlockSize: 256, TypeSize: 66, Quantized: true},
	GGMLTypeIQ2_XS:  {BlockSize: 256, TypeSize: 74, Quantized: true},
	GGMLTypeIQ3_XXS: {BlockSize: 256, TypeSize: 98, Quantized: true},
	GGMLTypeIQ1_S:   {BlockSize: 256, TypeSize: 50, Quantized: true},
	GGMLTypeIQ4_NL:  {BlockSize: 32, TypeSize: 18, Quantized: true},
	GGMLTypeIQ3_S:   {BlockSize: 256, TypeSize: 110, Quantized: true},
	GGMLTypeIQ2_S:   {BlockSize: 256, TypeSize: 82, Quantized: true},
	GGMLTypeIQ4_XS:  {BlockSize: 256, TypeSize: 136, Quantized: true},
	GGMLTypeI8:      {BlockSize: 1, TypeSize: 1, Quantized: false},
	GGMLTypeI16:     {BlockSize: 1, TypeSize: 2, Quantized: false},
	GGMLTypeI32:     {BlockSize: 1, TypeSize: 4, Quantized: false},
	GGMLTypeI64:     {BlockSize: 1, TypeSize: 8, Quantized: false},
	GGMLTypeF64:     {BlockSize: 1, TypeSize: 8, Quantized: false},
	GGMLTypeBF16:    {BlockSize: 1, TypeSize: 2, Quantized: false},
}

// Trait returns the type trait for this GGML type.
func (t GGMLType) Trait() TypeTrait {
	if trait, ok := typeTraits[t]; ok {
		return trait
	}
	return TypeTrait{BlockSize: 1, TypeSize: 0, Quantized: false}
}

// IsQuantized returns true if the type is a quantized format.
func (t GGMLType) IsQuantized() bool {
	return t.Trait().Quantized
}

// ggmlTypeNames maps GGML types to their string names.
var ggmlTypeNames = map[GGMLType]string{
	GGMLTypeF32:     "F32",
	GGMLTypeF16:     "F16",
	GGMLTypeQ4_0:    "Q4_0",
	GGMLTypeQ4_1:    "Q4_1",
	GGMLTypeQ5_0:    "Q5_0",
	GGMLTypeQ5_1:    "Q5_1",
	GGMLTypeQ8_0:    "Q8_0",
	GGMLTypeQ8_1:    "Q8_1",
	GGMLTypeQ2_K:    "Q2_K",
	GGMLTypeQ3_K:    "Q3_K",
	GGMLTypeQ4_K:    "Q4_K",
	GGMLTypeQ5_K:    "Q5_K",
	GGMLTypeQ6_K:    "Q6_K",
	GGMLTypeQ8_K:    "Q8_K",
	GGMLTypeIQ2_XXS: "IQ2_XXS",
	GGMLTypeIQ2_XS:  "IQ2_XS",
	GGMLTypeIQ3_XXS: "IQ3_XXS",
	GGMLTypeIQ1_S:   "IQ1_S",
	GGMLTypeIQ4_NL:  "IQ4_NL",
	GGMLTypeIQ3_S:   "IQ3_S",
	GGMLTypeIQ2_S:   "IQ2_S",
	GGMLTypeIQ4_XS:  "IQ4_XS",
	GGMLTypeI8:      "I8",
	GGMLTypeI16:     "I16",
	GGMLTypeI32:     "I32",
	GGMLTypeI64:     "I64",
	GGMLTypeF64:     "F64",
	GGMLTypeBF16:    "BF16",
}

// String returns the string representation of the GGML type.
func (t GGMLType) String() string {
	if name, ok := ggmlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", t)
}

// RowSize calculates the size in bytes for a row of elements.
func (t GGMLType) RowSize(elements int) int {
	trait := t.Trait()
	if trait.BlockSize == 0 {
		return 0
	}
	numBlocks := (elements + trait.BlockSize - 1) / trait.BlockSize
	return numBlocks * trait.TypeSize
}

// Header represents the GGUF file header.
type Header struct {
	Magic           uint32
	Version         uint32
	TensorCount     uint64
	MetadataKVCount uint64
}

// TensorDesc describes one tensor in the file.
type TensorDesc struct {
	Name       string
	NDims      uint32
	Dimensions []uint64
	Type       GGMLType
	Offset     uint64 // Offset from start of tensor data section.
}

// NumElements returns the total number of elements in the tensor. An empty
// dimension list counts as a single scalar element.
func (t *TensorDesc) NumElements() int64 {
	n := int64(1)
	for _, d := range t.Dimensions {
		n *= int64(d) //nolint:gosec // G115: practical tensor dims fit int64.
	}
	return n
}

// SizeBytes returns the exact on-disk size of the tensor data, including
// block-quantized layouts.
func (t *TensorDesc) SizeBytes() int64 {
	return int64(t.Type.RowSize(int(t.NumElements())))
}

// MetadataKV represents a key-value pair in the metadata section. Entries
// keep file order; keys are not required to be unique.
type MetadataKV struct {
	Key       string
	ValueType ValueType
	Value     interface{}
}

// File represents a parsed GGUF file.
type File struct {
	Header    Header
	KVs       []MetadataKV
	Tensors   []TensorDesc
	Alignment int

	// Calculated offsets.
	TensorDataOffset int64

	// Source info.
	FilePath string
	FileSize int64
}

// KV returns the first metadata value for key, or nil.
func (f *File) KV(key string) interface{} {
	for i := range f.KVs {
		if f.KVs[i].Key == key {
			return f.KVs[i].Value
		}
	}
	return nil
}

// Architecture returns the model architecture (e.g., "llama", "gpt2").
func (f *File) Architecture() string {
	if arch, ok := f.KV("general.architecture").(string); ok {
		return arch
	}
	return ""
}

// Name returns the model name.
func (f *File) Name() string {
	if name, ok := f.KV("general.name").(string); ok {
		return name
	}
	return ""
}

// alignOffset calculates the aligned offset.
func alignOffset(offset int64, alignment int) int64 {
	if alignment <= 0 {
		alignment = DefaultAlignment
	}
	return offset + int64((alignment-int(offset%int64(alignment)))%alignment)
}

// readString reads a GGUF string (length-prefixed, NOT null-terminated).
func readString(r io.Reader, order binary.ByteOrder) (string, error) {
	var length uint64
	if err := binary.Read(r, order, &length); err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}

	// Sanity check: limit string length to 1MB.
	if length > 1<<20 {
		return "", fmt.Errorf("string too long: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("read string data: %w", err)
	}

	return string(data), nil
}
