// Package safetensors decodes SafeTensors container headers into flat
// tensor and metadata records. Tensor payloads are never read: the whole
// file description lives in the JSON header.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tensorview/tensorview/internal/model"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxHeaderSize rejects files whose declared header would be absurd.
const maxHeaderSize = 100 * 1024 * 1024

// tensorEntry is one tensor descriptor from the JSON header.
type tensorEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end]
}

// header is the parsed JSON header: string metadata under __metadata__,
// everything else a tensor descriptor keyed by name.
type header struct {
	Metadata map[string]string
	Tensors  map[string]tensorEntry
}

func (h *header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]tensorEntry)
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var entry tensorEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = entry
	}

	return nil
}

// Decode reads the header of the SafeTensors file at path and returns its
// tensor descriptors and __metadata__ entries. Tensor order follows the
// header key set sorted lexicographically so repeated decodes of the same
// file are deterministic.
//
// SizeBytes is left unset on the returned tensors: the container's
// data_offsets describe packed storage, while the explorer sizes tensors
// through the loader's declared dtype heuristic so both container formats
// report comparable (approximate) figures.
func Decode(path string) ([]model.TensorInfo, []model.MetadataInfo, error) {
	//nolint:gosec // G304: path comes from the user's file arguments.
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Read-only file.
	}()

	return decode(file)
}

func decode(r io.Reader) ([]model.TensorInfo, []model.MetadataInfo, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var h header
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, nil, fmt.Errorf("parse header JSON: %w", err)
	}

	names := make([]string, 0, len(h.Tensors))
	for name := range h.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	tensors := make([]model.TensorInfo, 0, len(names))
	for _, name := range names {
		entry := h.Tensors[name]
		tensors = append(tensors, model.TensorInfo{
			Name:        name,
			DType:       entry.DType,
			Shape:       entry.Shape,
			NumElements: model.NumElementsOf(entry.Shape),
		})
	}

	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	metadata := make([]model.MetadataInfo, 0, len(keys))
	for _, k := range keys {
		metadata = append(metadata, model.MetadataInfo{
			Name:      k,
			Value:     h.Metadata[k],
			ValueType: "string",
		})
	}

	return tensors, metadata, nil
}
