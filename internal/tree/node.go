// Package tree builds the navigable name hierarchy shown by the explorer:
// flat dot-delimited tensor names and metadata entries in, an ordered,
// aggregated tree of group/tensor/metadata nodes out.
package tree

import (
	"fmt"

	"github.com/tensorview/tensorview/internal/model"
)

// Kind discriminates the three node variants. A node is exactly one of
// group, tensor leaf, or metadata leaf.
type Kind int

// Node variants.
const (
	KindGroup Kind = iota
	KindTensor
	KindMetadata
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindTensor:
		return "tensor"
	case KindMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so Kind serializes as its
// name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "group":
		*k = KindGroup
	case "tensor":
		*k = KindTensor
	case "metadata":
		*k = KindMetadata
	default:
		return fmt.Errorf("unknown node kind: %q", text)
	}
	return nil
}

// Node is one entry in the built hierarchy. Name is the display name: the
// path segment for groups and leaves nested under a group, the full tensor
// name for root-level leaves, the key for metadata entries.
type Node struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// Group fields. TensorCount and TotalSize aggregate over every tensor
	// leaf in the subtree, not just direct children.
	Children    []*Node `json:"children,omitempty"`
	Expanded    bool    `json:"expanded,omitempty"`
	TensorCount int     `json:"tensor_count,omitempty"`
	TotalSize   int64   `json:"total_size,omitempty"`

	// Leaf payloads, set only for the matching Kind.
	Tensor   *model.TensorInfo   `json:"tensor,omitempty"`
	Metadata *model.MetadataInfo `json:"metadata,omitempty"`
}

// IsGroup reports whether the node is a group.
func (n *Node) IsGroup() bool { return n.Kind == KindGroup }

// IsTensor reports whether the node is a tensor leaf.
func (n *Node) IsTensor() bool { return n.Kind == KindTensor }

// IsMetadata reports whether the node is a metadata leaf.
func (n *Node) IsMetadata() bool { return n.Kind == KindMetadata }

func newGroup(name string, children []*Node, expanded bool, count int, size int64) *Node {
	return &Node{
		Kind:        KindGroup,
		Name:        name,
		Children:    children,
		Expanded:    expanded,
		TensorCount: count,
		TotalSize:   size,
	}
}

func newTensorLeaf(name string, info model.TensorInfo) *Node {
	t := info
	return &Node{Kind: KindTensor, Name: name, Tensor: &t}
}

func newMetadataLeaf(info model.MetadataInfo) *Node {
	m := info
	return &Node{Kind: KindMetadata, Name: info.Name, Metadata: &m}
}
