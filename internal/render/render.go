// Package render prints built trees and batch summaries as text. It is one
// of the presentation consumers of the tree package; the HTTP explorer is
// the other.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/tensorview/tensorview/internal/format"
	"github.com/tensorview/tensorview/internal/loader"
	"github.com/tensorview/tensorview/internal/tree"
)

// metadata values longer than this are elided in tree lines; the full value
// is still available in JSON output.
const maxInlineValueLen = 30

// Options controls tree rendering.
type Options struct {
	// All prints every level. When false, groups built with Expanded=false
	// render as a single summary line.
	All bool
}

// Tree writes the node list as an indented tree with box-drawing branches.
func Tree(w io.Writer, nodes []*tree.Node, opts Options) {
	for i, n := range nodes {
		renderNode(w, n, "", i == len(nodes)-1, opts)
	}
}

func renderNode(w io.Writer, n *tree.Node, indent string, last bool, opts Options) {
	branch, childIndent := "├── ", indent+"│   "
	if last {
		branch, childIndent = "└── ", indent+"    "
	}

	fmt.Fprintf(w, "%s%s%s\n", indent, branch, Label(n))

	if !n.IsGroup() {
		return
	}
	if !opts.All && !n.Expanded {
		return
	}
	for i, child := range n.Children {
		renderNode(w, child, childIndent, i == len(n.Children)-1, opts)
	}
}

// Label renders the one-line description of a node.
func Label(n *tree.Node) string {
	switch n.Kind {
	case tree.KindGroup:
		return fmt.Sprintf("%s (%d tensors, %s)",
			n.Name, n.TensorCount, format.Size(n.TotalSize))
	case tree.KindTensor:
		info := n.Tensor
		return fmt.Sprintf("%s [%s, %s, %s]",
			n.Name, info.DType, format.Shape(info.Shape), format.Size(info.SizeBytes))
	case tree.KindMetadata:
		return fmt.Sprintf("%s: %s", n.Name, format.Truncate(n.Metadata.Value, maxInlineValueLen))
	default:
		return n.Name
	}
}

// Summary writes the batch totals for a loaded snapshot.
func Summary(w io.Writer, snap *loader.Snapshot) {
	fmt.Fprintf(w, "Files:       %d loaded, %d failed\n",
		snap.Files(), len(snap.Reports)-snap.Files())
	fmt.Fprintf(w, "Tensors:     %d\n", len(snap.Tensors))
	fmt.Fprintf(w, "Metadata:    %d entries\n", len(snap.Metadata))
	fmt.Fprintf(w, "Parameters:  %s\n", format.Parameters(snap.TotalParameters))
	fmt.Fprintf(w, "Total size:  %s\n", format.Size(snap.TotalSize))
	if models := snap.Models(); len(models) > 0 {
		fmt.Fprintf(w, "Models:      %s\n", strings.Join(models, ", "))
	}

	for _, r := range snap.Reports {
		if r.Err != nil {
			fmt.Fprintf(w, "  failed: %s: %v\n", r.Path, r.Err)
		}
	}
}
