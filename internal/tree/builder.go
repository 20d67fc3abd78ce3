package tree

import (
	"sort"
	"strings"

	"github.com/tensorview/tensorview/internal/model"
)

// MetadataGroupName is the display name of the synthetic group that holds
// file-level metadata entries. It is always the first root node when any
// metadata is present.
const MetadataGroupName = "Metadata"

// BuildMixed builds the full explorer tree from flat tensor and metadata
// records. Metadata becomes a single collapsed group pinned first; tensors
// are grouped recursively by dot-delimited prefix. Sibling order is natural
// sort everywhere. The result is a pure function of its inputs: rebuilding
// from the same records yields a structurally identical tree.
func BuildMixed(tensors []model.TensorInfo, metadata []model.MetadataInfo) []*Node {
	var roots []*Node

	if len(metadata) > 0 {
		children := make([]*Node, 0, len(metadata))
		for _, m := range metadata {
			children = append(children, newMetadataLeaf(m))
		}
		sort.SliceStable(children, func(i, j int) bool {
			return NaturalLess(children[i].Name, children[j].Name)
		})
		roots = append(roots, newGroup(MetadataGroupName, children, false, 0, 0))
	}

	roots = append(roots, Build(tensors)...)
	return roots
}

// Build builds the tensor hierarchy alone. Tensors whose name contains no
// dot become root-level leaves; the rest are bucketed by first segment and
// expanded one level by default.
func Build(tensors []model.TensorInfo) []*Node {
	buckets := make(map[string][]model.TensorInfo)
	var rootLeaves []model.TensorInfo
	var order []string

	for _, t := range tensors {
		prefix, _, found := strings.Cut(t.Name, ".")
		if !found {
			rootLeaves = append(rootLeaves, t)
			continue
		}
		if _, ok := buckets[prefix]; !ok {
			order = append(order, prefix)
		}
		buckets[prefix] = append(buckets[prefix], t)
	}

	nodes := make([]*Node, 0, len(order)+len(rootLeaves))
	for _, t := range rootLeaves {
		nodes = append(nodes, newTensorLeaf(t.Name, t))
	}
	for _, prefix := range order {
		group := buckets[prefix]
		nodes = append(nodes, newGroup(
			prefix,
			buildSubtree(group, prefix),
			true,
			len(group),
			sumSize(group),
		))
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return NaturalLess(nodes[i].Name, nodes[j].Name)
	})
	return nodes
}

// buildSubtree expands one prefix bucket. Each level strips the accumulated
// prefix, attaches tensors with no remaining dot as direct leaves, and
// recurses on the next segment for the rest, so recursion always terminates:
// every level consumes exactly one path segment.
func buildSubtree(tensors []model.TensorInfo, prefix string) []*Node {
	buckets := make(map[string][]model.TensorInfo)
	var direct []*Node
	var order []string

	for _, t := range tensors {
		remaining := strings.TrimPrefix(t.Name, prefix+".")
		seg, _, found := strings.Cut(remaining, ".")
		if !found {
			direct = append(direct, newTensorLeaf(remaining, t))
			continue
		}
		if _, ok := buckets[seg]; !ok {
			order = append(order, seg)
		}
		buckets[seg] = append(buckets[seg], t)
	}

	result := direct
	for _, seg := range order {
		group := buckets[seg]
		result = append(result, newGroup(
			seg,
			buildSubtree(group, prefix+"."+seg),
			false,
			len(group),
			sumSize(group),
		))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return NaturalLess(result[i].Name, result[j].Name)
	})
	return result
}

func sumSize(tensors []model.TensorInfo) int64 {
	var total int64
	for _, t := range tensors {
		total += t.SizeBytes
	}
	return total
}

// Filter returns the records whose name contains query, comparing
// case-insensitively. An empty query returns the inputs unchanged. The tree
// is always rebuilt from the filtered lists rather than patched in place.
func Filter(tensors []model.TensorInfo, metadata []model.MetadataInfo, query string) ([]model.TensorInfo, []model.MetadataInfo) {
	if query == "" {
		return tensors, metadata
	}
	q := strings.ToLower(query)

	var ft []model.TensorInfo
	for _, t := range tensors {
		if strings.Contains(strings.ToLower(t.Name), q) {
			ft = append(ft, t)
		}
	}
	var fm []model.MetadataInfo
	for _, m := range metadata {
		if strings.Contains(strings.ToLower(m.Name), q) {
			fm = append(fm, m)
		}
	}
	return ft, fm
}
