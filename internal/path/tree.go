// Package path expands dot-separated field paths like "cycle.branchId" into
// nested structures used for filtering and ordering through relations.
package path

import (
	"maps"
	"slices"
	"strings"
)

// Tree is an immutable nested structure keyed by path segment. Every Set
// returns a new tree; the receiver and its subtrees are never modified.
type Tree[L any] map[string]Node[L]

// Node holds the leaf stored at a segment and/or the subtree below it.
type Node[L any] struct {
	Leaf    L
	HasLeaf bool
	Sub     Tree[L]
}

// MergeFunc combines an existing leaf with a new one at the same path.
type MergeFunc[L any] func(prev, next L) L

// Split splits a dot-path into its segments.
func Split(p string) []string {
	return strings.Split(p, ".")
}

// Depth returns the number of segments in a dot-path.
func Depth(p string) int {
	return strings.Count(p, ".") + 1
}

// Nest builds {a: {b: {c: leaf}}} for the path "a.b.c".
func Nest[L any](p string, leaf L) Tree[L] {
	var t Tree[L]
	return t.Set(p, leaf, nil)
}

// Set returns a copy of t with leaf stored at p. An existing leaf at p is
// combined through merge, or replaced when merge is nil. Sibling keys at every
// level are carried over untouched.
func (t Tree[L]) Set(p string, leaf L, merge MergeFunc[L]) Tree[L] {
	return t.set(Split(p), leaf, merge)
}

func (t Tree[L]) set(segs []string, leaf L, merge MergeFunc[L]) Tree[L] {
	out := make(Tree[L], len(t)+1)
	maps.Copy(out, t)

	node := out[segs[0]]
	if len(segs) == 1 {
		if node.HasLeaf && merge != nil {
			leaf = merge(node.Leaf, leaf)
		}
		node.Leaf = leaf
		node.HasLeaf = true
	} else {
		node.Sub = node.Sub.set(segs[1:], leaf, merge)
	}
	out[segs[0]] = node
	return out
}

// Get returns the leaf stored at p.
func (t Tree[L]) Get(p string) (L, bool) {
	var zero L
	cur := t
	segs := Split(p)
	for i, s := range segs {
		node, ok := cur[s]
		if !ok {
			return zero, false
		}
		if i == len(segs)-1 {
			return node.Leaf, node.HasLeaf
		}
		cur = node.Sub
	}
	return zero, false
}

// Keys returns the top-level keys in lexical order.
func (t Tree[L]) Keys() []string {
	return slices.Sorted(maps.Keys(t))
}

// Map renders the tree as plain nested maps, mainly for logging and tests.
// A node carrying both a leaf and a subtree keeps its leaf under "".
func (t Tree[L]) Map() map[string]any {
	out := make(map[string]any, len(t))
	for k, node := range t {
		switch {
		case node.HasLeaf && len(node.Sub) == 0:
			out[k] = node.Leaf
		case !node.HasLeaf:
			out[k] = node.Sub.Map()
		default:
			sub := node.Sub.Map()
			sub[""] = node.Leaf
			out[k] = sub
		}
	}
	return out
}
