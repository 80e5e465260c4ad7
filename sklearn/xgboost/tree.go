package xgboost

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// leafMarker is the child index XGBoost stores for leaf nodes.
const leafMarker = -1

// Tree is a regression tree in XGBoost's flat node layout. For node i,
// Left[i] == -1 marks a leaf whose value is SplitCond[i].
type Tree struct {
	Left        []int32
	Right       []int32
	SplitIndex  []uint32
	SplitCond   []float32
	DefaultLeft []bool
}

// NumNodes returns the number of nodes, leaves included.
func (t *Tree) NumNodes() int { return len(t.Left) }

// NumLeaves returns the number of leaf nodes.
func (t *Tree) NumLeaves() int {
	n := 0
	for _, l := range t.Left {
		if l == leafMarker {
			n++
		}
	}
	return n
}

// leaf walks the tree for row and returns the index of the reached leaf.
func (t *Tree) leaf(row []float32, missing float32) int32 {
	nid := int32(0)
	for t.Left[nid] != leafMarker {
		fval := row[t.SplitIndex[nid]]
		switch {
		case isMissing(fval, missing):
			if t.DefaultLeft[nid] {
				nid = t.Left[nid]
			} else {
				nid = t.Right[nid]
			}
		case fval < t.SplitCond[nid]:
			nid = t.Left[nid]
		default:
			nid = t.Right[nid]
		}
	}
	return nid
}

// Predict returns the leaf value reached by row.
func (t *Tree) Predict(row []float32, missing float32) float32 {
	return t.SplitCond[t.leaf(row, missing)]
}

func isMissing(v, missing float32) bool {
	return v != v || v == missing
}

// validate checks array lengths, child and feature indices, and that every
// node is reachable from the root exactly once.
func (t *Tree) validate(numFeature int) error {
	n := len(t.Left)
	if n == 0 {
		return errors.NewValueError("xgboost.Tree", "tree has no nodes")
	}
	for name, got := range map[string]int{
		"right_children":   len(t.Right),
		"split_indices":    len(t.SplitIndex),
		"split_conditions": len(t.SplitCond),
		"default_left":     len(t.DefaultLeft),
	} {
		if got != n {
			return errors.NewValueError("xgboost.Tree", fmt.Sprintf("%s has %d entries, want %d", name, got, n))
		}
	}

	seen := make([]bool, n)
	stack := []int32{0}
	for len(stack) > 0 {
		nid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[nid] {
			return errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d is reachable twice", nid))
		}
		seen[nid] = true

		l, r := t.Left[nid], t.Right[nid]
		if l == leafMarker {
			if r != leafMarker {
				return errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d has only a right child", nid))
			}
			if v := float64(t.SplitCond[nid]); math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError("xgboost.Tree", fmt.Sprintf("leaf %d has non-finite value %v", nid, v))
			}
			continue
		}
		if l <= 0 || int(l) >= n || r <= 0 || int(r) >= n {
			return errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d has children (%d, %d) outside [1, %d)", nid, l, r, n))
		}
		if numFeature > 0 && int(t.SplitIndex[nid]) >= numFeature {
			return errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d splits on feature %d, model has %d", nid, t.SplitIndex[nid], numFeature))
		}
		stack = append(stack, r, l)
	}
	return nil
}
