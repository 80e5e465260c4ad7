// Package xgbtest builds small XGBoost JSON models for tests.
package xgbtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// TreeSpec is a tree in flat layout. Leaves have Left and Right set to -1
// and carry their value in SplitCond.
type TreeSpec struct {
	Left        []int32
	Right       []int32
	SplitIndex  []int
	SplitCond   []float32
	DefaultLeft []bool
	SplitType   []int
}

// Leaf is a single-leaf tree returning v.
func Leaf(v float32) TreeSpec {
	return TreeSpec{
		Left:        []int32{-1},
		Right:       []int32{-1},
		SplitIndex:  []int{0},
		SplitCond:   []float32{v},
		DefaultLeft: []bool{false},
	}
}

// Stump splits on feature at threshold: values below go to left.
func Stump(feature int, threshold, left, right float32, defaultLeft bool) TreeSpec {
	return TreeSpec{
		Left:        []int32{1, -1, -1},
		Right:       []int32{2, -1, -1},
		SplitIndex:  []int{feature, 0, 0},
		SplitCond:   []float32{threshold, left, right},
		DefaultLeft: []bool{defaultLeft, false, false},
	}
}

// ModelSpec describes a model document.
type ModelSpec struct {
	Objective    string
	BaseScore    string
	NumFeature   int
	NumClass     int
	FeatureNames []string
	FeatureTypes []string
	Trees        []TreeSpec

	// Dart wraps the trees in a dart booster with these weights.
	Dart       bool
	WeightDrop []float32

	// BoolFlags writes default_left as booleans instead of 0/1.
	BoolFlags bool
}

// JSON renders the document.
func (s ModelSpec) JSON() []byte {
	trees := make([]map[string]interface{}, len(s.Trees))
	for i, t := range s.Trees {
		var flags interface{}
		if s.BoolFlags {
			flags = t.DefaultLeft
		} else {
			ints := make([]int, len(t.DefaultLeft))
			for j, b := range t.DefaultLeft {
				if b {
					ints[j] = 1
				}
			}
			flags = ints
		}
		splitType := t.SplitType
		if splitType == nil {
			splitType = make([]int, len(t.Left))
		}
		trees[i] = map[string]interface{}{
			"id":               i,
			"left_children":    t.Left,
			"right_children":   t.Right,
			"split_indices":    t.SplitIndex,
			"split_conditions": t.SplitCond,
			"default_left":     flags,
			"split_type":       splitType,
			"tree_param": map[string]string{
				"num_deleted":      "0",
				"num_feature":      strconv.Itoa(s.NumFeature),
				"num_nodes":        strconv.Itoa(len(t.Left)),
				"size_leaf_vector": "1",
			},
		}
	}

	gbtree := map[string]interface{}{
		"name": "gbtree",
		"model": map[string]interface{}{
			"gbtree_model_param": map[string]string{
				"num_parallel_tree": "1",
				"num_trees":         strconv.Itoa(len(trees)),
			},
			"tree_info": make([]int, len(trees)),
			"trees":     trees,
		},
	}
	booster := gbtree
	if s.Dart {
		booster = map[string]interface{}{
			"name":        "dart",
			"gbtree":      gbtree,
			"weight_drop": s.WeightDrop,
		}
	}

	objective := s.Objective
	if objective == "" {
		objective = "reg:squarederror"
	}
	baseScore := s.BaseScore
	if baseScore == "" {
		baseScore = "5E-1"
	}

	learner := map[string]interface{}{
		"attributes":       map[string]string{},
		"gradient_booster": booster,
		"learner_model_param": map[string]string{
			"base_score":         baseScore,
			"boost_from_average": "1",
			"num_class":          strconv.Itoa(s.NumClass),
			"num_feature":        strconv.Itoa(s.NumFeature),
			"num_target":         "1",
		},
		"objective": map[string]interface{}{"name": objective},
	}
	if s.FeatureNames != nil {
		learner["feature_names"] = s.FeatureNames
	}
	if s.FeatureTypes != nil {
		learner["feature_types"] = s.FeatureTypes
	}

	b, err := json.Marshal(map[string]interface{}{
		"learner": learner,
		"version": []int{2, 0, 3},
	})
	if err != nil {
		panic(err)
	}
	return b
}

// Write stores the document as model.json in dir and returns its path.
func Write(tb testing.TB, dir string, s ModelSpec) string {
	tb.Helper()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, s.JSON(), 0o600); err != nil {
		tb.Fatalf("write model: %v", err)
	}
	return path
}
