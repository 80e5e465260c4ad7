package xgboost

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/soilcd/pkg/errors"
)

// JSONModel is the top-level document written by Booster.save_model("*.json").
type JSONModel struct {
	Learner JSONLearner `json:"learner"`
	Version []int       `json:"version"`
}

// JSONLearner holds the learner section. Numeric parameters are stored as
// strings by XGBoost.
type JSONLearner struct {
	FeatureNames      []string              `json:"feature_names"`
	FeatureTypes      []string              `json:"feature_types"`
	GradientBooster   JSONGradientBooster   `json:"gradient_booster"`
	LearnerModelParam JSONLearnerModelParam `json:"learner_model_param"`
	Objective         JSONObjective         `json:"objective"`
}

// JSONLearnerModelParam carries the global model parameters.
type JSONLearnerModelParam struct {
	BaseScore  string `json:"base_score"`
	NumClass   string `json:"num_class"`
	NumFeature string `json:"num_feature"`
	NumTarget  string `json:"num_target"`
}

// JSONObjective names the training objective.
type JSONObjective struct {
	Name string `json:"name"`
}

// JSONGradientBooster is either a gbtree booster (Model set) or a dart
// booster wrapping a gbtree (GBTree and WeightDrop set).
type JSONGradientBooster struct {
	Name       string               `json:"name"`
	Model      *JSONGBTreeModel     `json:"model,omitempty"`
	GBTree     *JSONGradientBooster `json:"gbtree,omitempty"`
	WeightDrop []float32            `json:"weight_drop,omitempty"`
}

// JSONGBTreeModel is the tree ensemble.
type JSONGBTreeModel struct {
	Param struct {
		NumTrees        string `json:"num_trees"`
		NumParallelTree string `json:"num_parallel_tree"`
	} `json:"gbtree_model_param"`
	Trees    []JSONTree `json:"trees"`
	TreeInfo []int      `json:"tree_info"`
}

// JSONTree is one tree in XGBoost's flat array layout.
type JSONTree struct {
	ID              int       `json:"id"`
	LeftChildren    []int32   `json:"left_children"`
	RightChildren   []int32   `json:"right_children"`
	SplitIndices    []int64   `json:"split_indices"`
	SplitConditions []float32 `json:"split_conditions"`
	DefaultLeft     flagArray `json:"default_left"`
	SplitType       []int     `json:"split_type"`
	TreeParam       struct {
		NumNodes       string `json:"num_nodes"`
		NumFeature     string `json:"num_feature"`
		SizeLeafVector string `json:"size_leaf_vector"`
	} `json:"tree_param"`
}

// flagArray accepts both encodings of default_left used across XGBoost
// releases: 0/1 integers and booleans.
type flagArray []bool

func (f *flagArray) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch s := string(bytes.TrimSpace(r)); s {
		case "true", "1":
			out[i] = true
		case "false", "0":
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, s)
		}
	}
	*f = out
	return nil
}

// ParseJSONModel decodes a model document.
func ParseJSONModel(data []byte) (*JSONModel, error) {
	var m JSONModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewModelError("xgboost.ParseJSONModel", "malformed model JSON", err)
	}
	return &m, nil
}

// intParam parses a string-encoded integer parameter. An empty string yields def.
func intParam(name, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewValidationError(name, "not an integer", s)
	}
	return v, nil
}

// parseBaseScore accepts "5E-1" and the vector form "[5E-1]" written by
// newer releases.
func parseBaseScore(s string) (float32, error) {
	if s == "" {
		return 0.5, nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		parts := strings.Split(strings.Trim(s, "[]"), ",")
		if len(parts) != 1 {
			return 0, errors.NewValidationError("base_score", "multi-output base score is not supported", s)
		}
		s = strings.TrimSpace(parts[0])
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, errors.NewValidationError("base_score", "not a number", s)
	}
	return float32(v), nil
}

// convertJSONModel builds a Booster from the decoded document.
func convertJSONModel(jm *JSONModel) (*Booster, error) {
	const op = "xgboost.Load"
	l := &jm.Learner

	obj := Objective(l.Objective.Name)
	if !obj.Supported() {
		return nil, errors.NewModelError(op, fmt.Sprintf("unsupported objective %q", obj), errors.ErrNotImplemented)
	}

	numFeature, err := intParam("num_feature", l.LearnerModelParam.NumFeature, 0)
	if err != nil {
		return nil, errors.NewModelError(op, "invalid learner_model_param", err)
	}
	numClass, err := intParam("num_class", l.LearnerModelParam.NumClass, 0)
	if err != nil {
		return nil, errors.NewModelError(op, "invalid learner_model_param", err)
	}
	numTarget, err := intParam("num_target", l.LearnerModelParam.NumTarget, 1)
	if err != nil {
		return nil, errors.NewModelError(op, "invalid learner_model_param", err)
	}
	if numClass > 1 || numTarget > 1 {
		return nil, errors.NewModelError(op, fmt.Sprintf("multi-output models are not supported (num_class=%d, num_target=%d)", numClass, numTarget), errors.ErrNotImplemented)
	}
	for i, ft := range l.FeatureTypes {
		if ft == "c" {
			return nil, errors.NewModelError(op, fmt.Sprintf("feature %d is categorical", i), errors.ErrNotImplemented)
		}
	}

	baseScore, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, errors.NewModelError(op, "invalid base_score", err)
	}
	baseMargin, err := obj.ProbToMargin(baseScore)
	if err != nil {
		return nil, errors.NewModelError(op, "invalid base_score", err)
	}

	gb := &l.GradientBooster
	var weights []float32
	switch gb.Name {
	case "gbtree":
	case "dart":
		if gb.GBTree == nil {
			return nil, errors.NewModelError(op, "dart booster without gbtree section", errors.ErrEmptyData)
		}
		weights = gb.WeightDrop
		gb = gb.GBTree
	default:
		return nil, errors.NewModelError(op, fmt.Sprintf("unsupported booster %q", gb.Name), errors.ErrNotImplemented)
	}
	if gb.Model == nil {
		return nil, errors.NewModelError(op, "booster has no model section", errors.ErrEmptyData)
	}

	jsonTrees := gb.Model.Trees
	if weights != nil && len(weights) != len(jsonTrees) {
		return nil, errors.NewModelError(op, "dart weight_drop does not match tree count",
			errors.NewDimensionError("xgboost.weight_drop", len(jsonTrees), len(weights), 0))
	}

	trees := make([]Tree, 0, len(jsonTrees))
	for i := range jsonTrees {
		t, err := convertJSONTree(&jsonTrees[i], numFeature)
		if err != nil {
			return nil, errors.NewModelError(op, fmt.Sprintf("tree %d", i), err)
		}
		trees = append(trees, t)
	}

	return &Booster{
		objective:    obj,
		trees:        trees,
		treeWeights:  weights,
		baseScore:    baseScore,
		baseMargin:   baseMargin,
		numFeature:   numFeature,
		featureNames: l.FeatureNames,
		version:      jm.Version,
	}, nil
}

func convertJSONTree(jt *JSONTree, numFeature int) (Tree, error) {
	sizeLeaf, err := intParam("size_leaf_vector", jt.TreeParam.SizeLeafVector, 1)
	if err != nil {
		return Tree{}, err
	}
	if sizeLeaf > 1 {
		return Tree{}, errors.NewValueError("xgboost.Tree", "vector leaves are not supported")
	}
	for i, st := range jt.SplitType {
		if st != 0 {
			return Tree{}, errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d has a categorical split", i))
		}
	}

	idx := make([]uint32, len(jt.SplitIndices))
	for i, v := range jt.SplitIndices {
		if v < 0 {
			return Tree{}, errors.NewValueError("xgboost.Tree", fmt.Sprintf("node %d has negative split index %d", i, v))
		}
		idx[i] = uint32(v)
	}

	t := Tree{
		Left:        jt.LeftChildren,
		Right:       jt.RightChildren,
		SplitIndex:  idx,
		SplitCond:   jt.SplitConditions,
		DefaultLeft: jt.DefaultLeft,
	}
	if err := t.validate(numFeature); err != nil {
		return Tree{}, err
	}
	return t, nil
}
