package components

import (
	"fmt"
	"math"
	"sort"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
)

// Names of the tree estimators.
const (
	DecisionTreeClassifierName = "Decision Tree Classifier"
	DecisionTreeRegressorName  = "Decision Tree Regressor"
)

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	// leaf payload: class distribution for classifiers, mean for regressors
	dist  []float64
	value float64
}

func (n *treeNode) leaf() bool { return n.left == nil }

// DecisionTree is a CART tree. Classifiers split on gini or entropy
// impurity, regressors on squared error.
type DecisionTree struct {
	base
	maxDepth        int
	minSamplesSplit int
	criterion       string
	classifier      bool
	classes         []float64
	width           int
	root            *treeNode
}

func newDecisionTree(name string, classifier bool) component.Factory {
	return func(params map[string]any) (component.Component, error) {
		depth, err := component.Int(params, "max_depth")
		if err != nil {
			return nil, err
		}
		minSplit, err := component.Int(params, "min_samples_split")
		if err != nil {
			return nil, err
		}
		allowed := []string{"squared_error"}
		if classifier {
			allowed = []string{"gini", "entropy"}
		}
		criterion, err := component.OneOf(params, "criterion", allowed...)
		if err != nil {
			return nil, err
		}
		if depth < 1 || minSplit < 2 {
			return nil, errors.InvalidInput("max_depth", "max_depth must be >= 1 and min_samples_split >= 2")
		}
		return &DecisionTree{
			base:            base{name: name, params: params},
			maxDepth:        depth,
			minSamplesSplit: minSplit,
			criterion:       criterion,
			classifier:      classifier,
		}, nil
	}
}

func (t *DecisionTree) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(t.name, X, y); err != nil {
		return err
	}
	if err := checkFinite(t.name, X); err != nil {
		return err
	}
	t.width = X.NumCols()
	var target []float64
	if t.classifier {
		t.classes = sortedClasses(y)
		index := classIndex(t.classes)
		target = make([]float64, len(y))
		for i, v := range y {
			target[i] = float64(index[v])
		}
	} else {
		target = y
	}
	rows := make([]int, X.NumRows())
	for i := range rows {
		rows[i] = i
	}
	t.root = t.grow(X, target, rows, 0)
	return nil
}

func (t *DecisionTree) grow(X *data.Frame, y []float64, rows []int, depth int) *treeNode {
	node := t.makeLeaf(y, rows)
	if depth >= t.maxDepth || len(rows) < t.minSamplesSplit || t.impurity(y, rows) == 0 {
		return node
	}

	parent := t.impurity(y, rows) * float64(len(rows))
	bestGain, bestFeature, bestThreshold := 1e-12, -1, 0.0
	for j := 0; j < X.NumCols(); j++ {
		sorted := append([]int(nil), rows...)
		sort.SliceStable(sorted, func(a, b int) bool { return X.Rows[sorted[a]][j] < X.Rows[sorted[b]][j] })
		for i := 1; i < len(sorted); i++ {
			lo, hi := X.Rows[sorted[i-1]][j], X.Rows[sorted[i]][j]
			if lo == hi {
				continue
			}
			left, right := sorted[:i], sorted[i:]
			cost := t.impurity(y, left)*float64(len(left)) + t.impurity(y, right)*float64(len(right))
			if gain := parent - cost; gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, j, (lo+hi)/2
			}
		}
	}
	if bestFeature < 0 {
		return node
	}

	var left, right []int
	for _, r := range rows {
		if X.Rows[r][bestFeature] <= bestThreshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = t.grow(X, y, left, depth+1)
	node.right = t.grow(X, y, right, depth+1)
	return node
}

func (t *DecisionTree) makeLeaf(y []float64, rows []int) *treeNode {
	if !t.classifier {
		var sum float64
		for _, r := range rows {
			sum += y[r]
		}
		return &treeNode{value: sum / float64(len(rows))}
	}
	counts := make([]float64, len(t.classes))
	for _, r := range rows {
		counts[int(y[r])]++
	}
	return &treeNode{dist: classProba(counts)}
}

func (t *DecisionTree) impurity(y []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	n := float64(len(rows))
	if !t.classifier {
		var sum, sq float64
		for _, r := range rows {
			sum += y[r]
			sq += y[r] * y[r]
		}
		m := sum / n
		return math.Max(sq/n-m*m, 0)
	}
	counts := make([]float64, len(t.classes))
	for _, r := range rows {
		counts[int(y[r])]++
	}
	var out float64
	if t.criterion == "entropy" {
		for _, c := range counts {
			if c > 0 {
				p := c / n
				out -= p * math.Log2(p)
			}
		}
		return out
	}
	out = 1
	for _, c := range counts {
		p := c / n
		out -= p * p
	}
	return out
}

func (t *DecisionTree) find(row []float64) *treeNode {
	n := t.root
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

func (t *DecisionTree) check(X *data.Frame) error {
	if t.root == nil {
		return errors.Pipeline(t.name, fmt.Errorf("not fitted"))
	}
	if err := checkWidth(t.name, X, t.width); err != nil {
		return err
	}
	return checkFinite(t.name, X)
}

func (t *DecisionTree) Predict(X *data.Frame) ([]float64, error) {
	if t.classifier {
		pred, err := t.PredictProba(X)
		return pred.Values, err
	}
	if err := t.check(X); err != nil {
		return nil, err
	}
	out := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		out[i] = t.find(row).value
	}
	return out, nil
}

func (t *DecisionTree) PredictProba(X *data.Frame) (data.Prediction, error) {
	if !t.classifier {
		values, err := t.Predict(X)
		return data.Prediction{Values: values}, err
	}
	if err := t.check(X); err != nil {
		return data.Prediction{}, err
	}
	proba := make([][]float64, X.NumRows())
	for i, row := range X.Rows {
		proba[i] = append([]float64(nil), t.find(row).dist...)
	}
	return data.Prediction{Values: data.ArgMax(proba, t.classes), Proba: proba, Classes: t.classes}, nil
}
