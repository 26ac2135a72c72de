package components

import (
	"fmt"
	"math"
	"sort"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
)

// Names of the nearest-neighbour estimators.
const (
	KNNClassifierName = "KNN Classifier"
	KNNRegressorName  = "KNN Regressor"
)

// KNN predicts from the k nearest training rows by Euclidean distance,
// weighted uniformly or by inverse distance.
type KNN struct {
	base
	k          int
	distance   bool
	classifier bool
	train      [][]float64
	y          []float64
	classes    []float64
}

func newKNN(name string, classifier bool) component.Factory {
	return func(params map[string]any) (component.Component, error) {
		k, err := component.Int(params, "n_neighbors")
		if err != nil {
			return nil, err
		}
		if k < 1 {
			return nil, errors.InvalidInput("n_neighbors", "n_neighbors must be positive")
		}
		weights, err := component.OneOf(params, "weights", "uniform", "distance")
		if err != nil {
			return nil, err
		}
		return &KNN{
			base:       base{name: name, params: params},
			k:          k,
			distance:   weights == "distance",
			classifier: classifier,
		}, nil
	}
}

func (m *KNN) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(m.name, X, y); err != nil {
		return err
	}
	if err := checkFinite(m.name, X); err != nil {
		return err
	}
	m.train = X.Clone().Rows
	m.y = append([]float64(nil), y...)
	if m.classifier {
		m.classes = sortedClasses(y)
	}
	return nil
}

type neighbour struct {
	dist  float64
	index int
}

func (m *KNN) neighbours(row []float64) []neighbour {
	all := make([]neighbour, len(m.train))
	for i, t := range m.train {
		var d float64
		for j, v := range t {
			diff := v - row[j]
			d += diff * diff
		}
		all[i] = neighbour{dist: math.Sqrt(d), index: i}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	k := m.k
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

func (m *KNN) weight(n neighbour) float64 {
	if !m.distance {
		return 1
	}
	return 1 / math.Max(n.dist, 1e-12)
}

func (m *KNN) check(X *data.Frame) error {
	if m.train == nil {
		return errors.Pipeline(m.name, fmt.Errorf("not fitted"))
	}
	if err := checkWidth(m.name, X, len(m.train[0])); err != nil {
		return err
	}
	return checkFinite(m.name, X)
}

func (m *KNN) Predict(X *data.Frame) ([]float64, error) {
	if m.classifier {
		pred, err := m.PredictProba(X)
		return pred.Values, err
	}
	if err := m.check(X); err != nil {
		return nil, err
	}
	out := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		var sum, wsum float64
		for _, n := range m.neighbours(row) {
			w := m.weight(n)
			sum += w * m.y[n.index]
			wsum += w
		}
		out[i] = sum / wsum
	}
	return out, nil
}

func (m *KNN) PredictProba(X *data.Frame) (data.Prediction, error) {
	if !m.classifier {
		values, err := m.Predict(X)
		return data.Prediction{Values: values}, err
	}
	if err := m.check(X); err != nil {
		return data.Prediction{}, err
	}
	index := classIndex(m.classes)
	proba := make([][]float64, X.NumRows())
	for i, row := range X.Rows {
		votes := make([]float64, len(m.classes))
		for _, n := range m.neighbours(row) {
			votes[index[m.y[n.index]]] += m.weight(n)
		}
		proba[i] = classProba(votes)
	}
	return data.Prediction{Values: data.ArgMax(proba, m.classes), Proba: proba, Classes: m.classes}, nil
}
