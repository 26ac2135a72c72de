package objective

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/problem"
)

const logLossEps = 1e-15

type scoreFunc func(yTrue []float64, pred data.Prediction) (float64, error)

// metric is a table-driven Objective.
type metric struct {
	name       string
	greater    bool
	needsProba bool
	perfect    float64
	types      []problem.Type
	score      scoreFunc
}

func (m *metric) Name() string                 { return m.name }
func (m *metric) GreaterIsBetter() bool        { return m.greater }
func (m *metric) ScoreNeedsProba() bool        { return m.needsProba }
func (m *metric) PerfectScore() float64        { return m.perfect }
func (m *metric) ProblemTypes() []problem.Type { return m.types }

func (m *metric) Score(yTrue []float64, pred data.Prediction, _ *data.Frame) (float64, error) {
	if len(yTrue) != pred.Len() {
		return 0, errors.Dataf("%s: %d predictions for %d rows", m.name, pred.Len(), len(yTrue))
	}
	return m.score(yTrue, pred)
}

// binaryMetric is a label-based binary objective that supports threshold tuning.
type binaryMetric struct {
	metric
}

func (b *binaryMetric) DecisionFunction(proba []float64, threshold float64) []float64 {
	return decide(proba, threshold)
}

var (
	binaryTypes     = []problem.Type{problem.Binary}
	multiclassTypes = []problem.Type{problem.Multiclass}
	regressionTypes = []problem.Type{problem.Regression}
)

// Built-in objectives.
var (
	AccuracyBinary = &binaryMetric{metric{
		name: "Accuracy Binary", greater: true, perfect: 1, types: binaryTypes, score: accuracy,
	}}

	AccuracyMulticlass = &metric{
		name: "Accuracy Multiclass", greater: true, perfect: 1, types: multiclassTypes, score: accuracy,
	}

	BalancedAccuracyBinary = &binaryMetric{metric{
		name: "Balanced Accuracy Binary", greater: true, perfect: 1, types: binaryTypes, score: balancedAccuracy,
	}}

	BalancedAccuracyMulticlass = &metric{
		name: "Balanced Accuracy Multiclass", greater: true, perfect: 1, types: multiclassTypes, score: balancedAccuracy,
	}

	F1 = &binaryMetric{metric{
		name: "F1", greater: true, perfect: 1, types: binaryTypes, score: f1,
	}}

	Precision = &binaryMetric{metric{
		name: "Precision", greater: true, perfect: 1, types: binaryTypes, score: precision,
	}}

	Recall = &binaryMetric{metric{
		name: "Recall", greater: true, perfect: 1, types: binaryTypes, score: recall,
	}}

	AUC = &metric{
		name: "AUC", greater: true, needsProba: true, perfect: 1, types: binaryTypes, score: auc,
	}

	LogLossBinary = &metric{
		name: "Log Loss Binary", needsProba: true, types: binaryTypes, score: logLoss,
	}

	LogLossMulticlass = &metric{
		name: "Log Loss Multiclass", needsProba: true, types: multiclassTypes, score: logLoss,
	}

	MSE = &metric{name: "MSE", types: regressionTypes, score: mse}

	MAE = &metric{name: "MAE", types: regressionTypes, score: mae}

	RMSE = &metric{name: "Root Mean Squared Error", types: regressionTypes, score: rmse}

	R2 = &metric{name: "R2", greater: true, perfect: 1, types: regressionTypes, score: r2}

	MedianAE = &metric{name: "MedianAE", types: regressionTypes, score: medianAE}
)

func accuracy(yTrue []float64, pred data.Prediction) (float64, error) {
	correct := 0
	for i, y := range yTrue {
		if pred.Values[i] == y {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// balancedAccuracy is the mean recall over the classes present in yTrue.
func balancedAccuracy(yTrue []float64, pred data.Prediction) (float64, error) {
	total := make(map[float64]int)
	hit := make(map[float64]int)
	for i, y := range yTrue {
		total[y]++
		if pred.Values[i] == y {
			hit[y]++
		}
	}
	classes := data.UniqueValues(yTrue)
	var sum float64
	for _, c := range classes {
		sum += float64(hit[c]) / float64(total[c])
	}
	return sum / float64(len(classes)), nil
}

type confusion struct {
	tp, fp, fn, tn int
}

func binaryConfusion(yTrue, yPred []float64) confusion {
	var c confusion
	for i, y := range yTrue {
		switch {
		case y == 1 && yPred[i] == 1:
			c.tp++
		case y != 1 && yPred[i] == 1:
			c.fp++
		case y == 1:
			c.fn++
		default:
			c.tn++
		}
	}
	return c
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func precision(yTrue []float64, pred data.Prediction) (float64, error) {
	c := binaryConfusion(yTrue, pred.Values)
	return ratio(c.tp, c.tp+c.fp), nil
}

func recall(yTrue []float64, pred data.Prediction) (float64, error) {
	c := binaryConfusion(yTrue, pred.Values)
	return ratio(c.tp, c.tp+c.fn), nil
}

func f1(yTrue []float64, pred data.Prediction) (float64, error) {
	c := binaryConfusion(yTrue, pred.Values)
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn), nil
}

// auc is the Mann-Whitney statistic over the positive class probability,
// with average ranks for ties.
func auc(yTrue []float64, pred data.Prediction) (float64, error) {
	scores := pred.PositiveProba()
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, y := range yTrue {
		if y == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, errors.Data("AUC is undefined when only one class is present")
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg), nil
}

// logLoss is the mean negative log probability of the true class, clipped
// away from zero. Rows are renormalized after clipping.
func logLoss(yTrue []float64, pred data.Prediction) (float64, error) {
	var sum float64
	for i, y := range yTrue {
		row := pred.Proba[i]
		var norm, p float64
		for j, c := range pred.Classes {
			v := clip(row[j])
			norm += v
			if c == y {
				p = v
			}
		}
		if p == 0 {
			p = logLossEps
		}
		sum -= math.Log(p / norm)
	}
	return sum / float64(len(yTrue)), nil
}

func clip(p float64) float64 {
	return math.Min(math.Max(p, logLossEps), 1-logLossEps)
}

func residuals(yTrue []float64, pred data.Prediction) []float64 {
	out := make([]float64, len(yTrue))
	for i, y := range yTrue {
		out[i] = y - pred.Values[i]
	}
	return out
}

func mse(yTrue []float64, pred data.Prediction) (float64, error) {
	var sum float64
	for _, r := range residuals(yTrue, pred) {
		sum += r * r
	}
	return sum / float64(len(yTrue)), nil
}

func rmse(yTrue []float64, pred data.Prediction) (float64, error) {
	v, err := mse(yTrue, pred)
	return math.Sqrt(v), err
}

func mae(yTrue []float64, pred data.Prediction) (float64, error) {
	var sum float64
	for _, r := range residuals(yTrue, pred) {
		sum += math.Abs(r)
	}
	return sum / float64(len(yTrue)), nil
}

func medianAE(yTrue []float64, pred data.Prediction) (float64, error) {
	abs := residuals(yTrue, pred)
	for i, r := range abs {
		abs[i] = math.Abs(r)
	}
	sort.Float64s(abs)
	n := len(abs)
	if n%2 == 1 {
		return abs[n/2], nil
	}
	return (abs[n/2-1] + abs[n/2]) / 2, nil
}

// r2 is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func r2(yTrue []float64, pred data.Prediction) (float64, error) {
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i, y := range yTrue {
		r := y - pred.Values[i]
		ssRes += r * r
		d := y - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}
