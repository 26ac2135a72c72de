package components

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kbukum/automl/component"
	"github.com/kbukum/automl/data"
	"github.com/kbukum/automl/errors"
)

// Names of the linear estimators.
const (
	LinearRegressorName    = "Linear Regressor"
	LogisticRegressionName = "Logistic Regression Classifier"
)

// LinearRegressor is ridge regression solved in closed form on centred data.
type LinearRegressor struct {
	base
	alpha     float64
	intercept bool
	coef      []float64
	bias      float64
}

func newLinearRegressor(params map[string]any) (component.Component, error) {
	alpha, err := component.Float(params, "alpha")
	if err != nil {
		return nil, err
	}
	intercept, err := component.Bool(params, "fit_intercept")
	if err != nil {
		return nil, err
	}
	return &LinearRegressor{base: base{name: LinearRegressorName, params: params}, alpha: alpha, intercept: intercept}, nil
}

func (l *LinearRegressor) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(l.name, X, y); err != nil {
		return err
	}
	if err := checkFinite(l.name, X); err != nil {
		return err
	}
	n, d := X.NumRows(), X.NumCols()
	if d == 0 {
		return errors.Dataf("%s: input has no columns", l.name)
	}
	xMean := make([]float64, d)
	yMean := 0.0
	if l.intercept {
		for _, row := range X.Rows {
			for j, v := range row {
				xMean[j] += v / float64(n)
			}
		}
		yMean = mean(y)
	}

	A := mat.NewDense(n, d, nil)
	for i, row := range X.Rows {
		for j, v := range row {
			A.Set(i, j, v-xMean[j])
		}
	}
	b := mat.NewVecDense(n, nil)
	for i, v := range y {
		b.SetVec(i, v-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, A.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+l.alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(A.T(), b)

	var w mat.VecDense
	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); ok {
		if err := chol.SolveVecTo(&w, &rhs); err != nil {
			return errors.Dataf("%s: %v", l.name, err)
		}
	} else if err := w.SolveVec(&gram, &rhs); err != nil {
		return errors.Dataf("%s: singular design matrix: %v", l.name, err)
	}

	l.coef = make([]float64, d)
	l.bias = yMean
	for j := 0; j < d; j++ {
		l.coef[j] = w.AtVec(j)
		l.bias -= l.coef[j] * xMean[j]
	}
	return nil
}

func (l *LinearRegressor) Predict(X *data.Frame) ([]float64, error) {
	if l.coef == nil {
		return nil, errors.Pipeline(l.name, fmt.Errorf("not fitted"))
	}
	if err := checkWidth(l.name, X, len(l.coef)); err != nil {
		return nil, err
	}
	out := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		v := l.bias
		for j, x := range row {
			v += l.coef[j] * x
		}
		out[i] = v
	}
	return out, nil
}

// LogisticRegression is multinomial logistic regression with an L2 penalty
// of strength 1/C, fitted by full-batch gradient descent.
type LogisticRegression struct {
	base
	c            float64
	maxIter      int
	learningRate float64
	classes      []float64
	weights      *mat.Dense // (d+1) x k, last row is the bias
}

func newLogisticRegression(params map[string]any) (component.Component, error) {
	c, err := component.Float(params, "C")
	if err != nil {
		return nil, err
	}
	maxIter, err := component.Int(params, "max_iter")
	if err != nil {
		return nil, err
	}
	lr, err := component.Float(params, "learning_rate")
	if err != nil {
		return nil, err
	}
	if c <= 0 || maxIter < 1 || lr <= 0 {
		return nil, errors.InvalidInput("C", "C, max_iter and learning_rate must be positive")
	}
	return &LogisticRegression{
		base:         base{name: LogisticRegressionName, params: params},
		c:            c,
		maxIter:      maxIter,
		learningRate: lr,
	}, nil
}

func (l *LogisticRegression) Fit(X *data.Frame, y []float64) error {
	if err := checkFit(l.name, X, y); err != nil {
		return err
	}
	if err := checkFinite(l.name, X); err != nil {
		return err
	}
	l.classes = sortedClasses(y)
	if len(l.classes) < 2 {
		return errors.Dataf("%s: needs at least 2 classes, got %d", l.name, len(l.classes))
	}
	n, d, k := X.NumRows(), X.NumCols(), len(l.classes)
	design := withBias(X)
	onehot := mat.NewDense(n, k, nil)
	index := classIndex(l.classes)
	for i, v := range y {
		onehot.Set(i, index[v], 1)
	}

	W := mat.NewDense(d+1, k, nil)
	var scores, grad mat.Dense
	for iter := 0; iter < l.maxIter; iter++ {
		scores.Mul(design, W)
		softmaxRows(&scores)
		scores.Sub(&scores, onehot)
		grad.Mul(design.T(), &scores)
		grad.Scale(1/float64(n), &grad)
		for j := 0; j < d; j++ {
			for c := 0; c < k; c++ {
				grad.Set(j, c, grad.At(j, c)+W.At(j, c)/(l.c*float64(n)))
			}
		}
		grad.Scale(l.learningRate, &grad)
		W.Sub(W, &grad)
	}
	l.weights = W
	return nil
}

func (l *LogisticRegression) Predict(X *data.Frame) ([]float64, error) {
	pred, err := l.PredictProba(X)
	return pred.Values, err
}

func (l *LogisticRegression) PredictProba(X *data.Frame) (data.Prediction, error) {
	if l.weights == nil {
		return data.Prediction{}, errors.Pipeline(l.name, fmt.Errorf("not fitted"))
	}
	rows, _ := l.weights.Dims()
	if err := checkWidth(l.name, X, rows-1); err != nil {
		return data.Prediction{}, err
	}
	if X.NumRows() == 0 {
		return data.Prediction{Classes: l.classes}, nil
	}
	var scores mat.Dense
	scores.Mul(withBias(X), l.weights)
	softmaxRows(&scores)
	n, _ := scores.Dims()
	proba := make([][]float64, n)
	for i := range proba {
		proba[i] = mat.Row(nil, i, &scores)
	}
	return data.Prediction{Values: data.ArgMax(proba, l.classes), Proba: proba, Classes: l.classes}, nil
}

func withBias(X *data.Frame) *mat.Dense {
	n, d := X.NumRows(), X.NumCols()
	m := mat.NewDense(n, d+1, nil)
	for i, row := range X.Rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
		m.Set(i, d, 1)
	}
	return m
}

func softmaxRows(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		maxV := math.Inf(-1)
		for j := 0; j < c; j++ {
			maxV = math.Max(maxV, m.At(i, j))
		}
		var sum float64
		for j := 0; j < c; j++ {
			e := math.Exp(m.At(i, j) - maxV)
			m.Set(i, j, e)
			sum += e
		}
		for j := 0; j < c; j++ {
			m.Set(i, j, m.At(i, j)/sum)
		}
	}
}
