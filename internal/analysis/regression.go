package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"degpipe/internal/dataset"
)

// Regression fits y = alpha + beta*x by ordinary least squares over the
// records where both fields are present. Fewer than two valid samples, or
// a design with no x variance, is a *ComputationError rather than a
// degenerate fit.
func Regression(name string, ds *dataset.Dataset, xField, yField string) (*Result, error) {
	if xField == "" || yField == "" {
		return nil, fmt.Errorf("analysis %s: regression needs x_field and y_field", name)
	}
	if !ds.Schema.Has(xField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, xField, ds.ID)
	}
	if !ds.Schema.Has(yField) {
		return nil, fmt.Errorf("analysis %s: field %q not in dataset %s", name, yField, ds.ID)
	}

	var xs, ys []float64
	var pairs [][2]float64
	for _, rec := range ds.Records {
		x, okX := rec[xField].Float()
		y, okY := rec[yField].Float()
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
		pairs = append(pairs, [2]float64{x, y})
	}

	if len(xs) < 2 {
		return nil, computef(name, "need at least 2 valid samples, got %d", len(xs))
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return nil, computef(name, "singular fit: %q has no variance over %d samples", xField, len(xs))
	}
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)

	res := &Result{
		Name:    name,
		Kind:    KindRegression,
		Metrics: make(map[string]float64),
		Params:  map[string]float64{"alpha": alpha, "beta": beta},
		Pairs:   pairs,
	}
	res.put("n", float64(len(xs)))
	res.put("r_squared", r2)
	return res, nil
}
