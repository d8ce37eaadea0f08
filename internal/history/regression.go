package history

import "math"

// WeightedLinearFit fits y = intercept + slope*x by weighted least squares.
// ok is false when the inputs are empty, mismatched, or all x coincide.
func WeightedLinearFit(xs, ys, ws []float64) (slope, intercept float64, ok bool) {
	if len(xs) == 0 || len(xs) != len(ys) || len(xs) != len(ws) {
		return 0, 0, false
	}

	var sw, swx, swy float64
	for i := range xs {
		sw += ws[i]
		swx += ws[i] * xs[i]
		swy += ws[i] * ys[i]
	}
	if sw == 0 {
		return 0, 0, false
	}
	xbar := swx / sw
	ybar := swy / sw

	var num, den float64
	for i := range xs {
		dx := xs[i] - xbar
		num += ws[i] * dx * (ys[i] - ybar)
		den += ws[i] * dx * dx
	}
	if den == 0 {
		return 0, ybar, false
	}

	slope = num / den
	return slope, ybar - slope*xbar, true
}

// RecencyWeights returns n weights where the last gets 1.0 and each step
// back multiplies by decay.
func RecencyWeights(n int, decay float64) []float64 {
	ws := make([]float64, n)
	for i := range ws {
		ws[i] = math.Pow(decay, float64(n-1-i))
	}
	return ws
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
