// Package distribution computes the exact probability distribution over the
// number of districts meeting threshold.
//
// Districts are treated as independent Bernoulli trials and convolved:
//
//	dp'[k+1] += dp[k]*p
//	dp'[k]   += dp[k]*(1-p)
//
// Real districts share legal and organizational risk, so only the tail sum
// used for overall qualification is deflated by a correlation penalty. The
// expected count is exact regardless of correlation.
package distribution

// Summary is the overall outcome for one probability vector.
type Summary struct {
	PExact            []float64
	PQualifyRaw       float64
	PQualify          float64
	Penalty           float64
	ExpectedDistricts float64
}

// Compute returns dp where dp[k] is the probability that exactly k districts
// meet threshold. An empty input yields [1.0].
func Compute(probs []float64) []float64 {
	dp := make([]float64, len(probs)+1)
	dp[0] = 1.0
	for i, p := range probs {
		next := make([]float64, len(dp))
		for k := 0; k <= i; k++ {
			if dp[k] == 0 {
				continue
			}
			next[k+1] += dp[k] * p
			next[k] += dp[k] * (1 - p)
		}
		dp = next
	}
	return dp
}

// TailSum returns P(at least k districts).
func TailSum(dp []float64, k int) float64 {
	sum := 0.0
	for i := max(k, 0); i < len(dp); i++ {
		sum += dp[i]
	}
	return sum
}

// Expected is the expected number of districts meeting threshold.
func Expected(probs []float64) float64 {
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	return sum
}

// Penalize deflates a qualification probability by scale*raw, floored at 0.
func Penalize(raw, scale float64) float64 {
	return max(0, raw-scale*raw)
}

// Summarize computes the distribution, tail sum and penalty for probs.
func Summarize(probs []float64, required int, scale float64) Summary {
	dp := Compute(probs)
	raw := TailSum(dp, required)
	adjusted := Penalize(raw, scale)
	return Summary{
		PExact:            dp,
		PQualifyRaw:       raw,
		PQualify:          adjusted,
		Penalty:           raw - adjusted,
		ExpectedDistricts: Expected(probs),
	}
}
