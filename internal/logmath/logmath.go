// Package logmath provides log-domain arithmetic for beam decoding:
// stable log-sum-exp accumulation, log-softmax normalization, and
// deterministic top-k selection over log-probability vectors.
package logmath

import (
	"math"
	"sort"
)

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
const LogZero = -1e30

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Uses threshold-based early exit to skip expensive exp/log1p when the
// smaller value contributes less than float64 precision (exp(-36) ≈ 2.3e-16).
func LogAdd(a, b float64) float64 {
	if a > b {
		if b == LogZero {
			return a
		}
		d := b - a
		if d < -36.0 {
			return a
		}
		return a + math.Log1p(math.Exp(d))
	}
	if a == LogZero {
		return b
	}
	d := a - b
	if d < -36.0 {
		return b
	}
	return b + math.Log1p(math.Exp(d))
}

// LogSoftmax returns the log-softmax of logits as a new slice:
// out[i] = logits[i] - max - log(sum_j exp(logits[j] - max)).
// The max-shift keeps the exponentials in range; an all -Inf input
// produces NaN entries, which callers must treat as a degenerate
// distribution.
func LogSoftmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	// 1) Find the maximum logit for the stability shift.
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	// 2) Accumulate sum of shifted exponentials.
	var sum float64
	for _, v := range logits {
		sum += math.Exp(v - max)
	}
	logSum := math.Log(sum)

	// 3) Normalize: log p_i = x_i - max - log sum.
	for i, v := range logits {
		out[i] = v - max - logSum
	}

	return out
}

// Scale multiplies every element of v by factor, in place.
// Used to apply an inverse softmax temperature to raw logits.
func Scale(v []float64, factor float64) {
	for i := range v {
		v[i] *= factor
	}
}

// TopK returns the indices and values of the k largest elements of vals,
// ordered by descending value. Ties keep the smaller index first, so the
// selection is deterministic for equal inputs. k is clamped to len(vals);
// k <= 0 yields empty slices.
func TopK(vals []float64, k int) ([]int, []float64) {
	if k > len(vals) {
		k = len(vals)
	}
	if k <= 0 {
		return nil, nil
	}

	idxs := make([]int, len(vals))
	for i := range idxs {
		idxs[i] = i
	}
	// Stable sort preserves index order among equal values.
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })

	idxs = idxs[:k]
	top := make([]float64, k)
	for i, idx := range idxs {
		top[i] = vals[idx]
	}

	return idxs, top
}

// ArgMax returns the index of the largest element of vals, preferring the
// smallest index on ties. Returns -1 for an empty slice.
func ArgMax(vals []float64) int {
	if len(vals) == 0 {
		return -1
	}
	best := 0
	for i, v := range vals[1:] {
		if v > vals[best] {
			best = i + 1
		}
	}
	return best
}
