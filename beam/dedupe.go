package beam

import (
	"sort"

	"tdtbeam/internal/logmath"
)

// mergeDuplicates collapses hypotheses that share an identical
// (TokenSequence, LastFrame) pair. Duplicates arise when different
// duration choices sum to the same frame advance, most commonly two
// consecutive blanks whose durations add up equally.
//
// Hypotheses are visited in descending score order; the first occurrence
// of a path survives and absorbs each later duplicate via log-sum-exp,
// so the merged score preserves the total probability mass of all routes
// to that path. The merge result is independent of input order.
//
// The input slice is reordered in place; survivors are returned in
// descending pre-merge score order.
func mergeDuplicates(hyps []*Hypothesis) []*Hypothesis {
	if len(hyps) < 2 {
		return hyps
	}

	// 1) Visit best-first so the highest-score route becomes the survivor.
	//    Stable sort keeps insertion order among equal scores.
	sort.SliceStable(hyps, func(i, j int) bool { return hyps[i].Score > hyps[j].Score })

	// 2) Linear scan with pairwise comparison. Frontier sizes are bounded
	//    by the beam budget, so the quadratic scan stays small.
	kept := make([]*Hypothesis, 0, len(hyps))
scan:
	for _, h := range hyps {
		for _, k := range kept {
			if k.LastFrame == h.LastFrame && equalTokens(k.TokenSequence, h.TokenSequence) {
				k.Score = logmath.LogAdd(k.Score, h.Score)
				continue scan
			}
		}
		kept = append(kept, h)
	}

	return kept
}
