package beam

import "sort"

// sortNBest orders hypotheses for final output: descending by
// Score/len(TokenSequence) when scoreNorm is set, otherwise by raw
// Score. Ties keep their input order, so ranking is deterministic.
func sortNBest(hyps []*Hypothesis, scoreNorm bool) {
	if scoreNorm {
		sort.SliceStable(hyps, func(i, j int) bool {
			return hyps[i].Score/float64(len(hyps[i].TokenSequence)) >
				hyps[j].Score/float64(len(hyps[j].TokenSequence))
		})
		return
	}
	sort.SliceStable(hyps, func(i, j int) bool { return hyps[i].Score > hyps[j].Score })
}

// sortByScore orders hypotheses by descending raw score, stable on ties.
// Used for beam truncation between frames, where ranking normalization
// does not apply.
func sortByScore(hyps []*Hypothesis) {
	sort.SliceStable(hyps, func(i, j int) bool { return hyps[i].Score > hyps[j].Score })
}

// truncate returns the best-first prefix of at most beam hypotheses.
// The input must already be sorted by descending score.
func truncate(hyps []*Hypothesis, beam int) []*Hypothesis {
	if len(hyps) > beam {
		return hyps[:beam]
	}
	return hyps
}
