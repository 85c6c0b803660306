package beam

import (
	"fmt"
	"math"

	"tdtbeam/internal/logmath"
)

// maesSearch holds the mutable state for one sample's modified Adaptive
// Expansion Search run. Unlike the default search it processes the whole
// frame's working set as one batch and chains up to the configured
// number of zero-duration lookahead steps before folding in the frame's
// blank probability.
type maesSearch struct {
	dec   *Decoder
	enc   [][]float32
	cache *StepCache

	// state is the batched decoder state container reused across
	// batch-score calls.
	state DecoderState
}

// runMAES decodes one sample with the modified Adaptive Expansion
// Search. enc holds the sample's encoder frames; seed must be nil.
func (d *Decoder) runMAES(enc [][]float32, seed *Hypothesis) ([]*Hypothesis, error) {
	if seed != nil {
		return nil, ErrPartialHypotheses
	}

	s := &maesSearch{
		dec:   d,
		enc:   enc,
		cache: NewStepCache(),
	}
	return s.run()
}

func (s *maesSearch) run() ([]*Hypothesis, error) {
	d := s.dec

	beam := min(d.opts.BeamSize, d.vocabSize)
	durationBeam := min(d.maxCandidates, len(d.durations))

	// 1) Seed: a blank-sentinel hypothesis whose decoder state and first
	//    cached output come from one priming batch-score step.
	s.state = d.scorer.InitializeState(beam)

	start := newSeedHypothesis(d.blank)
	start.DecoderState = d.scorer.BatchSelectState(s.state, 0)
	if err := s.updateStates([]*Hypothesis{start}); err != nil {
		return nil, err
	}
	if d.opts.LM != nil {
		start.LMState = d.opts.LM.InitialState()
	}
	kept := []*Hypothesis{start}

	for t := 0; t < len(s.enc); t++ {
		// 2) Partition by frame; an empty working set skips the frame.
		hyps := make([]*Hypothesis, 0, len(kept))
		pending := make([]*Hypothesis, 0, len(kept))
		for _, h := range kept {
			if h.LastFrame == t {
				hyps = append(hyps, h)
			} else {
				pending = append(pending, h)
			}
		}
		if len(hyps) == 0 {
			kept = pending
			continue
		}

		// Blank emissions and non-zero-duration non-blank emissions
		// accumulate across lookahead steps of this frame.
		var listB, listNB []*Hypothesis

		for n := 0; n < d.opts.MAESNumSteps; n++ {
			// 3) Expand every working hypothesis against frame t.
			listExp, err := s.expandStep(t, hyps, durationBeam, &listB, &listNB)
			if err != nil {
				return nil, err
			}

			// 4) Hypotheses that emitted a token need the decoder stepped
			//    before they park (listNB) or continue (listExp).
			toUpdate := make([]*Hypothesis, 0, len(listNB)+len(listExp))
			toUpdate = append(toUpdate, listNB...)
			toUpdate = append(toUpdate, listExp...)
			if err := s.updateStates(toUpdate); err != nil {
				return nil, err
			}

			// 5) No zero-duration expansions: the frame is done early.
			if len(listExp) == 0 {
				pending = append(pending, listB...)
				pending = append(pending, listNB...)
				pending = mergeDuplicates(pending)
				sortByScore(pending)
				pending = truncate(pending, beam)
				break
			}

			if n < d.opts.MAESNumSteps-1 {
				// 6) Zero-duration expansions become the next step's
				//    working set.
				hyps = mergeDuplicates(listExp)
				continue
			}

			// 7) Step budget exhausted: fold each remaining expansion's
			//    blank probability at its own best duration, then close
			//    the frame.
			if err := s.foldBlank(t, listExp); err != nil {
				return nil, err
			}
			pending = append(pending, listB...)
			pending = append(pending, listExp...)
			pending = append(pending, listNB...)
			pending = mergeDuplicates(pending)
			sortByScore(pending)
			pending = truncate(pending, beam)
		}

		kept = pending
	}

	sortNBest(kept, d.opts.ScoreNorm)
	return kept, nil
}

// expandStep scores the working set against frame t and partitions the
// pruned (token, duration) expansions: blanks into listB, non-blank
// emissions with non-zero duration into listNB, and zero-duration
// non-blank emissions into the returned continuation list.
func (s *maesSearch) expandStep(t int, hyps []*Hypothesis, durationBeam int, listB, listNB *[]*Hypothesis) ([]*Hypothesis, error) {
	d := s.dec
	var listExp []*Hypothesis

	for _, hyp := range hyps {
		// 1) Joint logits from the hypothesis's latest cached decoder
		//    output; blank is part of the token top-k here.
		tokenLogp, durLogp, err := d.frameLogProbs(s.enc[t], hyp.DecoderOutputs[len(hyp.DecoderOutputs)-1])
		if err != nil {
			return nil, fmt.Errorf("beam: frame %d: %w", t, err)
		}

		tokIdxs, tokVals := logmath.TopK(tokenLogp, d.maxCandidates)
		durIdxs, durVals := logmath.TopK(durLogp, durationBeam)
		if math.IsNaN(tokVals[0]) || math.IsNaN(durVals[0]) {
			return nil, fmt.Errorf("%w: frame %d", ErrDegenerateDistribution, t)
		}

		// 2) Duration-major pairwise sums, top maxCandidates pairs.
		flat := make([]float64, 0, len(durVals)*len(tokVals))
		for _, dv := range durVals {
			for _, tv := range tokVals {
				flat = append(flat, dv+tv)
			}
		}
		pairIdxs, pairVals := logmath.TopK(flat, d.maxCandidates)

		// 3) Prune by value: keep pairs within gamma of this
		//    hypothesis's best pair.
		cutoff := pairVals[0] - d.opts.MAESExpansionGamma

		for i, flatIdx := range pairIdxs {
			if pairVals[i] < cutoff {
				continue
			}
			score := hyp.Score + pairVals[i]
			if !isFinite(score) {
				continue
			}
			tok := tokIdxs[flatIdx%len(tokVals)]
			durIdx := durIdxs[flatIdx/len(tokVals)]

			// A blank expansion must advance the cursor: the zero bin is
			// always swapped for the minimum non-zero bin, keeping the
			// original pair score. Duplicates this introduces are merged
			// later.
			if tok == d.blank && durIdx == d.zeroDurationIdx {
				durIdx = d.minNonZeroDurationIdx
			}
			dur := d.durations[durIdx]

			child := hyp.fork()
			child.Score = score
			child.LastFrame += dur

			if tok == d.blank {
				*listB = append(*listB, child)
				continue
			}

			child.TokenSequence = append(child.TokenSequence, tok)
			child.Timesteps = append(child.Timesteps, t)
			if d.opts.LM != nil {
				lmScore, lmState := d.opts.LM.Score(hyp.LMState, tok)
				child.Score += d.opts.LMAlpha * lmScore
				child.LMState = lmState
			}

			if dur == 0 {
				listExp = append(listExp, child)
			} else {
				*listNB = append(*listNB, child)
			}
		}
	}

	return listExp, nil
}

// updateStates batch-steps the decoder for hypotheses that emitted a
// token, appending each one's fresh output and adopting its slice of the
// new batched state.
func (s *maesSearch) updateStates(hyps []*Hypothesis) error {
	if len(hyps) == 0 {
		return nil
	}
	d := s.dec

	states := make([]DecoderState, len(hyps))
	for i, h := range hyps {
		states[i] = h.DecoderState
	}
	s.state = d.scorer.BatchInitializeStates(s.state, states)

	outs, state, err := d.scorer.BatchScoreHypotheses(hyps, s.cache, s.state)
	if err != nil {
		return fmt.Errorf("beam: batched decoder step: %w", err)
	}
	s.state = state

	for i, h := range hyps {
		h.DecoderOutputs = append(h.DecoderOutputs, outs[i])
		h.DecoderState = d.scorer.BatchSelectState(s.state, i)
	}

	return nil
}

// foldBlank adds the blank probability at each expansion's most probable
// duration (zero swapped for the minimum non-zero bin) so no hypothesis
// closes the frame still owing a blank contribution.
func (s *maesSearch) foldBlank(t int, listExp []*Hypothesis) error {
	d := s.dec

	for _, hyp := range listExp {
		tokenLogp, durLogp, err := d.frameLogProbs(s.enc[t], hyp.DecoderOutputs[len(hyp.DecoderOutputs)-1])
		if err != nil {
			return fmt.Errorf("beam: frame %d: %w", t, err)
		}

		durIdx := logmath.ArgMax(durLogp)
		if durIdx == d.zeroDurationIdx {
			durIdx = d.minNonZeroDurationIdx
		}

		hyp.Score += tokenLogp[d.blank] + durLogp[durIdx]
		hyp.LastFrame += d.durations[durIdx]
	}

	return nil
}
