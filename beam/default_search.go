package beam

import (
	"container/heap"
	"fmt"
	"math"

	"tdtbeam/internal/logmath"
)

// defaultSearch holds the mutable state for one sample's Default Beam
// Search run. The working set is a max-score queue of hypotheses at the
// current frame; the pending set collects hypotheses parked at future
// frames. The two containers replace any in-place list filtering.
type defaultSearch struct {
	dec       *Decoder
	enc       [][]float32
	cache     *StepCache
	working   hypPQ
	pending   []*Hypothesis
	nextOrder int
}

// runDefaultSearch decodes one sample with the Default Beam Search.
// enc holds the sample's encoder frames; seed must be nil.
func (d *Decoder) runDefaultSearch(enc [][]float32, seed *Hypothesis) ([]*Hypothesis, error) {
	if seed != nil {
		return nil, ErrPartialHypotheses
	}

	s := &defaultSearch{
		dec:   d,
		enc:   enc,
		cache: NewStepCache(),
	}
	return s.run()
}

func (s *defaultSearch) run() ([]*Hypothesis, error) {
	d := s.dec

	// Effective widths: the beam cannot exceed the vocabulary, the token
	// top-k excludes blank, and the duration top-k cannot exceed the
	// number of bins.
	beam := min(d.opts.BeamSize, d.vocabSize)
	beamK := min(beam, d.vocabSize-1)
	durBeamK := min(beam, len(d.durations))

	// 1) Seed: blank sentinel at frame 0 with a fresh single-hypothesis
	//    decoder state.
	start := newSeedHypothesis(d.blank)
	start.DecoderState = d.scorer.InitializeState(1)
	kept := []*Hypothesis{start}

	for t := 0; t < len(s.enc); t++ {
		// 2) Partition by frame: hypotheses at t form the working queue,
		//    the rest stay pending. An empty working set skips the frame.
		s.splitFrame(kept, t)
		if s.working.Len() == 0 {
			kept = append(kept[:0], s.pending...)
			continue
		}

		stopped := false
		for s.working.Len() > 0 {
			// 3) Pop the best working hypothesis and score it once.
			maxHyp := heap.Pop(&s.working).(*hypItem).h

			decOut, newState, err := d.scorer.ScoreHypothesis(maxHyp, s.cache)
			if err != nil {
				return nil, fmt.Errorf("beam: decoder step at frame %d: %w", t, err)
			}
			tokenLogp, durLogp, err := d.frameLogProbs(s.enc[t], decOut)
			if err != nil {
				return nil, fmt.Errorf("beam: frame %d: %w", t, err)
			}

			// 4) Independent top-k: non-blank tokens and duration bins.
			tokIdxs, tokVals := logmath.TopK(tokenLogp[:d.vocabSize], beamK)
			durIdxs, durVals := logmath.TopK(durLogp, durBeamK)
			if math.IsNaN(durVals[0]) || (len(tokVals) > 0 && math.IsNaN(tokVals[0])) {
				return nil, fmt.Errorf("%w: frame %d", ErrDegenerateDistribution, t)
			}

			// 5) Pair the reduced sets (duration-major), keep the top
			//    beamK combined pairs.
			flat := make([]float64, 0, len(durVals)*len(tokVals))
			for _, dv := range durVals {
				for _, tv := range tokVals {
					flat = append(flat, dv+tv)
				}
			}
			pairIdxs, pairVals := logmath.TopK(flat, beamK)

			// 6) Non-blank children: append token, advance the frame
			//    cursor by the pair's duration, adopt the stepped state.
			//    Zero duration re-enters the working queue.
			for i, flatIdx := range pairIdxs {
				score := maxHyp.Score + pairVals[i]
				if !isFinite(score) {
					continue
				}
				tok := tokIdxs[flatIdx%len(tokVals)]
				durIdx := durIdxs[flatIdx/len(tokVals)]
				dur := d.durations[durIdx]

				child := maxHyp.fork()
				child.Score = score
				child.TokenSequence = append(child.TokenSequence, tok)
				child.Timesteps = append(child.Timesteps, t+dur)
				child.DecoderState = newState
				child.LastFrame += dur

				if dur == 0 {
					s.pushWorking(child)
				} else {
					s.pending = append(s.pending, child)
				}
			}

			// 7) Blank children iterate the duration top-k only. A
			//    zero-duration blank cannot be represented: when the zero
			//    bin is the sole candidate it is swapped for the minimum
			//    non-zero bin, otherwise the candidate is skipped. Blank
			//    keeps the parent's sequence and decoder state.
			for _, durIdx := range durIdxs {
				di := durIdx
				if di == d.zeroDurationIdx {
					if len(durIdxs) != 1 {
						continue
					}
					di = d.minNonZeroDurationIdx
				}
				score := maxHyp.Score + tokenLogp[d.blank] + durLogp[di]
				if !isFinite(score) {
					continue
				}

				child := maxHyp.fork()
				child.Score = score
				child.LastFrame += d.durations[di]
				s.pending = append(s.pending, child)
			}

			// 8) Merge duplicate pending paths after every pop.
			s.pending = mergeDuplicates(s.pending)

			// 9) Early frame termination: once at least beam pending
			//    hypotheses strictly outscore the best working one,
			//    further in-frame expansion cannot change the outcome.
			if s.working.Len() > 0 {
				workingMax := s.working[0].h.Score
				qualified := make([]*Hypothesis, 0, len(s.pending))
				for _, h := range s.pending {
					if h.Score > workingMax {
						qualified = append(qualified, h)
					}
				}
				if len(qualified) >= beam {
					s.pending = qualified
					stopped = true
					break
				}
			}
		}

		// 10) Natural exhaustion truncates the pending set to the beam;
		//     the early-stop path keeps every qualifier.
		if !stopped {
			sortByScore(s.pending)
			s.pending = truncate(s.pending, beam)
		}
		kept = append(kept[:0], s.pending...)
	}

	sortNBest(kept, d.opts.ScoreNorm)
	return kept, nil
}

// splitFrame partitions kept into the frame-t working queue and the
// pending set.
func (s *defaultSearch) splitFrame(kept []*Hypothesis, t int) {
	s.working = s.working[:0]
	s.pending = s.pending[:0]
	for _, h := range kept {
		if h.LastFrame == t {
			s.working = append(s.working, &hypItem{h: h, order: s.nextOrder})
			s.nextOrder++
		} else {
			s.pending = append(s.pending, h)
		}
	}
	heap.Init(&s.working)
}

// pushWorking enqueues a zero-duration child for further expansion at
// the current frame.
func (s *defaultSearch) pushWorking(h *Hypothesis) {
	heap.Push(&s.working, &hypItem{h: h, order: s.nextOrder})
	s.nextOrder++
}

// hypItem pairs a hypothesis with its insertion order so that equal
// scores pop deterministically.
type hypItem struct {
	h     *Hypothesis
	order int
}

// hypPQ is a max-heap of *hypItem: higher score pops first, ties pop in
// insertion order.
type hypPQ []*hypItem

// Len returns the number of items in the heap.
func (pq hypPQ) Len() int { return len(pq) }

// Less defines the comparison: larger score → higher priority, with the
// insertion order as a deterministic tie-break.
func (pq hypPQ) Less(i, j int) bool {
	if pq[i].h.Score != pq[j].h.Score {
		return pq[i].h.Score > pq[j].h.Score
	}
	return pq[i].order < pq[j].order
}

// Swap swaps two elements in the heap.
func (pq hypPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

// Push adds a new element x onto the heap.
// Called by heap.Push; x must be of type *hypItem.
func (pq *hypPQ) Push(x interface{}) { *pq = append(*pq, x.(*hypItem)) }

// Pop removes and returns the highest-priority element from the heap.
// Called by heap.Pop.
func (pq *hypPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}
