package beam

import "strconv"

// Scorer wraps an autoregressive decoder network and its joint network.
// All calls are synchronous and referentially transparent: the same
// inputs produce the same outputs, and returned states and outputs are
// snapshots the adapter never mutates afterwards. Any acceleration
// (batching, device dispatch) is the adapter's concern and invisible to
// the search.
type Scorer interface {
	// InitializeState produces a fresh recurrent state sized for n
	// hypotheses.
	InitializeState(n int) DecoderState

	// ScoreHypothesis advances the decoder one step for a single
	// hypothesis, returning the decoder output and the state after the
	// step. The adapter may consult and populate cache, keyed by
	// PathKey of the hypothesis's token sequence, to skip recomputing
	// identical prefixes.
	ScoreHypothesis(h *Hypothesis, cache *StepCache) (DecoderOutput, DecoderState, error)

	// BatchScoreHypotheses advances the decoder one step for every
	// hypothesis at once, using state as the batched state container.
	// The i-th output corresponds to hyps[i].
	BatchScoreHypotheses(hyps []*Hypothesis, cache *StepCache, state DecoderState) ([]DecoderOutput, DecoderState, error)

	// BatchSelectState extracts the i-th hypothesis's state slice from a
	// batched state.
	BatchSelectState(state DecoderState, i int) DecoderState

	// BatchInitializeStates rebuilds the batched container from
	// per-hypothesis states, reusing state's allocation where possible.
	BatchInitializeStates(state DecoderState, states []DecoderState) DecoderState

	// Joint combines one encoder frame with one decoder output into raw
	// logits of length vocabSize + 1 + numDurations: token logits with
	// blank last, then duration-bin logits. The two segments are
	// normalized independently by the search, never jointly.
	Joint(encoderFrame []float32, out DecoderOutput) ([]float64, error)
}

// LanguageModel scores token continuations for shallow fusion. Score
// returns the incremental natural-log probability of label given state
// and the advanced state; states have value semantics. Label encoding
// and log-base conversion are the adapter's concern.
type LanguageModel interface {
	// InitialState returns the begin-sentence state.
	InitialState() LMState

	// Score returns the incremental log-probability of label and the
	// state after consuming it.
	Score(state LMState, label int) (float64, LMState)
}

// StepCache memoizes decoder steps within one sample's decode, keyed by
// the emitted token path. A strategy creates one cache per sample and
// discards it with the sample, so entries never leak across decodes.
type StepCache struct {
	steps map[string]cachedStep
}

type cachedStep struct {
	output DecoderOutput
	state  DecoderState
}

// NewStepCache returns an empty cache.
func NewStepCache() *StepCache {
	return &StepCache{steps: make(map[string]cachedStep)}
}

// Lookup returns the memoized output and state for key, if present.
func (c *StepCache) Lookup(key string) (DecoderOutput, DecoderState, bool) {
	step, ok := c.steps[key]
	if !ok {
		return nil, nil, false
	}
	return step.output, step.state, true
}

// Store memoizes the output and state for key.
func (c *StepCache) Store(key string, out DecoderOutput, state DecoderState) {
	c.steps[key] = cachedStep{output: out, state: state}
}

// Len returns the number of memoized steps.
func (c *StepCache) Len() int {
	return len(c.steps)
}

// PathKey derives the stable cache key for a token sequence. Identical
// sequences map to identical keys regardless of which hypothesis carries
// them.
func PathKey(tokens []int) string {
	buf := make([]byte, 0, len(tokens)*3)
	for i, tok := range tokens {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(tok), 10)
	}
	return string(buf)
}
