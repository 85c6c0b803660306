package beam

// DecoderState is an opaque snapshot of the scorer's recurrent state.
// Adapters return fresh snapshots and never mutate one after handing it
// out, so hypotheses may share a snapshot without locking.
type DecoderState interface{}

// DecoderOutput is an opaque decoder-network output produced by the
// scorer and fed back into its Joint call. The search never inspects it.
type DecoderOutput interface{}

// LMState is an opaque language-model state with value semantics:
// advancing a state yields a new one, the old remains usable.
type LMState interface{}

// Hypothesis is one decoding path: the emitted token sequence, the frame
// at which each entry was emitted, the cumulative natural-log score, and
// the adapter state needed to extend the path. TokenSequence always
// starts with the blank sentinel paired with timestep -1.
//
// Hypotheses are copy-extended: expansions fork the parent and append,
// the parent is never touched. Two hypotheses are duplicates iff their
// TokenSequence and LastFrame match, regardless of the duration choices
// that led there.
type Hypothesis struct {
	// Score is the cumulative path log-probability (natural log).
	Score float64

	// TokenSequence is the decoded path, starting with the blank sentinel.
	TokenSequence []int

	// Timesteps holds the emission frame of each TokenSequence entry and
	// always matches its length. The sentinel carries -1.
	Timesteps []int

	// DecoderState is the scorer state after emitting this path.
	DecoderState DecoderState

	// DecoderOutputs caches decoder outputs along this path; the last
	// entry feeds the next joint call during mAES lookahead. Nil under
	// the default search.
	DecoderOutputs []DecoderOutput

	// LastFrame is the encoder frame this hypothesis currently occupies.
	// It never decreases along an expansion chain.
	LastFrame int

	// LMState is the shallow-fusion state; nil without a language model.
	LMState LMState
}

// newSeedHypothesis returns the per-sample start hypothesis: score zero,
// the blank sentinel at timestep -1, frame cursor at zero.
func newSeedHypothesis(blank int) *Hypothesis {
	return &Hypothesis{
		Score:         0,
		TokenSequence: []int{blank},
		Timesteps:     []int{-1},
		LastFrame:     0,
	}
}

// fork returns a copy of h with its own sequence, timestep and output
// slices. Scalar fields and opaque states carry over; states are
// snapshots, so sharing them between parent and child is safe.
func (h *Hypothesis) fork() *Hypothesis {
	c := &Hypothesis{
		Score:         h.Score,
		TokenSequence: make([]int, len(h.TokenSequence)),
		Timesteps:     make([]int, len(h.Timesteps)),
		DecoderState:  h.DecoderState,
		LastFrame:     h.LastFrame,
		LMState:       h.LMState,
	}
	copy(c.TokenSequence, h.TokenSequence)
	copy(c.Timesteps, h.Timesteps)
	if h.DecoderOutputs != nil {
		c.DecoderOutputs = make([]DecoderOutput, len(h.DecoderOutputs))
		copy(c.DecoderOutputs, h.DecoderOutputs)
	}

	return c
}

// Tokens returns the decoded token ids without the leading blank
// sentinel. The returned slice aliases the hypothesis.
func (h *Hypothesis) Tokens() []int {
	if len(h.TokenSequence) == 0 {
		return nil
	}
	return h.TokenSequence[1:]
}

// EmissionTimesteps returns the emission frames aligned with Tokens,
// without the sentinel's -1 entry. The returned slice aliases the
// hypothesis.
func (h *Hypothesis) EmissionTimesteps() []int {
	if len(h.Timesteps) == 0 {
		return nil
	}
	return h.Timesteps[1:]
}

// equalTokens reports whether two token sequences are identical.
func equalTokens(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
