package beam_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdtbeam/beam"
)

// newMAESDecoder builds a two-token maes decoder with expansion beta 0,
// which the two-token vocabulary can accommodate.
func newMAESDecoder(t *testing.T, scorer *stubScorer, durations []int, opts ...beam.Option) *beam.Decoder {
	t.Helper()

	base := []beam.Option{
		beam.WithSearchType(beam.SearchMAES),
		beam.WithBeamSize(2),
		beam.WithMAESExpansionBeta(0),
		beam.WithReturnBest(false),
	}
	dec, err := beam.New(scorer, 2, durations, append(base, opts...)...)
	require.NoError(t, err)

	return dec
}

// TestMAES_SingleFrameExpansion decodes one frame where the best pair is
// a token emission at duration 1 and the runner-up is a blank. The
// emission timestep records the frame the token was decided at, not the
// frame the duration advanced to.
func TestMAES_SingleFrameExpansion(t *testing.T) {
	scorer := &stubScorer{logits: fixedLogits(4, 0, 2 /* tokens */, 1, 3, 0 /* durations */)}
	dec := newMAESDecoder(t, scorer, []int{0, 1, 2})

	hyps := decodeOne(t, dec, frames(1))
	require.Len(t, hyps, 2)

	tok := refLogSoftmax([]float64{4, 0, 2})
	dur := refLogSoftmax([]float64{1, 3, 0})

	best := hyps[0]
	assert.Equal(t, []int{0}, best.Tokens())
	assert.Equal(t, []int{0}, best.EmissionTimesteps(), "emission is stamped with the current frame")
	assert.Equal(t, 1, best.LastFrame)
	assert.InDelta(t, tok[0]+dur[1], best.Score, 1e-9)

	second := hyps[1]
	assert.Empty(t, second.Tokens())
	assert.Equal(t, 1, second.LastFrame)
	assert.InDelta(t, tok[2]+dur[1], second.Score, 1e-9)

	assert.Equal(t, 2, scorer.batchCalls, "one priming call plus one batched update")
}

// TestMAES_LookaheadChainsZeroDurations favors a zero-duration token
// emission so the first expansion step feeds a second one within the
// same frame. The surviving paths are the step-0 blank and the step-1
// blank hanging off the chained emission; a blank predicted at the zero
// bin keeps the zero bin's score but advances by the minimum non-zero
// duration.
func TestMAES_LookaheadChainsZeroDurations(t *testing.T) {
	scorer := &stubScorer{logits: fixedLogits(4, 0, 2 /* tokens */, 3, 1, 0 /* durations */)}
	dec := newMAESDecoder(t, scorer, []int{0, 1, 2})

	hyps := decodeOne(t, dec, frames(1))
	require.Len(t, hyps, 2)

	tok := refLogSoftmax([]float64{4, 0, 2})
	dur := refLogSoftmax([]float64{3, 1, 0})
	pair := tok[0] + dur[0]      // token 0 at the zero bin
	blankPair := tok[2] + dur[0] // blank predicted at the zero bin

	best := hyps[0]
	assert.Equal(t, []int{0}, best.Tokens(), "the chained path wins under length normalization")
	assert.Equal(t, 1, best.LastFrame, "the blank advanced despite scoring the zero bin")
	assert.InDelta(t, pair+blankPair, best.Score, 1e-9)

	second := hyps[1]
	assert.Empty(t, second.Tokens())
	assert.Equal(t, 1, second.LastFrame)
	assert.InDelta(t, blankPair, second.Score, 1e-9)
}

// TestMAES_GammaPrunesAndFoldsFinalExpansion tightens the prune margin
// so only the best pair survives each step. The single chain runs the
// full step budget, emitting two tokens within one frame, and the final
// expansion absorbs the frame's blank probability at its most probable
// duration before closing.
func TestMAES_GammaPrunesAndFoldsFinalExpansion(t *testing.T) {
	scorer := &stubScorer{logits: fixedLogits(4, 0, 2 /* tokens */, 3, 1, 0 /* durations */)}
	dec := newMAESDecoder(t, scorer, []int{0, 1, 2},
		beam.WithMAESExpansionGamma(0.5),
	)

	hyps := decodeOne(t, dec, frames(1))
	require.Len(t, hyps, 1, "the tight margin prunes every competing expansion")

	tok := refLogSoftmax([]float64{4, 0, 2})
	dur := refLogSoftmax([]float64{3, 1, 0})
	pair := tok[0] + dur[0]

	best := hyps[0]
	assert.Equal(t, []int{0, 0}, best.Tokens(), "two lookahead steps emit two tokens in one frame")
	assert.Equal(t, []int{0, 0}, best.EmissionTimesteps())
	assert.Equal(t, 1, best.LastFrame, "the folded blank advances by the minimum non-zero bin")
	assert.InDelta(t, 2*pair+tok[2]+dur[1], best.Score, 1e-9,
		"the fold adds the blank at the substituted duration bin")
}

// TestMAES_ShallowFusionReranks fuses a language model that strongly
// prefers token 1 while the network slightly prefers token 0; fusion
// must flip the ranking, and removing the model must restore it.
func TestMAES_ShallowFusionReranks(t *testing.T) {
	logits := fixedLogits(3, 2.5, 2 /* tokens */, 2, 0 /* durations */)
	lm := stubLM{inc: map[int]float64{0: math.Log(0.1), 1: math.Log(0.9)}}

	fused := newMAESDecoder(t, &stubScorer{logits: logits}, []int{1, 2},
		beam.WithLanguageModel(lm, 1.0),
	)
	hyps := decodeOne(t, fused, frames(1))
	require.Len(t, hyps, 2)

	tok := refLogSoftmax([]float64{3, 2.5, 2})
	dur := refLogSoftmax([]float64{2, 0})

	assert.Equal(t, []int{1}, hyps[0].Tokens(), "fusion promotes the language model's preference")
	assert.InDelta(t, tok[1]+dur[0]+math.Log(0.9), hyps[0].Score, 1e-9)
	assert.Equal(t, []int{0}, hyps[1].Tokens())
	assert.InDelta(t, tok[0]+dur[0]+math.Log(0.1), hyps[1].Score, 1e-9)

	plain := newMAESDecoder(t, &stubScorer{logits: logits}, []int{1, 2})
	hyps = decodeOne(t, plain, frames(1))
	require.Len(t, hyps, 2)
	assert.Equal(t, []int{0}, hyps[0].Tokens(), "without fusion the network's preference stands")
}
