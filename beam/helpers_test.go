// Package beam_test contains test fixtures for the beam package: a
// deterministic stub Scorer whose joint logits are a pure function of
// the encoder frame index and the last emitted token, a stub language
// model with fixed per-label increments, and an independent log-softmax
// oracle for computing expected scores.
package beam_test

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"tdtbeam/beam"
)

// stubOut carries the last emitted token, which is all the stub joint
// needs to condition on.
type stubOut struct{ last int }

// stubState records the token path that produced it.
type stubState struct{ key string }

// stubScorer drives the search with deterministic logits. The logits
// function receives the encoder frame index (frames built by frames or
// framesFrom carry their index) and the hypothesis's last emitted token.
type stubScorer struct {
	logits func(frame, lastToken int) []float64

	// scoreMisses counts decoder steps that missed the cache.
	scoreMisses int
	batchCalls  int
	jointCalls  int
}

func (s *stubScorer) InitializeState(n int) beam.DecoderState {
	return stubState{key: "init"}
}

func (s *stubScorer) ScoreHypothesis(h *beam.Hypothesis, cache *beam.StepCache) (beam.DecoderOutput, beam.DecoderState, error) {
	key := beam.PathKey(h.TokenSequence)
	if out, state, ok := cache.Lookup(key); ok {
		return out, state, nil
	}
	s.scoreMisses++
	out := stubOut{last: h.TokenSequence[len(h.TokenSequence)-1]}
	state := stubState{key: key}
	cache.Store(key, out, state)

	return out, state, nil
}

func (s *stubScorer) BatchScoreHypotheses(hyps []*beam.Hypothesis, cache *beam.StepCache, state beam.DecoderState) ([]beam.DecoderOutput, beam.DecoderState, error) {
	s.batchCalls++
	outs := make([]beam.DecoderOutput, len(hyps))
	for i, h := range hyps {
		out, _, err := s.ScoreHypothesis(h, cache)
		if err != nil {
			return nil, nil, err
		}
		outs[i] = out
	}

	return outs, state, nil
}

func (s *stubScorer) BatchSelectState(state beam.DecoderState, i int) beam.DecoderState {
	return state
}

func (s *stubScorer) BatchInitializeStates(state beam.DecoderState, states []beam.DecoderState) beam.DecoderState {
	return state
}

func (s *stubScorer) Joint(frame []float32, out beam.DecoderOutput) ([]float64, error) {
	s.jointCalls++
	raw := s.logits(int(frame[0]), out.(stubOut).last)
	return append([]float64(nil), raw...), nil
}

// stubLM assigns a fixed natural-log increment per label; states record
// the consumed history so fusion can be observed to advance them.
type stubLM struct {
	inc map[int]float64
}

func (m stubLM) InitialState() beam.LMState { return "<s>" }

func (m stubLM) Score(state beam.LMState, label int) (float64, beam.LMState) {
	next := state.(string) + " " + strconv.Itoa(label)
	return m.inc[label], next
}

// frames builds n encoder frames, each carrying its own index for the
// stub joint.
func frames(n int) [][]float32 {
	return framesFrom(0, n)
}

// framesFrom builds n encoder frames numbered consecutively from start.
func framesFrom(start, n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(start + i)}
	}

	return out
}

// fixedLogits ignores frame and token context and always returns vals.
func fixedLogits(vals ...float64) func(int, int) []float64 {
	return func(int, int) []float64 { return vals }
}

// poisonedAbove returns vals for frames below cut and an all negative
// infinity vector for frames at or above it.
func poisonedAbove(cut int, vals ...float64) func(int, int) []float64 {
	bad := make([]float64, len(vals))
	for i := range bad {
		bad[i] = math.Inf(-1)
	}
	return func(frame, _ int) []float64 {
		if frame >= cut {
			return bad
		}
		return vals
	}
}

// refLogSoftmax is an independent reference normalization used to
// compute expected hypothesis scores.
func refLogSoftmax(vals []float64) []float64 {
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for _, v := range vals {
		sum += math.Exp(v - max)
	}
	norm := max + math.Log(sum)

	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v - norm
	}

	return out
}

// decodeOne decodes a single sample and fails the test on any call-level
// or sample-level error.
func decodeOne(t *testing.T, dec *beam.Decoder, enc [][]float32) []*beam.Hypothesis {
	t.Helper()

	results, err := dec.Decode(context.Background(), [][][]float32{enc}, nil)
	require.NoError(t, err, "decode should not fail at the call level")
	require.Len(t, results, 1, "one sample in, one result out")
	require.NoError(t, results[0].Err, "sample decode should succeed")

	return results[0].Hypotheses
}
