package beam_test

import (
	"context"
	"fmt"

	"tdtbeam/beam"
)

// fixedScorer is a minimal Scorer for the examples: the joint always
// favors token 0 at duration 1, regardless of its inputs.
type fixedScorer struct{}

func (fixedScorer) InitializeState(int) beam.DecoderState { return nil }

func (fixedScorer) ScoreHypothesis(*beam.Hypothesis, *beam.StepCache) (beam.DecoderOutput, beam.DecoderState, error) {
	return nil, nil, nil
}

func (fixedScorer) BatchScoreHypotheses(hyps []*beam.Hypothesis, _ *beam.StepCache, state beam.DecoderState) ([]beam.DecoderOutput, beam.DecoderState, error) {
	return make([]beam.DecoderOutput, len(hyps)), state, nil
}

func (fixedScorer) BatchSelectState(state beam.DecoderState, _ int) beam.DecoderState { return state }

func (fixedScorer) BatchInitializeStates(state beam.DecoderState, _ []beam.DecoderState) beam.DecoderState {
	return state
}

func (fixedScorer) Joint([]float32, beam.DecoderOutput) ([]float64, error) {
	return []float64{5, 1, 0, 0, 4, 1}, nil
}

// ExampleDecoder_Decode decodes one two-frame sample with a model of two
// real tokens, blank id 2, and duration bins {0,1,2}, then prints the
// best hypothesis.
func ExampleDecoder_Decode() {
	dec, err := beam.New(fixedScorer{}, 2, []int{0, 1, 2}, beam.WithBeamSize(2))
	if err != nil {
		fmt.Println("construct:", err)
		return
	}

	encoder := [][]float32{{0}, {0}} // two frames of a one-dimensional embedding
	results, err := dec.Decode(context.Background(), [][][]float32{encoder}, nil)
	if err != nil {
		fmt.Println("decode:", err)
		return
	}

	best := results[0].Hypotheses[0]
	fmt.Println("tokens:", best.Tokens())
	fmt.Println("frames:", best.EmissionTimesteps())
	// Output:
	// tokens: [0 0]
	// frames: [1 2]
}

// ExampleParseSearchType shows the strategy-name mapping, including the
// failure on an unrecognized name.
func ExampleParseSearchType() {
	st, _ := beam.ParseSearchType("maes")
	fmt.Println(st)

	_, err := beam.ParseSearchType("greedy")
	fmt.Println(err)
	// Output:
	// maes
	// beam: unknown search type: "greedy" (use one of: default, maes)
}
