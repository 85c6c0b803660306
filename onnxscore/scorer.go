package onnxscore

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"tdtbeam/beam"
)

var _ beam.Scorer = (*Engine)(nil)

// InitializeState returns zeroed LSTM tensors sized for n hypotheses.
func (e *Engine) InitializeState(n int) beam.DecoderState {
	return newLSTMState(e.layers, n, e.hidden)
}

// ScoreHypothesis advances the prediction network one step for h,
// memoizing the result under the hypothesis's token path.
func (e *Engine) ScoreHypothesis(h *beam.Hypothesis, cache *beam.StepCache) (beam.DecoderOutput, beam.DecoderState, error) {
	key := beam.PathKey(h.TokenSequence)
	if out, state, ok := cache.Lookup(key); ok {
		return out, state, nil
	}

	state, ok := h.DecoderState.(*lstmState)
	if !ok || state == nil {
		state = newLSTMState(e.layers, 1, e.hidden)
	}
	if state.batch != 1 {
		return nil, nil, fmt.Errorf("%w: batch %d state on a single hypothesis", ErrBadState, state.batch)
	}

	label := h.TokenSequence[len(h.TokenSequence)-1]
	rows, next, err := e.stepDecoder([]int64{int64(label)}, state)
	if err != nil {
		return nil, nil, err
	}
	cache.Store(key, rows[0], next)
	return rows[0], next, nil
}

// BatchScoreHypotheses advances every hypothesis one step in a single
// decoder run, consulting the cache per hypothesis and stepping only
// the misses.
func (e *Engine) BatchScoreHypotheses(hyps []*beam.Hypothesis, cache *beam.StepCache, state beam.DecoderState) ([]beam.DecoderOutput, beam.DecoderState, error) {
	batched, ok := state.(*lstmState)
	if !ok || batched == nil || batched.batch != len(hyps) {
		return nil, nil, fmt.Errorf("%w: batched state does not cover %d hypotheses", ErrBadState, len(hyps))
	}

	n := len(hyps)
	outs := make([]beam.DecoderOutput, n)
	next := newLSTMState(e.layers, n, e.hidden)
	miss := make([]int, 0, n)
	for i, h := range hyps {
		out, st, ok := cache.Lookup(beam.PathKey(h.TokenSequence))
		if !ok {
			miss = append(miss, i)
			continue
		}
		outs[i] = out
		if s, ok := st.(*lstmState); ok && s != nil {
			next.copyRow(i, s, 0)
		}
	}

	if len(miss) > 0 {
		sub := newLSTMState(e.layers, len(miss), e.hidden)
		labels := make([]int64, len(miss))
		for j, i := range miss {
			sub.copyRow(j, batched, i)
			seq := hyps[i].TokenSequence
			labels[j] = int64(seq[len(seq)-1])
		}

		rows, stepped, err := e.stepDecoder(labels, sub)
		if err != nil {
			return nil, nil, err
		}
		for j, i := range miss {
			outs[i] = rows[j]
			one := stepped.row(j)
			next.copyRow(i, one, 0)
			cache.Store(beam.PathKey(hyps[i].TokenSequence), rows[j], one)
		}
	}
	return outs, next, nil
}

// BatchSelectState copies hypothesis i's slice out of a batched state.
func (e *Engine) BatchSelectState(state beam.DecoderState, i int) beam.DecoderState {
	s, ok := state.(*lstmState)
	if !ok || s == nil || i < 0 || i >= s.batch {
		return nil
	}
	return s.row(i)
}

// BatchInitializeStates packs per-hypothesis states back into one
// batched container, reusing state's buffers when the batch matches.
func (e *Engine) BatchInitializeStates(state beam.DecoderState, states []beam.DecoderState) beam.DecoderState {
	dst, ok := state.(*lstmState)
	if !ok || dst == nil || dst.batch != len(states) {
		dst = newLSTMState(e.layers, len(states), e.hidden)
	}
	for i, st := range states {
		if s, ok := st.(*lstmState); ok && s != nil {
			dst.copyRow(i, s, 0)
		} else {
			dst.zeroRow(i)
		}
	}
	return dst
}

// Joint fuses one encoder frame with one decoder output row into raw
// logits: the token segment with blank last, then the duration bins.
func (e *Engine) Joint(encFrame []float32, out beam.DecoderOutput) ([]float64, error) {
	dec, ok := out.([]float32)
	if !ok || len(dec) == 0 {
		return nil, fmt.Errorf("%w: joint needs a decoder output row", ErrBadState)
	}
	if len(encFrame) == 0 {
		return nil, fmt.Errorf("%w: empty encoder frame", ErrBadInput)
	}

	encTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(encFrame)), 1), encFrame)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: encoder frame tensor: %w", err)
	}
	defer encTensor.Destroy()

	decTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(dec)), 1), dec)
	if err != nil {
		return nil, fmt.Errorf("onnxscore: decoder row tensor: %w", err)
	}
	defer decTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.joint.Run([]ort.Value{encTensor, decTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnxscore: joint run: %w", err)
	}
	defer destroyAll(outputs)

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: joint output is not a float32 tensor", ErrShape)
	}
	return widen(logits.GetData()), nil
}

// stepDecoder runs the prediction network once for a batch of labels
// with their packed recurrent state, returning one output row per
// label and the stepped state.
func (e *Engine) stepDecoder(labels []int64, state *lstmState) ([]beam.DecoderOutput, *lstmState, error) {
	b := len(labels)
	if b == 0 {
		return nil, newLSTMState(e.layers, 0, e.hidden), nil
	}

	labelTensor, err := ort.NewTensor(ort.NewShape(int64(b), 1), labels)
	if err != nil {
		return nil, nil, fmt.Errorf("onnxscore: label tensor: %w", err)
	}
	defer labelTensor.Destroy()

	stateShape := ort.NewShape(int64(e.layers), int64(b), int64(e.hidden))
	hTensor, err := ort.NewTensor(stateShape, state.h)
	if err != nil {
		return nil, nil, fmt.Errorf("onnxscore: state tensor: %w", err)
	}
	defer hTensor.Destroy()
	cTensor, err := ort.NewTensor(stateShape, state.c)
	if err != nil {
		return nil, nil, fmt.Errorf("onnxscore: state tensor: %w", err)
	}
	defer cTensor.Destroy()

	outputs := []ort.Value{nil, nil, nil}
	if err := e.decoder.Run([]ort.Value{labelTensor, hTensor, cTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("onnxscore: decoder run: %w", err)
	}
	defer destroyAll(outputs)

	decT, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("%w: decoder output is not a float32 tensor", ErrShape)
	}
	dec := decT.GetData()
	if len(dec) == 0 || len(dec)%b != 0 {
		return nil, nil, fmt.Errorf("%w: decoder output length %d for batch %d", ErrShape, len(dec), b)
	}
	rowLen := len(dec) / b
	rows := make([]beam.DecoderOutput, b)
	for i := range rows {
		rows[i] = append([]float32(nil), dec[i*rowLen:(i+1)*rowLen]...)
	}

	next := newLSTMState(e.layers, b, e.hidden)
	if err := copyStateOutput(outputs[1], next.h); err != nil {
		return nil, nil, err
	}
	if err := copyStateOutput(outputs[2], next.c); err != nil {
		return nil, nil, err
	}
	return rows, next, nil
}

// copyStateOutput copies a stepped h or c tensor into the packed
// buffer, checking the size against the expected geometry.
func copyStateOutput(value ort.Value, buf []float32) error {
	t, ok := value.(*ort.Tensor[float32])
	if !ok {
		return fmt.Errorf("%w: decoder state output is not a float32 tensor", ErrShape)
	}
	data := t.GetData()
	if len(data) != len(buf) {
		return fmt.Errorf("%w: decoder state output has %d values, want %d", ErrShape, len(data), len(buf))
	}
	copy(buf, data)
	return nil
}

// widen converts the runtime's float32 logits to the search's float64.
func widen(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
