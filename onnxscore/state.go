package onnxscore

// lstmState packs the prediction network's recurrent tensors for a
// batch of hypotheses: h and c are both laid out [layers, batch,
// hidden], row-major, matching the exported decoder graph.
type lstmState struct {
	h, c   []float32
	layers int
	batch  int
	hidden int
}

func newLSTMState(layers, batch, hidden int) *lstmState {
	n := layers * batch * hidden
	return &lstmState{
		h:      make([]float32, n),
		c:      make([]float32, n),
		layers: layers,
		batch:  batch,
		hidden: hidden,
	}
}

// row returns a batch-1 copy of entry i.
func (s *lstmState) row(i int) *lstmState {
	one := newLSTMState(s.layers, 1, s.hidden)
	one.copyRow(0, s, i)
	return one
}

// copyRow copies src's row j into s's row i, layer by layer.
func (s *lstmState) copyRow(i int, src *lstmState, j int) {
	for l := 0; l < s.layers; l++ {
		dst := l*s.batch*s.hidden + i*s.hidden
		from := l*src.batch*src.hidden + j*src.hidden
		copy(s.h[dst:dst+s.hidden], src.h[from:from+s.hidden])
		copy(s.c[dst:dst+s.hidden], src.c[from:from+s.hidden])
	}
}

// zeroRow clears row i.
func (s *lstmState) zeroRow(i int) {
	for l := 0; l < s.layers; l++ {
		off := l*s.batch*s.hidden + i*s.hidden
		clear(s.h[off : off+s.hidden])
		clear(s.c[off : off+s.hidden])
	}
}
