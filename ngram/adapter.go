package ngram

import (
	"fmt"
	"strconv"

	"tdtbeam/beam"
)

// Adapter scores beam-search token continuations against a Model,
// satisfying the decoder's LanguageModel contract. States are word
// histories and are never mutated once handed out, so hypotheses may
// share them freely.
type Adapter struct {
	model  *Model
	enc    Encoding
	offset int
}

var _ beam.LanguageModel = (*Adapter)(nil)

// NewAdapter wraps model for shallow fusion using the given label
// encoding.
func NewAdapter(model *Model, enc Encoding, opts ...AdapterOption) (*Adapter, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	if enc != EncodeDecimal && enc != EncodeSubword {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, enc)
	}
	a := &Adapter{model: model, enc: enc, offset: DefaultTokenOffset}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// InitialState returns the begin-sentence state: the first Score call
// conditions on <s> without charging for it.
func (a *Adapter) InitialState() beam.LMState {
	return history{beginToken}
}

// Score returns ln P(label | state) and the state advanced past label.
func (a *Adapter) Score(state beam.LMState, label int) (float64, beam.LMState) {
	prev, _ := state.(history)
	word := a.word(label)
	lp := a.model.LogProb(prev, word)
	return lp, prev.extend(word, a.model.order-1)
}

// word renders a token id into its model vocabulary word.
func (a *Adapter) word(label int) string {
	if a.enc == EncodeSubword {
		return string(rune(label + a.offset))
	}
	return strconv.Itoa(label)
}

// history is the fusion state: the most recent scored words, oldest
// first, capped at Order-1 entries.
type history []string

// extend returns a fresh history with word appended and at most max
// entries kept. The receiver is left untouched.
func (h history) extend(word string, max int) history {
	next := make(history, 0, len(h)+1)
	next = append(next, h...)
	next = append(next, word)
	if len(next) > max {
		next = next[len(next)-max:]
	}
	return next
}
