package ngram

import (
	"errors"
	"fmt"
)

var (
	// ErrARPASyntax reports a structurally invalid ARPA file.
	ErrARPASyntax = errors.New("ngram: malformed ARPA file")

	// ErrNilModel reports an adapter constructed without a model.
	ErrNilModel = errors.New("ngram: nil model")

	// ErrUnknownEncoding reports an unrecognized label encoding.
	ErrUnknownEncoding = errors.New("ngram: unknown label encoding")
)

// Encoding selects how integer token ids are rendered into the words of
// the language-model vocabulary.
type Encoding uint8

const (
	// EncodeDecimal renders ids as decimal strings: label 17 scores the
	// word "17". The convention for word-level vocabularies.
	EncodeDecimal Encoding = iota

	// EncodeSubword renders ids as single runes offset into printable
	// space: label 17 with the default offset scores the word "u". The
	// convention for subword vocabularies, whose training pipelines
	// remap piece ids the same way.
	EncodeSubword
)

// DefaultTokenOffset is the rune offset EncodeSubword applies unless
// overridden with WithTokenOffset.
const DefaultTokenOffset = 100

// String returns the parseable name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodeDecimal:
		return "decimal"
	case EncodeSubword:
		return "subword"
	default:
		return "unknown"
	}
}

// ParseEncoding maps a configuration name to its Encoding. Unrecognized
// names return ErrUnknownEncoding.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "decimal":
		return EncodeDecimal, nil
	case "subword":
		return EncodeSubword, nil
	default:
		return 0, fmt.Errorf("%w: %q (use one of: decimal, subword)", ErrUnknownEncoding, name)
	}
}

// AdapterOption tweaks an Adapter at construction.
type AdapterOption func(*Adapter)

// WithTokenOffset overrides the rune offset used by EncodeSubword. It
// has no effect on decimal encoding.
func WithTokenOffset(offset int) AdapterOption {
	return func(a *Adapter) { a.offset = offset }
}
