// Package tdtbeam is beam-search decoding for Token-and-Duration
// Transducer (TDT) models.
//
// A TDT joint predicts a token distribution and a duration distribution
// at once, so the search can skip encoder frames instead of revisiting
// every frame per emission. This module turns those joint outputs into
// ranked transcripts:
//
//	beam/      — the search itself: Default Beam Search and the modified
//	             Adaptive Expansion Search (maes), hypothesis bookkeeping,
//	             batching, n-best ranking
//	ngram/     — ARPA n-gram language models and the shallow-fusion
//	             adapter for the maes search
//	onnxscore/ — a beam.Scorer backed by ONNX Runtime sessions for
//	             exported encoder, decoder and joint graphs
//
// cmd/tdtdecode wires the three together into a CLI; internal/ holds its
// configuration, logging and command plumbing.
//
// Minimal decoding loop, given a Scorer implementation:
//
//	dec, err := beam.New(scorer, vocabSize, []int{0, 1, 2, 3, 4},
//		beam.WithSearchType(beam.SearchMAES),
//		beam.WithBeamSize(8),
//	)
//	if err != nil {
//		return err
//	}
//	results, err := dec.Decode(ctx, batch, lengths)
//
// Every strategy, option and invariant is documented in the beam
// package; start there.
package tdtbeam
