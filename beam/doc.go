// Package beam implements beam-search decoding for Token-and-Duration
// Transducer (TDT) sequence models.
//
// A TDT model emits (token, duration) pairs: every joint-network call
// yields one logit segment over the vocabulary plus blank and a second,
// independently normalized segment over a fixed set of duration bins.
// The duration advances the encoder frame cursor, so a hypothesis walks
// the frame axis in variable steps and the blank token must always
// consume at least one frame.
//
// Two interchangeable strategies operate over the same Hypothesis,
// Scorer and LanguageModel contracts:
//
//   - Default Beam Search: expands one hypothesis at a time per frame,
//     pairing the top non-blank tokens with the top durations, with
//     early frame termination once pending hypotheses dominate.
//   - Modified Adaptive Expansion Search (mAES): batches the whole
//     frame's working set, performs up to a configured number of chained
//     zero-duration lookahead steps, prunes expansions by value against
//     the per-hypothesis best, and supports shallow n-gram
//     language-model fusion.
//
// Hypotheses that reach the same frame with the same token sequence are
// merged by log-sum-exp so probability mass is preserved rather than
// discarded. Final ranking orders by raw or length-normalized score.
//
// Construction validates the whole configuration up front and returns
// sentinel errors matchable with errors.Is. Decoding is deterministic:
// fixed encoder input and adapter responses reproduce bit-identical
// ranked results.
//
// Typical usage:
//
//	dec, err := beam.New(scorer, vocabSize, []int{0, 1, 2, 3, 4},
//	    beam.WithBeamSize(4),
//	    beam.WithSearchType(beam.SearchMAES),
//	)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("decoder construction failed")
//	}
//	results, err := dec.Decode(ctx, batch, lengths)
package beam
