// Package ngram loads ARPA-format n-gram language models and adapts
// them for shallow fusion during beam decoding.
//
// ARPA files store base-10 log-probabilities; the loader converts them
// to natural logarithms once, at load time, so every score the package
// hands out composes directly with the decoder's log-domain arithmetic.
// Scoring applies Katz backoff: when an n-gram is absent the context's
// backoff weight is charged and the query retries one order lower,
// bottoming out at the <unk> unigram for out-of-vocabulary words.
//
// Adapter bridges a Model to the decoder's LanguageModel contract.
// Token ids are rendered into model vocabulary words either as decimal
// strings (word-level models) or as single runes offset into printable
// space (subword models trained on remapped pieces).
//
// Typical usage:
//
//	model, err := ngram.Load("lm.arpa")
//	if err != nil {
//		return err
//	}
//	lm, err := ngram.NewAdapter(model, ngram.EncodeSubword)
//	if err != nil {
//		return err
//	}
//	dec, err := beam.New(scorer, vocabSize, durations,
//	    beam.WithSearchType(beam.SearchMAES),
//	    beam.WithLanguageModel(lm, 0.3),
//	)
package ngram
