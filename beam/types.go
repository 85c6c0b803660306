package beam

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by construction and decoding.
var (
	// ErrNilScorer indicates that New was called without a Scorer.
	ErrNilScorer = errors.New("beam: scorer is nil")

	// ErrInvalidBeamSize indicates a beam size below 1.
	ErrInvalidBeamSize = errors.New("beam: beam size must be at least 1")

	// ErrUnknownSearchType indicates a search type name outside the
	// recognized set (default, maes, tsd, alsd, nsc).
	ErrUnknownSearchType = errors.New("beam: unknown search type")

	// ErrUnimplementedSearchType indicates a recognized search type that
	// has no implementation (tsd, alsd, nsc). Construction fails fast
	// instead of silently falling back to another strategy.
	ErrUnimplementedSearchType = errors.New("beam: search type is not implemented")

	// ErrAlignmentsUnsupported indicates PreserveAlignments=true, which
	// no strategy supports.
	ErrAlignmentsUnsupported = errors.New("beam: alignment preservation is not implemented")

	// ErrInvalidMAESSteps indicates a mAES lookahead depth below 2.
	ErrInvalidMAESSteps = errors.New("beam: maes lookahead depth must be at least 2")

	// ErrInvalidPrefixAlpha indicates a negative mAES prefix alpha.
	ErrInvalidPrefixAlpha = errors.New("beam: maes prefix alpha must be non-negative")

	// ErrInvalidExpansionBeta indicates a negative mAES expansion beta.
	ErrInvalidExpansionBeta = errors.New("beam: maes expansion beta must be non-negative")

	// ErrInvalidTemperature indicates a non-positive softmax temperature.
	ErrInvalidTemperature = errors.New("beam: softmax temperature must be positive")

	// ErrInvalidVocabSize indicates a vocabulary size below 1.
	ErrInvalidVocabSize = errors.New("beam: vocabulary size must be positive")

	// ErrVocabTooSmall indicates that beam size plus expansion beta
	// exceeds the vocabulary size under the maes search type.
	ErrVocabTooSmall = errors.New("beam: vocabulary is smaller than beam size plus expansion beta")

	// ErrInvalidDurations indicates an empty duration set, a negative
	// bin, or the absence of any positive bin. Without a positive bin a
	// blank emission could never advance the frame cursor.
	ErrInvalidDurations = errors.New("beam: durations must be non-negative and include a positive value")

	// ErrLMRequiresMAES indicates a language model configured with a
	// search type other than maes.
	ErrLMRequiresMAES = errors.New("beam: language model fusion requires the maes search type")

	// ErrPartialHypotheses indicates a partial-hypothesis seed, which no
	// strategy implements. The seed fails explicitly instead of being
	// silently ignored.
	ErrPartialHypotheses = errors.New("beam: partial hypothesis seeding is not implemented")

	// ErrBatchMismatch indicates that the encoder batch and the lengths
	// or seeds slices disagree in shape.
	ErrBatchMismatch = errors.New("beam: encoder batch and lengths disagree")

	// ErrInvalidLogits indicates a joint output whose length is not
	// vocabSize + 1 + len(durations).
	ErrInvalidLogits = errors.New("beam: joint logits have unexpected length")

	// ErrDegenerateDistribution indicates that the scorer produced a
	// distribution with no finite candidate, leaving nothing to expand.
	ErrDegenerateDistribution = errors.New("beam: scorer produced a non-finite distribution")
)

// SearchType selects the decoding strategy. Only SearchDefault and
// SearchMAES are implemented; the remaining named strategies are
// recognized so that configuration typos and unsupported requests fail
// distinguishably (ErrUnimplementedSearchType vs ErrUnknownSearchType).
type SearchType uint8

const (
	// SearchDefault is the per-hypothesis Default Beam Search.
	SearchDefault SearchType = iota

	// SearchMAES is the modified Adaptive Expansion Search.
	SearchMAES

	// SearchTSD is Time Synchronous Decoding (recognized, unimplemented).
	SearchTSD

	// SearchALSD is Alignment Length Synchronous Decoding (recognized,
	// unimplemented).
	SearchALSD

	// SearchNSC is Constrained Beam Search (recognized, unimplemented).
	SearchNSC
)

// String returns the configuration name of the search type.
func (t SearchType) String() string {
	switch t {
	case SearchDefault:
		return "default"
	case SearchMAES:
		return "maes"
	case SearchTSD:
		return "tsd"
	case SearchALSD:
		return "alsd"
	case SearchNSC:
		return "nsc"
	default:
		return fmt.Sprintf("searchtype(%d)", uint8(t))
	}
}

// ParseSearchType maps a configuration name to a SearchType. Unknown
// names return ErrUnknownSearchType; recognized-but-unimplemented names
// parse successfully and are rejected later by validation, so callers
// can distinguish a typo from an unsupported request.
func ParseSearchType(name string) (SearchType, error) {
	switch name {
	case "default":
		return SearchDefault, nil
	case "maes":
		return SearchMAES, nil
	case "tsd":
		return SearchTSD, nil
	case "alsd":
		return SearchALSD, nil
	case "nsc":
		return SearchNSC, nil
	default:
		return SearchDefault, fmt.Errorf("%w: %q (use one of: default, maes)", ErrUnknownSearchType, name)
	}
}

// Default configuration values.
const (
	// DefaultBeamSize is the search width used when none is configured.
	DefaultBeamSize = 4

	// DefaultMAESNumSteps is the mAES lookahead depth.
	DefaultMAESNumSteps = 2

	// DefaultMAESPrefixAlpha is the accepted-but-unused prefix budget.
	DefaultMAESPrefixAlpha = 1

	// DefaultMAESExpansionBeta is the extra candidate budget beyond the
	// beam size.
	DefaultMAESExpansionBeta = 2

	// DefaultMAESExpansionGamma is the prune-by-value margin.
	DefaultMAESExpansionGamma = 2.3

	// DefaultSoftmaxTemperature leaves the joint logits unscaled.
	DefaultSoftmaxTemperature = 1.0

	// DefaultLMAlpha is the shallow-fusion weight.
	DefaultLMAlpha = 0.3
)

// Options configures a Decoder.
//
// BeamSize            - search width (>= 1).
// Search              - strategy; only SearchDefault and SearchMAES run.
// ScoreNorm           - rank by Score/len(TokenSequence) instead of raw Score.
// ReturnBest          - keep only the top hypothesis per sample.
// MAESNumSteps        - lookahead depth per frame (>= 2, maes only).
// MAESPrefixAlpha     - accepted and validated but not consumed by the
//	                     expansion algorithm; no prefix-merge semantics
//	                     are attached to it.
// MAESExpansionBeta   - extra candidates beyond BeamSize (>= 0, maes only).
// MAESExpansionGamma  - expansions below best-gamma are pruned (maes only).
// SoftmaxTemperature  - divides joint logits before log-softmax (> 0).
// PreserveAlignments  - must remain false; true fails construction.
// LM / LMAlpha        - optional shallow fusion, maes only.
type Options struct {
	BeamSize           int
	Search             SearchType
	ScoreNorm          bool
	ReturnBest         bool
	MAESNumSteps       int
	MAESPrefixAlpha    int
	MAESExpansionBeta  int
	MAESExpansionGamma float64
	SoftmaxTemperature float64
	PreserveAlignments bool
	LM                 LanguageModel
	LMAlpha            float64
}

// Option is a functional option for configuring a Decoder.
type Option func(*Options)

// DefaultOptions returns Options with the package defaults: beam size 4,
// default search, normalized scores, best-only results, and the standard
// mAES budgets (2 steps, beta 2, gamma 2.3).
func DefaultOptions() Options {
	return Options{
		BeamSize:           DefaultBeamSize,
		Search:             SearchDefault,
		ScoreNorm:          true,
		ReturnBest:         true,
		MAESNumSteps:       DefaultMAESNumSteps,
		MAESPrefixAlpha:    DefaultMAESPrefixAlpha,
		MAESExpansionBeta:  DefaultMAESExpansionBeta,
		MAESExpansionGamma: DefaultMAESExpansionGamma,
		SoftmaxTemperature: DefaultSoftmaxTemperature,
		PreserveAlignments: false,
		LM:                 nil,
		LMAlpha:            DefaultLMAlpha,
	}
}

// WithBeamSize sets the search width. Values below 1 fail construction
// with ErrInvalidBeamSize.
func WithBeamSize(n int) Option {
	return func(o *Options) { o.BeamSize = n }
}

// WithSearchType selects the decoding strategy.
func WithSearchType(t SearchType) Option {
	return func(o *Options) { o.Search = t }
}

// WithScoreNorm toggles length-normalized ranking.
func WithScoreNorm(enabled bool) Option {
	return func(o *Options) { o.ScoreNorm = enabled }
}

// WithReturnBest toggles best-only versus full n-best results.
func WithReturnBest(enabled bool) Option {
	return func(o *Options) { o.ReturnBest = enabled }
}

// WithMAESNumSteps sets the mAES lookahead depth (>= 2).
func WithMAESNumSteps(n int) Option {
	return func(o *Options) { o.MAESNumSteps = n }
}

// WithMAESPrefixAlpha sets the prefix budget. The value is validated
// (>= 0) and stored but not consumed by the expansion algorithm.
func WithMAESPrefixAlpha(n int) Option {
	return func(o *Options) { o.MAESPrefixAlpha = n }
}

// WithMAESExpansionBeta sets the extra candidate budget beyond the beam
// size (>= 0).
func WithMAESExpansionBeta(n int) Option {
	return func(o *Options) { o.MAESExpansionBeta = n }
}

// WithMAESExpansionGamma sets the prune-by-value margin. Lower values
// prune harder; higher values admit more expansions per hypothesis.
func WithMAESExpansionGamma(g float64) Option {
	return func(o *Options) { o.MAESExpansionGamma = g }
}

// WithSoftmaxTemperature sets the divisor applied to joint logits before
// log-softmax (> 0).
func WithSoftmaxTemperature(temp float64) Option {
	return func(o *Options) { o.SoftmaxTemperature = temp }
}

// WithPreserveAlignments requests alignment recording. No strategy
// implements it, so true fails construction with ErrAlignmentsUnsupported.
func WithPreserveAlignments(enabled bool) Option {
	return func(o *Options) { o.PreserveAlignments = enabled }
}

// WithLanguageModel enables shallow fusion with the given model and
// weight. Requires SearchMAES; any other search type fails construction
// with ErrLMRequiresMAES.
func WithLanguageModel(lm LanguageModel, alpha float64) Option {
	return func(o *Options) {
		o.LM = lm
		o.LMAlpha = alpha
	}
}

// validate checks the full configuration against the model facts
// (vocabulary size and duration bins). Validation order mirrors the
// construction contract: alignment and beam checks first, then the
// strategy dispatch, then strategy-specific budgets, then model facts.
func (o *Options) validate(vocabSize int, durations []int) error {
	if o.PreserveAlignments {
		return ErrAlignmentsUnsupported
	}
	if o.BeamSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBeamSize, o.BeamSize)
	}

	switch o.Search {
	case SearchDefault, SearchMAES:
		// implemented
	case SearchTSD, SearchALSD, SearchNSC:
		return fmt.Errorf("%w: %s", ErrUnimplementedSearchType, o.Search)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSearchType, o.Search)
	}

	if o.Search == SearchMAES {
		if o.MAESPrefixAlpha < 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidPrefixAlpha, o.MAESPrefixAlpha)
		}
		if o.MAESExpansionBeta < 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidExpansionBeta, o.MAESExpansionBeta)
		}
		if vocabSize < o.BeamSize+o.MAESExpansionBeta {
			return fmt.Errorf("%w: beam %d + beta %d > vocabulary %d",
				ErrVocabTooSmall, o.BeamSize, o.MAESExpansionBeta, vocabSize)
		}
		if o.MAESNumSteps < 2 {
			return fmt.Errorf("%w: got %d", ErrInvalidMAESSteps, o.MAESNumSteps)
		}
	}

	if o.SoftmaxTemperature <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, o.SoftmaxTemperature)
	}
	if vocabSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidVocabSize, vocabSize)
	}
	if err := validateDurations(durations); err != nil {
		return err
	}
	if o.LM != nil && o.Search != SearchMAES {
		return fmt.Errorf("%w: configured %s", ErrLMRequiresMAES, o.Search)
	}

	return nil
}

// validateDurations requires a non-empty, non-negative duration set with
// at least one positive bin.
func validateDurations(durations []int) error {
	if len(durations) == 0 {
		return fmt.Errorf("%w: empty set", ErrInvalidDurations)
	}
	hasPositive := false
	for _, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: negative bin %d", ErrInvalidDurations, d)
		}
		if d > 0 {
			hasPositive = true
		}
	}
	if !hasPositive {
		return fmt.Errorf("%w: all bins are zero", ErrInvalidDurations)
	}

	return nil
}
