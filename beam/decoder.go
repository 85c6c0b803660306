package beam

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"tdtbeam/internal/logmath"
)

// Decoder runs beam-search decoding over batches of encoder output. It
// is immutable after New and safe for concurrent use as long as the
// configured Scorer and LanguageModel are.
type Decoder struct {
	scorer    Scorer
	opts      Options
	vocabSize int
	blank     int
	durations []int

	// maxCandidates is the mAES candidate budget: BeamSize + beta.
	maxCandidates int

	// zeroDurationIdx is the index of the zero bin, or -1 when absent.
	zeroDurationIdx int

	// minNonZeroDurationIdx is the index of the smallest positive bin,
	// used wherever a blank emission must be forced to advance.
	minNonZeroDurationIdx int
}

// Result holds one sample's decode outcome: the ranked hypotheses
// (length 1 when ReturnBest is set) or the error that failed the sample.
type Result struct {
	Hypotheses []*Hypothesis
	Err        error
}

// New constructs a Decoder for a model with vocabSize real tokens (the
// blank id is vocabSize) and the given duration bins. The whole
// configuration is validated here; no decode ever runs on a rejected
// configuration.
func New(scorer Scorer, vocabSize int, durations []int, opts ...Option) (*Decoder, error) {
	if scorer == nil {
		return nil, ErrNilScorer
	}

	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(vocabSize, durations); err != nil {
		return nil, err
	}

	if cfg.BeamSize == 1 {
		log.Info().Msg("beam size 1 runs the full beam machinery; a dedicated greedy decoder would serve better")
	}

	d := &Decoder{
		scorer:          scorer,
		opts:            cfg,
		vocabSize:       vocabSize,
		blank:           vocabSize,
		durations:       append([]int(nil), durations...),
		maxCandidates:   cfg.BeamSize + cfg.MAESExpansionBeta,
		zeroDurationIdx: -1,
	}
	for i, dur := range d.durations {
		if dur == 0 && d.zeroDurationIdx < 0 {
			d.zeroDurationIdx = i
		}
	}
	d.minNonZeroDurationIdx = minPositiveIndex(d.durations)

	return d, nil
}

// Options returns a copy of the validated configuration.
func (d *Decoder) Options() Options {
	return d.opts
}

// Decode runs the configured search over every sample of the batch.
// batch[i] is frame-major encoder output for sample i; lengths[i] is the
// number of valid frames (nil lengths means every frame is valid).
//
// Samples decode sequentially and independently: one sample's failure is
// recorded on its Result and does not abort the rest. ctx is checked
// between samples only; there is no cancellation inside a sample.
func (d *Decoder) Decode(ctx context.Context, batch [][][]float32, lengths []int) ([]Result, error) {
	return d.decode(ctx, batch, lengths, nil)
}

// DecodeSeeded is Decode with per-sample partial-hypothesis seeds. No
// strategy implements seeding, so any non-nil seed fails its sample with
// ErrPartialHypotheses; the call shape exists so callers get an explicit
// failure instead of a silently dropped seed.
func (d *Decoder) DecodeSeeded(ctx context.Context, batch [][][]float32, lengths []int, seeds []*Hypothesis) ([]Result, error) {
	if seeds != nil && len(seeds) != len(batch) {
		return nil, fmt.Errorf("%w: %d samples, %d seeds", ErrBatchMismatch, len(batch), len(seeds))
	}
	return d.decode(ctx, batch, lengths, seeds)
}

func (d *Decoder) decode(ctx context.Context, batch [][][]float32, lengths []int, seeds []*Hypothesis) ([]Result, error) {
	if lengths != nil && len(lengths) != len(batch) {
		return nil, fmt.Errorf("%w: %d samples, %d lengths", ErrBatchMismatch, len(batch), len(lengths))
	}

	results := make([]Result, len(batch))
	for i, sample := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		enc := sample
		if lengths != nil {
			n := lengths[i]
			if n < 0 || n > len(sample) {
				return nil, fmt.Errorf("%w: sample %d has %d frames, length %d", ErrBatchMismatch, i, len(sample), n)
			}
			enc = sample[:n]
		}

		var seed *Hypothesis
		if seeds != nil {
			seed = seeds[i]
		}

		hyps, err := d.search(enc, seed)
		if err == nil && len(hyps) == 0 {
			err = fmt.Errorf("%w: no hypothesis survived", ErrDegenerateDistribution)
		}
		if err != nil {
			log.Warn().Int("sample", i).Err(err).Msg("sample decode failed")
			results[i] = Result{Err: err}
			continue
		}

		results[i] = Result{Hypotheses: d.pack(hyps)}
	}

	return results, nil
}

// search dispatches one sample to the configured strategy.
func (d *Decoder) search(enc [][]float32, seed *Hypothesis) ([]*Hypothesis, error) {
	if d.opts.Search == SearchMAES {
		return d.runMAES(enc, seed)
	}
	return d.runDefaultSearch(enc, seed)
}

// pack strips adapter baggage off the ranked hypotheses and applies the
// ReturnBest shape.
func (d *Decoder) pack(hyps []*Hypothesis) []*Hypothesis {
	if d.opts.ReturnBest {
		hyps = hyps[:1]
	}
	for _, h := range hyps {
		h.DecoderState = nil
		h.DecoderOutputs = nil
		h.LMState = nil
	}
	return hyps
}

// frameLogProbs runs the joint for one (encoder frame, decoder output)
// pair and returns the two independently log-softmax-normalized
// segments: token log-probs (blank last) and duration log-probs. The
// softmax temperature divides the raw logits first.
func (d *Decoder) frameLogProbs(encFrame []float32, out DecoderOutput) ([]float64, []float64, error) {
	logits, err := d.scorer.Joint(encFrame, out)
	if err != nil {
		return nil, nil, fmt.Errorf("joint: %w", err)
	}
	want := d.vocabSize + 1 + len(d.durations)
	if len(logits) != want {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidLogits, len(logits), want)
	}

	if d.opts.SoftmaxTemperature != 1 {
		logmath.Scale(logits, 1/d.opts.SoftmaxTemperature)
	}

	tokenLogp := logmath.LogSoftmax(logits[:d.vocabSize+1])
	durLogp := logmath.LogSoftmax(logits[d.vocabSize+1:])
	return tokenLogp, durLogp, nil
}

// minPositiveIndex returns the index of the smallest positive duration
// bin, preferring the first occurrence. Validation guarantees one
// exists.
func minPositiveIndex(durations []int) int {
	best := -1
	for i, dur := range durations {
		if dur <= 0 {
			continue
		}
		if best < 0 || dur < durations[best] {
			best = i
		}
	}
	return best
}

// isFinite reports whether f is neither NaN nor an infinity. Scores in
// any kept set must stay finite; children that would break that are
// dropped at creation.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
