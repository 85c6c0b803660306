package beam_test

import (
	"context"
	"testing"

	"tdtbeam/beam"
)

// benchLogits builds a deterministic synthetic logits table: values vary
// with the frame and the last emitted token so the search stays busy
// without ever producing a degenerate distribution.
func benchLogits(vocab, durations int) func(frame, lastToken int) []float64 {
	size := vocab + 1 + durations
	return func(frame, lastToken int) []float64 {
		out := make([]float64, size)
		for j := range out {
			out[j] = float64((frame*31+lastToken*17+j*7)%23) / 5.0
		}
		return out
	}
}

// BenchmarkDecode_DefaultSearch measures one 50-frame sample through the
// Default Beam Search with a 32-token vocabulary.
func BenchmarkDecode_DefaultSearch(b *testing.B) {
	scorer := &stubScorer{logits: benchLogits(32, 5)}
	dec, err := beam.New(scorer, 32, []int{0, 1, 2, 3, 4}, beam.WithBeamSize(4))
	if err != nil {
		b.Fatal(err)
	}
	batch := [][][]float32{frames(50)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(context.Background(), batch, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecode_MAES measures the same sample through the modified
// Adaptive Expansion Search.
func BenchmarkDecode_MAES(b *testing.B) {
	scorer := &stubScorer{logits: benchLogits(32, 5)}
	dec, err := beam.New(scorer, 32, []int{0, 1, 2, 3, 4},
		beam.WithSearchType(beam.SearchMAES),
		beam.WithBeamSize(4),
	)
	if err != nil {
		b.Fatal(err)
	}
	batch := [][][]float32{frames(50)}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dec.Decode(context.Background(), batch, nil); err != nil {
			b.Fatal(err)
		}
	}
}
