package onnxscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLSTMState_RowRoundTrip(t *testing.T) {
	// 2 layers, batch 3, hidden 4, every cell distinguishable.
	s := newLSTMState(2, 3, 4)
	for l := 0; l < 2; l++ {
		for b := 0; b < 3; b++ {
			for x := 0; x < 4; x++ {
				idx := l*3*4 + b*4 + x
				s.h[idx] = float32(100*l + 10*b + x)
				s.c[idx] = -float32(100*l + 10*b + x)
			}
		}
	}

	one := s.row(1)
	require.Equal(t, 1, one.batch)
	assert.Equal(t, []float32{10, 11, 12, 13, 110, 111, 112, 113}, one.h,
		"row 1 gathers its slice from every layer")
	assert.Equal(t, []float32{-10, -11, -12, -13, -110, -111, -112, -113}, one.c)

	// Scatter the same row into slot 0 of a smaller container.
	dst := newLSTMState(2, 2, 4)
	dst.copyRow(0, s, 1)
	assert.Equal(t, []float32{10, 11, 12, 13}, dst.h[0:4], "layer 0, slot 0")
	assert.Equal(t, []float32{110, 111, 112, 113}, dst.h[8:12], "layer 1, slot 0")
}

func TestLSTMState_ZeroRowClearsOnlyThatRow(t *testing.T) {
	s := newLSTMState(1, 2, 3)
	for i := range s.h {
		s.h[i] = 1
		s.c[i] = 2
	}

	s.zeroRow(0)
	assert.Equal(t, []float32{0, 0, 0, 1, 1, 1}, s.h)
	assert.Equal(t, []float32{0, 0, 0, 2, 2, 2}, s.c)
}

func TestFlattenFeatures_LaysOutFeatureMajor(t *testing.T) {
	features := [][]float32{{1, 2}, {3, 4}, {5, 6}}

	flat, dim, err := flattenFeatures(features)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	// All frames of feature 0 first, then all frames of feature 1.
	assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, flat)
}

func TestFlattenFeatures_RejectsBadInput(t *testing.T) {
	_, _, err := flattenFeatures(nil)
	assert.ErrorIs(t, err, ErrBadInput, "no frames")

	_, _, err = flattenFeatures([][]float32{{}})
	assert.ErrorIs(t, err, ErrBadInput, "empty feature vector")

	_, _, err = flattenFeatures([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrBadInput, "ragged rows")
}

func TestTransposeFrames_InvertsFlattenAndTruncates(t *testing.T) {
	features := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	flat, dim, err := flattenFeatures(features)
	require.NoError(t, err)

	back := transposeFrames(flat, dim, len(features), len(features))
	assert.Equal(t, features, back)

	truncated := transposeFrames(flat, dim, len(features), 2)
	assert.Equal(t, features[:2], truncated, "valid length drops padding frames")
}

func TestWiden(t *testing.T) {
	assert.Equal(t, []float64{1, -2.5, 0}, widen([]float32{1, -2.5, 0}))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultPredLayers, cfg.PredLayers)
	assert.Equal(t, DefaultPredHidden, cfg.PredHidden)

	cfg = Config{PredLayers: 2, PredHidden: 640}.withDefaults()
	assert.Equal(t, 2, cfg.PredLayers)
	assert.Equal(t, 640, cfg.PredHidden)
}
