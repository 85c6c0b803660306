package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdtbeam/beam"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadFrames(t *testing.T) {
	path := writeTemp(t, "utt.json", "[[1.0, 2.0], [3.0, 4.0]]")

	frames, err := readFrames(path)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, frames)
}

func TestReadFramesRejectsBadInput(t *testing.T) {
	empty := writeTemp(t, "empty.json", "[]")
	_, err := readFrames(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frames")

	garbage := writeTemp(t, "garbage.json", "{not json")
	_, err = readFrames(garbage)
	require.Error(t, err)
}

func TestLoadVocabWithIds(t *testing.T) {
	path := writeTemp(t, "vocab.txt", "▁the 0\n▁cat 1\n  2\ns 3\n")

	vocab, err := loadVocab(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"▁the", "▁cat", " ", "s"}, vocab)
}

func TestLoadVocabPlainLines(t *testing.T) {
	path := writeTemp(t, "vocab.txt", "▁the\n▁cat\ns\n")

	vocab, err := loadVocab(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"▁the", "▁cat", "s"}, vocab)
}

func TestTokensToText(t *testing.T) {
	vocab := []string{"▁the", "▁cat", "s"}

	assert.Equal(t, "the cats", tokensToText([]int{0, 1, 2}, vocab))
	assert.Equal(t, "the <9>", tokensToText([]int{0, 9}, vocab))
	assert.Equal(t, "", tokensToText(nil, vocab))
}

func TestWriteText(t *testing.T) {
	results := []beam.Result{
		{Hypotheses: []*beam.Hypothesis{{Score: -3.25, TokenSequence: []int{2, 0, 1}, Timesteps: []int{-1, 0, 2}}}},
		{Err: errors.New("joint exploded")},
	}

	var buf bytes.Buffer
	writeText(&buf, []string{"a.json", "b.json"}, results, []string{"▁the", "▁cat", "s"})

	out := buf.String()
	assert.Contains(t, out, "== a.json")
	assert.Contains(t, out, "#1  score=-3.2500  the cat")
	assert.Contains(t, out, "error: joint exploded")
}

func TestWriteJSON(t *testing.T) {
	results := []beam.Result{
		{Hypotheses: []*beam.Hypothesis{{Score: -1.5, TokenSequence: []int{2, 0}, Timesteps: []int{-1, 3}}}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []string{"a.json"}, results, nil))

	var decoded []resultJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	require.Len(t, decoded[0].Hypotheses, 1)
	assert.Equal(t, "a.json", decoded[0].File)
	assert.Equal(t, []int{0}, decoded[0].Hypotheses[0].Tokens)
	assert.Equal(t, []int{3}, decoded[0].Hypotheses[0].Timesteps)
	assert.Empty(t, decoded[0].Hypotheses[0].Text)
}
