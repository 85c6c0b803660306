package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tdtbeam/beam"
	"tdtbeam/onnxscore"
)

// readFrames parses one utterance file: a JSON array of equal-length
// frame vectors.
func readFrames(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var frames [][]float32
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: no frames", path)
	}
	return frames, nil
}

// loadVocab reads an id-ordered token list, one entry per line. A line
// may carry a trailing numeric id after the last space; tokens that are
// themselves whitespace survive the split.
func loadVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vocab []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		token := line
		if i := strings.LastIndex(line, " "); i >= 0 {
			if _, err := strconv.Atoi(line[i+1:]); err == nil {
				token = line[:i]
			}
		}
		vocab = append(vocab, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}

// tokensToText maps token ids through the vocabulary and joins the
// pieces, turning the sentencepiece word marker into a space. Ids
// outside the vocabulary render as <id>.
func tokensToText(tokens []int, vocab []string) string {
	var b strings.Builder
	for _, id := range tokens {
		if id >= 0 && id < len(vocab) {
			b.WriteString(vocab[id])
		} else {
			fmt.Fprintf(&b, "<%d>", id)
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(b.String(), "▁", " "))
}

func writeText(w io.Writer, files []string, results []beam.Result, vocab []string) {
	for i, res := range results {
		fmt.Fprintf(w, "== %s\n", files[i])
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
			continue
		}
		for rank, hyp := range res.Hypotheses {
			tokens := hyp.Tokens()
			if len(vocab) > 0 {
				fmt.Fprintf(w, "  #%d  score=%.4f  %s\n", rank+1, hyp.Score, tokensToText(tokens, vocab))
			} else {
				fmt.Fprintf(w, "  #%d  score=%.4f  tokens=%v\n", rank+1, hyp.Score, tokens)
			}
		}
	}
}

type hypothesisJSON struct {
	Score     float64 `json:"score"`
	Tokens    []int   `json:"tokens"`
	Timesteps []int   `json:"timesteps"`
	Text      string  `json:"text,omitempty"`
}

type resultJSON struct {
	File       string           `json:"file"`
	Error      string           `json:"error,omitempty"`
	Hypotheses []hypothesisJSON `json:"hypotheses,omitempty"`
}

func writeJSON(w io.Writer, files []string, results []beam.Result, vocab []string) error {
	out := make([]resultJSON, len(results))
	for i, res := range results {
		out[i].File = files[i]
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			continue
		}
		for _, hyp := range res.Hypotheses {
			entry := hypothesisJSON{
				Score:     hyp.Score,
				Tokens:    hyp.Tokens(),
				Timesteps: hyp.EmissionTimesteps(),
			}
			if len(vocab) > 0 {
				entry.Text = tokensToText(entry.Tokens, vocab)
			}
			out[i].Hypotheses = append(out[i].Hypotheses, entry)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTensorInfo(w io.Writer, label string, tensors []onnxscore.TensorInfo) {
	fmt.Fprintf(w, "  %s:\n", label)
	for _, t := range tensors {
		fmt.Fprintf(w, "    %-24s %-8s %v\n", t.Name, t.Type, t.Shape)
	}
}
