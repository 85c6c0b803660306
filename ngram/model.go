package ngram

import (
	"strings"

	"tdtbeam/internal/logmath"
)

// Sentence boundary and unknown-word markers conventional in ARPA
// models.
const (
	beginToken   = "<s>"
	endToken     = "</s>"
	unknownToken = "<unk>"
)

// Model is a backoff n-gram language model over natural-log
// probabilities. The zero value is unusable; obtain one from Load or
// Parse. A Model is immutable after loading and safe for concurrent
// readers.
type Model struct {
	order int
	// grams[k] holds the (k+1)-grams, keyed by their space-joined
	// words. ARPA words are whitespace-delimited in the file, so a
	// space can never occur inside one.
	grams []map[string]entry
}

type entry struct {
	logProb    float64
	logBackoff float64
}

func newModel(counts []int) *Model {
	m := &Model{order: len(counts), grams: make([]map[string]entry, len(counts))}
	for i := range m.grams {
		m.grams[i] = make(map[string]entry, counts[i])
	}
	return m
}

// Order returns the model's maximum n-gram order.
func (m *Model) Order() int { return m.order }

// Count returns the number of loaded n-grams of the given order, zero
// when order is out of range.
func (m *Model) Count(order int) int {
	if order < 1 || order > m.order {
		return 0
	}
	return len(m.grams[order-1])
}

// LogProb returns ln P(word | history) under Katz backoff. Only the
// most recent Order-1 history words are consulted. A word absent from
// the vocabulary falls back to the <unk> entry when the model has one,
// logmath.LogZero otherwise.
func (m *Model) LogProb(history []string, word string) float64 {
	if max := m.order - 1; len(history) > max {
		history = history[len(history)-max:]
	}

	backoff := 0.0
	for {
		if e, ok := m.grams[len(history)][gramKey(history, word)]; ok {
			return backoff + e.logProb
		}
		if len(history) == 0 {
			break
		}
		// Absent at this order: charge the context's backoff weight
		// (zero when the context itself is unknown) and retry shorter.
		last := len(history) - 1
		if e, ok := m.grams[last][gramKey(history[:last], history[last])]; ok {
			backoff += e.logBackoff
		}
		history = history[1:]
	}

	if e, ok := m.grams[0][unknownToken]; ok {
		return backoff + e.logProb
	}
	return logmath.LogZero
}

// SentenceLogProb returns the total log-probability of words framed by
// the sentence markers: <s> w1 ... wn </s>.
func (m *Model) SentenceLogProb(words []string) float64 {
	total := 0.0
	history := []string{beginToken}
	for _, w := range words {
		total += m.LogProb(history, w)
		history = append(history, w)
	}
	return total + m.LogProb(history, endToken)
}

// gramKey joins a context and its continuation into the map key for
// the (len(history)+1)-gram table.
func gramKey(history []string, word string) string {
	if len(history) == 0 {
		return word
	}
	var b strings.Builder
	n := len(word)
	for _, w := range history {
		n += len(w) + 1
	}
	b.Grow(n)
	for _, w := range history {
		b.WriteString(w)
		b.WriteByte(' ')
	}
	b.WriteString(word)
	return b.String()
}
