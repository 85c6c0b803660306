package ngram

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads an ARPA language model from path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ngram: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an ARPA language model from r. Log-probabilities and
// backoff weights are base-10 in the file and converted to natural log
// here, so consumers only ever see natural logs.
func Parse(r io.Reader) (*Model, error) {
	sc := bufio.NewScanner(r)

	// 1) Skip the preamble up to the \data\ header.
	found := false
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == `\data\` {
			found = true
			break
		}
	}
	if !found {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("ngram: read: %w", err)
		}
		return nil, fmt.Errorf(`%w: missing \data\ header`, ErrARPASyntax)
	}

	// 2) N-gram count declarations, up to the first section header.
	// counts[i] is the declared number of (i+1)-grams, kept as a map
	// size hint.
	var counts []int
	line := ""
	for sc.Scan() {
		line = strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, `\`) {
			break
		}
		order, n, ok := parseCountLine(line)
		if !ok {
			return nil, fmt.Errorf("%w: bad count declaration %q", ErrARPASyntax, line)
		}
		for len(counts) < order {
			counts = append(counts, 0)
		}
		counts[order-1] = n
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no n-gram counts declared", ErrARPASyntax)
	}
	if !strings.HasPrefix(line, `\`) {
		return nil, fmt.Errorf(`%w: missing \end\ marker`, ErrARPASyntax)
	}
	m := newModel(counts)

	// 3) N-gram sections; line holds the current section header.
	for line != `\end\` {
		order, ok := parseSectionHeader(line)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected line %q", ErrARPASyntax, line)
		}
		if order < 1 || order > m.order {
			return nil, fmt.Errorf("%w: %d-gram section exceeds declared order %d", ErrARPASyntax, order, m.order)
		}

		advanced := false
		for sc.Scan() {
			line = strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, `\`) {
				advanced = true
				break
			}
			if err := parseGramLine(m, order, line); err != nil {
				return nil, err
			}
		}
		if !advanced {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("ngram: read: %w", err)
			}
			return nil, fmt.Errorf(`%w: missing \end\ marker`, ErrARPASyntax)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ngram: read: %w", err)
	}
	return m, nil
}

// parseCountLine parses a "ngram N=count" declaration.
func parseCountLine(line string) (order, count int, ok bool) {
	rest, ok := strings.CutPrefix(line, "ngram ")
	if !ok {
		return 0, 0, false
	}
	orderStr, countStr, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, false
	}
	order, err := strconv.Atoi(strings.TrimSpace(orderStr))
	if err != nil || order < 1 {
		return 0, 0, false
	}
	count, err = strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count < 0 {
		return 0, 0, false
	}
	return order, count, true
}

// parseSectionHeader parses a "\N-grams:" header into its order.
func parseSectionHeader(line string) (int, bool) {
	s, ok := strings.CutPrefix(line, `\`)
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, "-grams:")
	if !ok {
		return 0, false
	}
	order, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return order, true
}

// parseGramLine parses one "logprob w1 ... wN [backoff]" entry into m,
// converting base-10 logs to natural.
func parseGramLine(m *Model, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return fmt.Errorf("%w: %d-gram entry %q has too few fields", ErrARPASyntax, order, line)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("%w: %d-gram entry %q: bad log-probability", ErrARPASyntax, order, line)
	}

	var logBackoff float64
	if len(fields) > order+1 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("%w: %d-gram entry %q: bad backoff weight", ErrARPASyntax, order, line)
		}
		logBackoff = bo * math.Ln10
	}

	key := strings.Join(fields[1:order+1], " ")
	m.grams[order-1][key] = entry{logProb: logProb * math.Ln10, logBackoff: logBackoff}
	return nil
}
