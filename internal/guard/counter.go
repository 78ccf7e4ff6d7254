package guard

import (
	"bufio"
	"io"
	"strings"
)

// maxLineLength bounds the scanner buffer so minified or generated files
// with very long lines do not abort the count.
const maxLineLength = 1 << 20

// CountingRule controls which lines contribute to a file's line count.
// The same rule must be applied everywhere lines are counted, otherwise
// cumulative and snapshot deltas stop being comparable.
type CountingRule struct {
	// IgnoreBlankLines skips lines with no non-whitespace character.
	IgnoreBlankLines bool
}

// DefaultCountingRule ignores blank lines.
func DefaultCountingRule() CountingRule {
	return CountingRule{IgnoreBlankLines: true}
}

// CountLines counts the lines read from r according to the rule.
// A trailing line without a terminating newline still counts.
func CountLines(r io.Reader, rule CountingRule) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	count := 0
	for scanner.Scan() {
		if rule.IgnoreBlankLines && strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// CountString counts the lines in s according to the rule.
func CountString(s string, rule CountingRule) int {
	// strings.Reader never fails, so the error can be discarded.
	n, _ := CountLines(strings.NewReader(s), rule)
	return n
}
