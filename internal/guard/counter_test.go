package guard_test

import (
	"strings"
	"testing"

	"ccguard/internal/guard"
)

func TestCountLines(t *testing.T) {
	ignoreBlanks := guard.DefaultCountingRule()
	countBlanks := guard.CountingRule{IgnoreBlankLines: false}

	tests := []struct {
		name  string
		input string
		rule  guard.CountingRule
		want  int
	}{
		{"empty input", "", ignoreBlanks, 0},
		{"single line with newline", "hello\n", ignoreBlanks, 1},
		{"single line without trailing newline", "hello", ignoreBlanks, 1},
		{"blank lines ignored by default", "a\n\nb\n\n\nc\n", ignoreBlanks, 3},
		{"whitespace-only lines count as blank", "a\n   \n\t\nb\n", ignoreBlanks, 2},
		{"blank lines counted when configured", "a\n\nb\n", countBlanks, 3},
		{"only blank lines", "\n\n\n", ignoreBlanks, 0},
		{"only blank lines counted", "\n\n\n", countBlanks, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.CountLines(strings.NewReader(tt.input), tt.rule)
			if err != nil {
				t.Fatalf("CountLines() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountLines() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountLines_LongLines(t *testing.T) {
	// A single line longer than the default bufio buffer must not fail.
	line := strings.Repeat("x", 512*1024)
	got, err := guard.CountLines(strings.NewReader(line+"\n"), guard.DefaultCountingRule())
	if err != nil {
		t.Fatalf("CountLines() error = %v", err)
	}
	if got != 1 {
		t.Errorf("CountLines() = %d, want 1", got)
	}
}

func TestCountString(t *testing.T) {
	got := guard.CountString("a\nb\n\nc", guard.DefaultCountingRule())
	if got != 3 {
		t.Errorf("CountString() = %d, want 3", got)
	}
}
