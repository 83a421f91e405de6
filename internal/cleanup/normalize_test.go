// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"strings"
	"testing"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(types.CleanupConfig{})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "merged sentences get a space",
			input: "End of sentence.Next sentence starts.",
			want:  "End of sentence. Next sentence starts.",
		},
		{
			name:  "broken URL repaired",
			input: "See https: //example.com/x for details.",
			want:  "See https://example.com/x for details.",
		},
		{
			name:  "broken URL with space after slashes",
			input: "http:// example.org",
			want:  "http://example.org",
		},
		{
			name:  "space before punctuation removed",
			input: "A result , then a pause ; done .",
			want:  "A result, then a pause; done.",
		},
		{
			name:  "br markup becomes hard break",
			input: "first<br>second",
			want:  "first  \nsecond",
		},
		{
			name:  "self-closing br variants",
			input: "a<br/>b<BR />c",
			want:  "a  \nb  \nc",
		},
		{
			name:  "five blank lines collapse to two",
			input: "above\n\n\n\n\n\nbelow",
			want:  "above\n\n\nbelow",
		},
		{
			name:  "single blank line kept",
			input: "above\n\nbelow",
			want:  "above\n\nbelow",
		},
		{
			name:  "abbreviation not split",
			input: "Consider e.g.Bayes and others.",
			want:  "Consider e.g.Bayes and others.",
		},
		{
			name:  "et al not split",
			input: "As shown by Smith et al.Results follow.",
			want:  "As shown by Smith et al.Results follow.",
		},
		{
			name:  "single-letter initials not split",
			input: "Written by J.Doe in U.S.A laboratories.",
			want:  "Written by J.Doe in U.S.A laboratories.",
		},
		{
			name:  "exclamation and question marks split",
			input: "Really!Yes.And why?Because.",
			want:  "Really! Yes. And why? Because.",
		},
		{
			name:  "math span untouched",
			input: "Value $x ,y$ appears ,often.",
			want:  "Value $x ,y$ appears,often.",
		},
		{
			name:  "inline code untouched",
			input: "Run `cmd . exe` now .",
			want:  "Run `cmd . exe` now.",
		},
		{
			name:  "table row untouched",
			input: "| a , b | c . d |",
			want:  "| a , b | c . d |",
		},
		{
			name:  "image tag untouched",
			input: "![fig 1 , overview](img , 1.png)",
			want:  "![fig 1 , overview](img , 1.png)",
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"End of sentence.Next sentence starts.",
		"See https: //example.com and more text ,with issues.\n\n\n\n\nTail.",
		"first<br>second<br/>third",
		"## Heading\n\nBody with $math , spans$ and `code , too`.\n\n\n\n\nEnd.",
		"| a | b |\n| 1 | 2 |\n\nParagraph.",
		"```\ncode  block ,unchanged\n\n\n\n\nstill code\n```\nafter .",
	}

	n := newTestNormalizer()
	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q:\n once: %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestNormalizeNeverDropsContent(t *testing.T) {
	inputs := []string{
		"Dense.Text ,with $m ,ath$ and https: //u.rl\n\n\n\n\ntail",
		"## H\nbody | cell | row\n```\nfence\n```",
	}

	n := newTestNormalizer()
	for _, input := range inputs {
		got := n.Normalize(input)
		missing := missingNonWhitespace(strings.ReplaceAll(input, "<br>", ""), got)
		if len(missing) > 0 {
			t.Errorf("Normalize(%q) lost characters %q", input, missing)
		}
	}
}

// missingNonWhitespace returns the non-whitespace runes of in that do not
// occur in out at all.
func missingNonWhitespace(in, out string) []rune {
	have := make(map[rune]bool)
	for _, r := range out {
		have[r] = true
	}
	var missing []rune
	for _, r := range in {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

func TestCollapseBlankLinesInsideFencePreserved(t *testing.T) {
	input := "```\nline\n\n\n\n\nline\n```"
	n := newTestNormalizer()
	if got := n.Normalize(input); got != input {
		t.Errorf("blank lines inside fence modified:\n got: %q\nwant: %q", got, input)
	}
}

func TestNormalizeConfiguredBlankCap(t *testing.T) {
	n := NewNormalizer(types.CleanupConfig{MaxBlankLines: 1})
	got := n.Normalize("a\n\n\n\nb")
	want := "a\n\nb"
	if got != want {
		t.Errorf("cap 1: got %q, want %q", got, want)
	}
}
