// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"regexp"
	"strings"
)

// Protected regions are stretches of text the cleanup rules must never touch
// internally: math delimited by $...$ or $$...$$, fenced code blocks, table
// rows, and image tags. The scanner below classifies whole lines (fences,
// display math, table rows) and marks in-line spans (inline math, inline
// code, image tags) so transforms can skip them.

// inlineSpanRe matches in-line protected regions within a single line:
// display math, inline math, inline code, and image tags. Longest
// alternatives first so $$...$$ wins over $...$.
var inlineSpanRe = regexp.MustCompile(
	"\\$\\$[^$]*\\$\\$" + `|` + // display math on one line
		"\\$[^$]+\\$" + `|` + // inline math
		"`[^`]*`" + `|` + // inline code
		`!\[[^\]]*\]\([^)]*\)`, // image tag
)

// lineKind classifies a line for the purpose of protection.
type lineKind int

const (
	linePlain lineKind = iota
	lineFence          // inside or delimiting a ``` fence
	lineMath           // inside or delimiting a $$ block
	lineTable          // contains a | table cell separator
)

// classifyLines walks the document once and assigns each line a kind.
// Fences and display-math blocks toggle on their delimiter lines; an
// unterminated block extends to the end of the document rather than
// failing.
func classifyLines(lines []string) []lineKind {
	kinds := make([]lineKind, len(lines))
	inFence := false
	inMath := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case inFence:
			kinds[i] = lineFence
			if strings.HasPrefix(trimmed, "```") {
				inFence = false
			}
		case inMath:
			kinds[i] = lineMath
			if strings.Contains(trimmed, "$$") {
				inMath = false
			}
		case strings.HasPrefix(trimmed, "```"):
			kinds[i] = lineFence
			inFence = true
		case isMathOpener(trimmed):
			kinds[i] = lineMath
			inMath = true
		case strings.Contains(line, "|"):
			kinds[i] = lineTable
		default:
			kinds[i] = linePlain
		}
	}
	return kinds
}

// isMathOpener reports whether the line opens a multi-line $$ block: it
// contains an odd number of $$ delimiters, so the block continues on a
// later line.
func isMathOpener(line string) bool {
	return strings.Count(line, "$$")%2 == 1
}

// mapUnprotected applies fn to the stretches of line outside in-line
// protected spans and reassembles the result. The protected stretches are
// passed through byte-for-byte.
func mapUnprotected(line string, fn func(string) string) string {
	spans := inlineSpanRe.FindAllStringIndex(line, -1)
	if len(spans) == 0 {
		return fn(line)
	}

	var b strings.Builder
	prev := 0
	for _, span := range spans {
		b.WriteString(fn(line[prev:span[0]]))
		b.WriteString(line[span[0]:span[1]])
		prev = span[1]
	}
	b.WriteString(fn(line[prev:]))
	return b.String()
}
