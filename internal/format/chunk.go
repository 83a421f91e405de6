// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format implements the LLM formatting stage: it splits cleaned
// Markdown into heading-delimited sections, rewrites each section through an
// injected backend with retry and fallback, and reassembles the document in
// original order.
package format

import (
	"strings"
)

// Section is a contiguous slice of the document: it starts at a level-1/2
// heading (or the document start) and ends before the next such heading.
// Concatenating Text over all sections in ordinal order reproduces the
// chunked input byte-for-byte.
type Section struct {
	// Heading is the heading text without the # markers, empty for a
	// preamble section or a size-split continuation.
	Heading string

	// Level is the heading level (1 or 2), zero for preamble/continuation.
	Level int

	// Text is the raw slice of the input, heading line included.
	Text string

	// Ordinal is the position of the section in the emitted sequence.
	Ordinal int
}

// Chunk splits text into ordered, non-overlapping sections at level-1/2
// heading boundaries. A section whose text exceeds maxChunkSize bytes is
// split further at blank-line paragraph boundaries; a single oversize
// paragraph is never split at an arbitrary offset. Headings inside fenced
// code or display math do not start sections. maxChunkSize <= 0 disables
// size splitting.
func Chunk(text string, maxChunkSize int) []Section {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	starts := lineOffsets(lines)
	protected := protectedLines(lines)

	var sections []Section
	secStart := 0
	var heading string
	var level int

	flush := func(end int) {
		if end == secStart {
			return
		}
		body := text[starts[secStart]:offsetEnd(text, starts, end)]
		sections = append(sections, splitOversize(body, heading, level, maxChunkSize)...)
	}

	for i, line := range lines {
		if protected[i] {
			continue
		}
		if lvl := headingLevel(line); lvl > 0 {
			flush(i)
			secStart = i
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			level = lvl
		}
	}
	flush(len(lines))

	for i := range sections {
		sections[i].Ordinal = i
	}
	return sections
}

// Reassemble concatenates section texts in ordinal order. On unmodified
// sections this inverts Chunk exactly.
func Reassemble(sections []Section) string {
	var b strings.Builder
	for _, sec := range sections {
		b.WriteString(sec.Text)
	}
	return b.String()
}

// headingLevel returns 1 or 2 for section-boundary headings, 0 otherwise.
func headingLevel(line string) int {
	if strings.HasPrefix(line, "## ") {
		return 2
	}
	if strings.HasPrefix(line, "# ") {
		return 1
	}
	return 0
}

// lineOffsets returns the byte offset of each line start in the joined text.
func lineOffsets(lines []string) []int {
	offsets := make([]int, len(lines))
	pos := 0
	for i, line := range lines {
		offsets[i] = pos
		pos += len(line) + 1 // trailing newline
	}
	return offsets
}

// offsetEnd returns the byte offset just before line index end, i.e. the
// end of the previous line's trailing newline, or len(text) past the last line.
func offsetEnd(text string, starts []int, end int) int {
	if end >= len(starts) {
		return len(text)
	}
	return starts[end]
}

// protectedLines marks lines inside fenced code or display math blocks,
// where heading and paragraph markers carry no structure. An unterminated
// block extends to the end of the document.
func protectedLines(lines []string) []bool {
	protected := make([]bool, len(lines))
	inFence := false
	inMath := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inFence:
			protected[i] = true
			if strings.HasPrefix(trimmed, "```") {
				inFence = false
			}
		case inMath:
			protected[i] = true
			if strings.Contains(trimmed, "$$") {
				inMath = false
			}
		case strings.HasPrefix(trimmed, "```"):
			protected[i] = true
			inFence = true
		case strings.Count(trimmed, "$$")%2 == 1:
			protected[i] = true
			inMath = true
		}
	}
	return protected
}

// splitOversize breaks a section body at blank-line paragraph boundaries
// until each piece fits maxChunkSize. The first piece keeps the section
// heading; continuations carry no heading of their own.
func splitOversize(body, heading string, level, maxChunkSize int) []Section {
	if maxChunkSize <= 0 || len(body) <= maxChunkSize {
		return []Section{{Heading: heading, Level: level, Text: body}}
	}

	paras := splitParagraphs(body)

	var sections []Section
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		sec := Section{Text: buf.String()}
		if len(sections) == 0 {
			sec.Heading = heading
			sec.Level = level
		}
		sections = append(sections, sec)
		buf.Reset()
	}

	for _, p := range paras {
		if buf.Len() > 0 && buf.Len()+len(p) > maxChunkSize {
			flush()
		}
		buf.WriteString(p)
	}
	flush()
	return sections
}

// splitParagraphs slices body into blank-line separated blocks. Each block
// keeps its trailing blank lines so that concatenation reproduces body
// exactly. Blank lines inside fenced code or display math do not split.
func splitParagraphs(body string) []string {
	lines := strings.Split(body, "\n")
	protected := protectedLines(lines)

	// A paragraph boundary sits before a non-blank line that follows a
	// blank one, both outside protected blocks.
	var paras []string
	start := 0
	for i := 1; i < len(lines); i++ {
		if protected[i] || protected[i-1] {
			continue
		}
		if strings.TrimSpace(lines[i]) != "" && strings.TrimSpace(lines[i-1]) == "" {
			paras = append(paras, strings.Join(lines[start:i], "\n")+"\n")
			start = i
		}
	}
	paras = append(paras, strings.Join(lines[start:], "\n"))
	return paras
}
