// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cleanup implements the deterministic cleanup stage: OCR artifact
// normalization, paragraph reconstruction, and appendix truncation. All
// transforms are total and idempotent, operate on plain Markdown text, and
// never remove document content outside the designated References cut.
package cleanup

import (
	"regexp"
	"strings"

	"github.com/pdiddy/ocr-pipeline/pkg/types"
)

// defaultAbbreviations are sentence-boundary false positives the spacing rule
// must not split. Matching is case-insensitive against the text ending at the
// period.
var defaultAbbreviations = []string{
	"e.g.", "i.e.", "et al.", "vs.", "cf.", "etc.",
	"fig.", "eq.", "sec.", "no.", "vol.", "pp.",
}

const defaultMaxBlankLines = 2

// Normalizer applies an ordered chain of text repairs for common OCR
// artifacts. The rule order is fixed so later rules cannot undo earlier
// fixes; applying Normalize twice yields the same result as once.
type Normalizer struct {
	maxBlankLines int
	abbreviations []string
}

// NewNormalizer builds a Normalizer from config, falling back to the
// built-in abbreviation set and blank-line cap when unset.
func NewNormalizer(cfg types.CleanupConfig) *Normalizer {
	maxBlank := cfg.MaxBlankLines
	if maxBlank < 1 {
		maxBlank = defaultMaxBlankLines
	}
	abbrevs := cfg.Abbreviations
	if len(abbrevs) == 0 {
		abbrevs = defaultAbbreviations
	}
	lowered := make([]string, len(abbrevs))
	for i, a := range abbrevs {
		lowered[i] = strings.ToLower(a)
	}
	return &Normalizer{maxBlankLines: maxBlank, abbreviations: lowered}
}

// Normalize runs the repair rules in order:
//  1. explicit <br> markup becomes a Markdown hard line break
//  2. URLs broken by whitespace around :// are repaired
//  3. whitespace before , . ; : is removed
//  4. merged sentences get one space after terminal punctuation
//  5. runs of 3+ blank lines collapse to the configured cap
//
// Protected regions (math, code, tables, image tags) pass through untouched.
// No rule deletes document content: only whitespace and the <br> markup
// itself are rewritten.
func (n *Normalizer) Normalize(text string) string {
	text = n.applyLineRule(text, fixLineBreakMarkup)
	text = n.applyLineRule(text, repairBrokenURLs)
	text = n.applyLineRule(text, trimSpaceBeforePunct)
	text = n.applyLineRule(text, n.spaceMergedSentences)
	text = n.collapseBlankLines(text)
	return text
}

// applyLineRule applies fn to every plain line, outside in-line protected
// spans. Fenced code, display math, and table rows are skipped whole.
func (n *Normalizer) applyLineRule(text string, fn func(string) string) string {
	lines := strings.Split(text, "\n")
	kinds := classifyLines(lines)
	for i := range lines {
		if kinds[i] != linePlain {
			continue
		}
		lines[i] = mapUnprotected(lines[i], fn)
	}
	return strings.Join(lines, "\n")
}

// brRe matches <br> and its self-closing variants, case-insensitive.
var brRe = regexp.MustCompile(`(?i)<br\s*/?\s*>`)

// fixLineBreakMarkup converts HTML line breaks to Markdown hard breaks
// (two trailing spaces plus a newline).
func fixLineBreakMarkup(s string) string {
	return brRe.ReplaceAllString(s, "  \n")
}

// brokenURLRe matches a URL scheme separated from its // by stray
// whitespace, e.g. "https: //example.com".
var brokenURLRe = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*)\s*:\s*//\s*`)

// repairBrokenURLs closes up whitespace that OCR inserted around "://".
func repairBrokenURLs(s string) string {
	return brokenURLRe.ReplaceAllString(s, "$1://")
}

// spaceBeforePunctRe matches whitespace immediately preceding , . ; or :.
var spaceBeforePunctRe = regexp.MustCompile(`[ \t]+([,.;:])`)

// trimSpaceBeforePunct removes stray whitespace before punctuation.
func trimSpaceBeforePunct(s string) string {
	return spaceBeforePunctRe.ReplaceAllString(s, "$1")
}

// mergedSentenceRe matches sentence-terminal punctuation glued directly to
// an uppercase letter.
var mergedSentenceRe = regexp.MustCompile(`([.!?])([A-Z])`)

// initialRe matches a single-letter initial ("A.") at the end of the text
// preceding a candidate split, including chained initials like "U.S.".
var initialRe = regexp.MustCompile(`(?:^|[\s(\[".])[A-Za-z]\.$`)

// spaceMergedSentences inserts exactly one space between a sentence-ending
// . ! ? and a following uppercase letter. Known abbreviations and
// single-letter initials are left unchanged: when the boundary is
// ambiguous the text is not modified.
func (n *Normalizer) spaceMergedSentences(s string) string {
	matches := mergedSentenceRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	prev := 0
	for _, m := range matches {
		punctEnd := m[3] // end of the punctuation group
		prefix := s[:punctEnd]
		if s[m[2]] == '.' && n.isAbbreviation(prefix) {
			continue
		}
		b.WriteString(s[prev:punctEnd])
		b.WriteByte(' ')
		prev = punctEnd
	}
	b.WriteString(s[prev:])
	return b.String()
}

// isAbbreviation reports whether prefix ends in a known abbreviation or a
// single-letter initial.
func (n *Normalizer) isAbbreviation(prefix string) bool {
	lowered := strings.ToLower(prefix)
	for _, a := range n.abbreviations {
		if strings.HasSuffix(lowered, a) {
			return true
		}
	}
	return initialRe.MatchString(prefix)
}

// collapseBlankLines caps runs of consecutive blank lines at the configured
// maximum. Blank lines inside fenced code or display math blocks are
// preserved as-is.
func (n *Normalizer) collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	kinds := classifyLines(lines)

	out := make([]string, 0, len(lines))
	blankRun := 0
	for i, line := range lines {
		if kinds[i] == linePlain && strings.TrimSpace(line) == "" {
			blankRun++
			continue
		}
		out = appendBlanks(out, min(blankRun, n.maxBlankLines))
		blankRun = 0
		out = append(out, line)
	}
	out = appendBlanks(out, min(blankRun, n.maxBlankLines))

	return strings.Join(out, "\n")
}

func appendBlanks(lines []string, count int) []string {
	for i := 0; i < count; i++ {
		lines = append(lines, "")
	}
	return lines
}
