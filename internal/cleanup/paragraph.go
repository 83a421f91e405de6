// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"regexp"
	"strings"
)

// structuralStartRe matches lines that begin a structural block and must
// never be absorbed into a preceding paragraph: headings, list items,
// blockquotes, horizontal rules, image tags, footnote definitions, figure
// and table captions, code fences, and display math.
var structuralStartRe = regexp.MustCompile(
	`^\s*(#{1,6}\s|\*\s|-\s|\+\s|\d+\.\s|>|---|===|!\[|\[\^[^\]]*\]:|Figure \d+:|Table \d+:` + "|```" + `|\$\$)`,
)

// Reconstruct merges lines that OCR broke mid-sentence back into single
// paragraph lines. The scan is greedy, single-pass, left to right: a line is
// merged into the one before it only when the earlier line does not end a
// sentence (or a protected span, or a Markdown hard break), the later line
// does not open a structural block, and neither sits inside a protected
// region. True structural breaks are always preserved; a run of broken
// lines folds into one paragraph through repeated merging.
func Reconstruct(text string) string {
	lines := strings.Split(text, "\n")
	kinds := classifyLines(lines)

	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		cur := lines[i]

		if kinds[i] != linePlain || strings.TrimSpace(cur) == "" || structuralStartRe.MatchString(cur) {
			out = append(out, cur)
			continue
		}

		for i+1 < len(lines) && canMerge(cur, lines[i+1], kinds[i+1]) {
			cur = mergeLines(cur, lines[i+1])
			i++
		}
		out = append(out, cur)
	}

	return strings.Join(out, "\n")
}

// canMerge reports whether next may be joined onto cur.
func canMerge(cur, next string, nextKind lineKind) bool {
	if nextKind != linePlain {
		return false
	}
	if strings.TrimSpace(next) == "" || structuralStartRe.MatchString(next) {
		return false
	}
	if strings.HasSuffix(cur, "  ") {
		// Markdown hard break, deliberate.
		return false
	}
	trimmed := strings.TrimRight(cur, " \t")
	if trimmed == "" {
		return false
	}
	if endsWithWordHyphen(trimmed) {
		return true
	}
	return !endsSentence(trimmed)
}

// endsSentence reports whether the line ends with sentence-terminal
// punctuation or a closing protected-span delimiter.
func endsSentence(line string) bool {
	switch line[len(line)-1] {
	case '.', '!', '?', '$', '`':
		return true
	}
	return false
}

// endsWithWordHyphen reports whether the line ends with a hyphen splitting
// a word, i.e. a single '-' directly after a letter.
func endsWithWordHyphen(line string) bool {
	if len(line) < 2 || line[len(line)-1] != '-' {
		return false
	}
	prev := line[len(line)-2]
	return prev >= 'a' && prev <= 'z' || prev >= 'A' && prev <= 'Z'
}

// mergeLines joins next onto cur: across a word-break hyphen the hyphen is
// dropped and the halves rejoined directly, otherwise the lines are joined
// with a single space.
func mergeLines(cur, next string) string {
	cur = strings.TrimRight(cur, " \t")
	next = strings.TrimSpace(next)
	if endsWithWordHyphen(cur) {
		return cur[:len(cur)-1] + next
	}
	return cur + " " + next
}
