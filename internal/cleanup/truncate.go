// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"regexp"
	"strings"
)

// referencesHeadingRe matches a top-level heading introducing the reference
// list: "## References", "# 7. Bibliography", "## REFERENCES:" and similar.
// Optional numbering before the word and trailing punctuation after it are
// allowed.
var referencesHeadingRe = regexp.MustCompile(
	`(?i)^#{1,2}\s+(?:[0-9]+[.)]?\s+|[ivxlc]+[.)]?\s+)?(?:references|bibliography)\s*[.:;!]?\s*$`,
)

// topHeadingRe matches any level-1 or level-2 heading line.
var topHeadingRe = regexp.MustCompile(`^#{1,2}\s`)

// TruncateAfterReferences drops trailing appendix, acknowledgment, and
// author-bio sections that follow the reference list. The References section
// itself is kept: the cut happens at the first level-1/2 heading after it.
// When several headings look like a reference list the last one wins, since
// reference sections sit near the end of a paper. Without a match, or when
// References is already the final section, the text is returned unchanged.
func TruncateAfterReferences(text string) string {
	lines := strings.Split(text, "\n")
	kinds := classifyLines(lines)

	refLine := -1
	for i, line := range lines {
		if kinds[i] == linePlain && referencesHeadingRe.MatchString(strings.TrimSpace(line)) {
			refLine = i
		}
	}
	if refLine < 0 {
		return text
	}

	for i := refLine + 1; i < len(lines); i++ {
		if kinds[i] == linePlain && topHeadingRe.MatchString(strings.TrimSpace(lines[i])) {
			kept := strings.Join(lines[:i], "\n")
			return strings.TrimRight(kept, " \t\n") + "\n"
		}
	}
	return text
}
