// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// DefaultInstructions is the universal formatting prompt sent with each
// section when no prompt file is configured. It instructs the model to
// improve Markdown structure without adding, dropping, or paraphrasing
// content.
const DefaultInstructions = `You are a formatting assistant for academic documents converted from PDF by OCR. Rewrite the Markdown section below so that it is cleanly formatted and readable.

Rules you must follow exactly:
- Preserve every sentence, number, citation marker, image tag, table cell, and math expression. Do not summarize, paraphrase, add, or remove content.
- Keep all Markdown headings at their current level and wording.
- Keep LaTeX math delimiters ($...$ and $$...$$) and their contents unchanged.
- Keep table structure intact; you may align columns with whitespace.
- Fix obvious OCR artifacts: broken words, duplicated punctuation, wrong list markers.
- Respond with only the corrected Markdown section. No commentary, no code fences around the whole answer.`

// formatPromptTmpl wraps the instructions and the section for one API call.
var formatPromptTmpl = template.Must(template.New("format").Parse(`{{.Instructions}}

---START OF SECTION---

{{.Chunk}}

---END OF SECTION---
`))

// renderPrompt executes the prompt template for one section. Empty
// instructions fall back to the built-in set.
func renderPrompt(instructions, chunk string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	var buf bytes.Buffer
	err := formatPromptTmpl.Execute(&buf, struct {
		Instructions string
		Chunk        string
	}{Instructions: instructions, Chunk: chunk})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LoadInstructions reads the formatting prompt from path, or returns the
// built-in instructions when path is empty.
func LoadInstructions(path string) (string, error) {
	if path == "" {
		return DefaultInstructions, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return string(data), nil
}
