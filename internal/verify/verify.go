// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify compares two Markdown renditions of the same document
// and reports content that went missing: sections, citation markers,
// math expressions, images, and table rows. It is the safety net run
// after the rewrite stage, where content loss would otherwise be
// invisible.
package verify

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ocr-pipeline/internal/cleanup"
)

var (
	headingRe     = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	citationRe    = regexp.MustCompile(`\[(\d+)\]`)
	displayMathRe = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	inlineMathRe  = regexp.MustCompile(`\$([^$\n]+)\$`)
	imageRe       = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	tableRowRe    = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
)

// Inventory is everything countable we extract from one rendition.
type Inventory struct {
	Chars     int      `yaml:"chars"`
	Words     int      `yaml:"words"`
	Sections  []string `yaml:"sections"`
	Citations []string `yaml:"citations"`
	Math      []string `yaml:"math"`
	Images    []string `yaml:"images"`
	TableRows int      `yaml:"table_rows"`
}

// TakeInventory extracts the loss-relevant features of one rendition.
func TakeInventory(text string) Inventory {
	inv := Inventory{
		Chars: len([]rune(text)),
		Words: len(strings.Fields(text)),
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			inv.Sections = append(inv.Sections, strings.TrimSpace(m[1]))
		}
	}

	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		inv.Citations = append(inv.Citations, m[1])
	}

	// Strip display math before matching inline delimiters so the two
	// classes do not shadow each other.
	for _, m := range displayMathRe.FindAllStringSubmatch(text, -1) {
		inv.Math = append(inv.Math, strings.TrimSpace(m[1]))
	}
	stripped := displayMathRe.ReplaceAllString(text, "")
	for _, m := range inlineMathRe.FindAllStringSubmatch(stripped, -1) {
		inv.Math = append(inv.Math, strings.TrimSpace(m[1]))
	}

	for _, m := range imageRe.FindAllStringSubmatch(text, -1) {
		inv.Images = append(inv.Images, m[1])
	}

	inv.TableRows = len(tableRowRe.FindAllString(text, -1))
	return inv
}

// Report is the outcome of comparing an original rendition against a
// processed one. Truncated sections are content the cleanup stage
// deliberately dropped after the references; they are reported but do
// not count as loss.
type Report struct {
	Original  Inventory `yaml:"original"`
	Processed Inventory `yaml:"processed"`

	MissingSections   []string `yaml:"missing_sections,omitempty"`
	TruncatedSections []string `yaml:"truncated_sections,omitempty"`
	AddedSections     []string `yaml:"added_sections,omitempty"`
	MissingCitations  []string `yaml:"missing_citations,omitempty"`
	MissingMath       []string `yaml:"missing_math,omitempty"`
	MissingImages     []string `yaml:"missing_images,omitempty"`
	TableRowDelta     int      `yaml:"table_row_delta"`
}

// Issues counts the findings that represent genuine loss.
func (r Report) Issues() int {
	n := len(r.MissingSections) + len(r.MissingCitations) + len(r.MissingMath) + len(r.MissingImages)
	if r.TableRowDelta != 0 {
		n++
	}
	return n
}

// Clean reports whether the comparison found no loss.
func (r Report) Clean() bool {
	return r.Issues() == 0
}

// Compare inventories both renditions and classifies the differences.
// Sections present in the original but dropped by the references
// truncation are classified as truncated, not missing.
func Compare(original, processed string) Report {
	r := Report{
		Original:  TakeInventory(original),
		Processed: TakeInventory(processed),
	}

	kept := TakeInventory(cleanup.TruncateAfterReferences(original))
	keptSections := toSet(kept.Sections)
	processedSections := toSet(r.Processed.Sections)
	for _, s := range uniq(r.Original.Sections) {
		if processedSections[s] {
			continue
		}
		if keptSections[s] {
			r.MissingSections = append(r.MissingSections, s)
		} else {
			r.TruncatedSections = append(r.TruncatedSections, s)
		}
	}

	originalSections := toSet(r.Original.Sections)
	for _, s := range uniq(r.Processed.Sections) {
		if !originalSections[s] {
			r.AddedSections = append(r.AddedSections, s)
		}
	}

	r.MissingCitations = missingFrom(kept.Citations, r.Processed.Citations)
	r.MissingMath = missingFrom(kept.Math, r.Processed.Math)
	r.MissingImages = missingFrom(kept.Images, r.Processed.Images)
	r.TableRowDelta = r.Processed.TableRows - kept.TableRows

	return r
}

// missingFrom returns the unique entries of want that do not occur in got.
func missingFrom(want, got []string) []string {
	gotSet := toSet(got)
	var missing []string
	for _, v := range uniq(want) {
		if !gotSet[v] {
			missing = append(missing, v)
		}
	}
	return missing
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// CompareFiles compares two files on disk, prints a summary, and
// returns the report.
func CompareFiles(originalPath, processedPath string, w io.Writer) (Report, error) {
	original, err := os.ReadFile(originalPath)
	if err != nil {
		return Report{}, fmt.Errorf("reading %s: %w", originalPath, err)
	}
	processed, err := os.ReadFile(processedPath)
	if err != nil {
		return Report{}, fmt.Errorf("reading %s: %w", processedPath, err)
	}

	r := Compare(string(original), string(processed))

	fmt.Fprintf(w, "original:  %d chars, %d words, %d sections\n",
		r.Original.Chars, r.Original.Words, len(r.Original.Sections))
	fmt.Fprintf(w, "processed: %d chars, %d words, %d sections\n",
		r.Processed.Chars, r.Processed.Words, len(r.Processed.Sections))

	if len(r.TruncatedSections) > 0 {
		fmt.Fprintf(w, "truncated after references: %d sections\n", len(r.TruncatedSections))
	}
	for _, s := range r.MissingSections {
		fmt.Fprintf(w, "missing section: %s\n", s)
	}
	for _, c := range r.MissingCitations {
		fmt.Fprintf(w, "missing citation: [%s]\n", c)
	}
	for _, m := range r.MissingMath {
		fmt.Fprintf(w, "missing math: %s\n", truncateForDisplay(m))
	}
	for _, img := range r.MissingImages {
		fmt.Fprintf(w, "missing image: %s\n", img)
	}
	if r.TableRowDelta != 0 {
		fmt.Fprintf(w, "table row delta: %+d\n", r.TableRowDelta)
	}

	if r.Clean() {
		fmt.Fprintf(w, "\nno content loss detected\n")
	} else {
		fmt.Fprintf(w, "\n%d potential issues detected\n", r.Issues())
	}
	return r, nil
}

// WriteReport writes the report as YAML.
func WriteReport(r Report, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func truncateForDisplay(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
