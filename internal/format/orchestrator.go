// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Rewriter abstracts the LLM rewrite call so tests can supply a mock.
// Implementations return an error for transport or API failures; a
// successful call whose content is unusable is caught by the plausibility
// check instead.
type Rewriter interface {
	Rewrite(ctx context.Context, chunk string) (string, error)
}

// Options control the rewrite loop. Zero values fall back to defaults.
type Options struct {
	// MaxAttempts is the number of calls per section, including the first
	// (default 3).
	MaxAttempts int

	// BaseDelay is the backoff base: after failed attempt n the loop
	// waits BaseDelay * 2^(n-1) (default 1s).
	BaseDelay time.Duration

	// Workers bounds concurrent in-flight calls; <= 1 means sequential.
	Workers int

	// MinLengthRatio and MaxLengthRatio bound the plausibility check
	// (defaults 0.5 and 2.0).
	MinLengthRatio float64
	MaxLengthRatio float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MinLengthRatio <= 0 {
		o.MinLengthRatio = 0.5
	}
	if o.MaxLengthRatio <= 0 {
		o.MaxLengthRatio = 2.0
	}
	return o
}

// Result is the outcome for one section: the rewritten text, or the
// original section body when every attempt was exhausted.
type Result struct {
	Section   Section
	Text      string
	Rewritten bool
	Attempts  int
}

// Summary counts section outcomes for one document.
type Summary struct {
	Rewritten int
	Fallback  int
}

// Total returns the number of sections processed.
func (s Summary) Total() int {
	return s.Rewritten + s.Fallback
}

// HasFailures reports whether any section fell back to its original text.
func (s Summary) HasFailures() bool {
	return s.Fallback > 0
}

// RewriteAll rewrites every section independently and returns results in
// ordinal order. A section that cannot be rewritten within the attempt
// budget falls back to its original text, so the reassembled document is
// always complete: with the backend fully unavailable the output equals
// the input. Cancelling ctx stops further calls; already-resolved sections
// keep their rewrites and the rest fall back untouched.
func RewriteAll(ctx context.Context, rw Rewriter, sections []Section, opts Options, w io.Writer) []Result {
	opts = opts.withDefaults()
	results := make([]Result, len(sections))

	if opts.Workers <= 1 {
		for i, sec := range sections {
			results[i] = rewriteSection(ctx, rw, sec, opts, w)
		}
		return results
	}

	lw := &lockedWriter{w: w}
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup
	for i, sec := range sections {
		wg.Add(1)
		go func(i int, sec Section) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = rewriteSection(ctx, rw, sec, opts, lw)
		}(i, sec)
	}
	wg.Wait()
	return results
}

// rewriteSection runs the attempt loop for one section.
func rewriteSection(ctx context.Context, rw Rewriter, sec Section, opts Options, w io.Writer) Result {
	label := sec.Heading
	if label == "" {
		label = fmt.Sprintf("section %d", sec.Ordinal+1)
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "cancelled %s, keeping original\n", label)
			return fallback(sec, attempt-1)
		}

		out, err := rw.Rewrite(ctx, sec.Text)
		if err == nil {
			reason := implausible(sec.Text, out, opts)
			if reason == "" {
				fmt.Fprintf(w, "rewrote %s (attempt %d)\n", label, attempt)
				return Result{Section: sec, Text: out, Rewritten: true, Attempts: attempt}
			}
			err = fmt.Errorf("implausible response: %s", reason)
		}
		fmt.Fprintf(w, "attempt %d/%d failed for %s: %v\n", attempt, opts.MaxAttempts, label, err)

		if attempt == opts.MaxAttempts {
			break
		}
		delay := opts.BaseDelay * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "cancelled %s, keeping original\n", label)
			return fallback(sec, attempt)
		case <-time.After(delay):
		}
	}

	fmt.Fprintf(w, "falling back to original for %s\n", label)
	return fallback(sec, opts.MaxAttempts)
}

func fallback(sec Section, attempts int) Result {
	return Result{Section: sec, Text: sec.Text, Rewritten: false, Attempts: attempts}
}

// implausible returns a non-empty reason when the rewrite output looks like
// a truncation or refusal: empty content, or a length far outside the band
// around the input length.
func implausible(input, output string, opts Options) string {
	if strings.TrimSpace(output) == "" {
		return "empty content"
	}
	if len(input) == 0 {
		return ""
	}
	ratio := float64(len(output)) / float64(len(input))
	if ratio < opts.MinLengthRatio {
		return fmt.Sprintf("output shrank to %.0f%% of input", ratio*100)
	}
	if ratio > opts.MaxLengthRatio {
		return fmt.Sprintf("output grew to %.0f%% of input", ratio*100)
	}
	return ""
}

// ReassembleResults joins per-section outcomes back into one document in
// ordinal order. Fallback sections pass through byte-for-byte, so a fully
// failed run reproduces the input exactly. Rewritten sections are
// re-separated with a blank line since backends trim boundaries.
func ReassembleResults(results []Result) (string, Summary) {
	var b strings.Builder
	var summary Summary
	for i, r := range results {
		if !r.Rewritten {
			summary.Fallback++
			b.WriteString(r.Text)
			continue
		}
		summary.Rewritten++
		text := strings.TrimRight(r.Text, " \t\n")
		b.WriteString(text)
		if i < len(results)-1 {
			b.WriteString("\n\n")
		} else {
			b.WriteString("\n")
		}
	}
	return b.String(), summary
}

// lockedWriter serializes progress output from concurrent workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
