// Package template implements the Placeholder Parser: it extracts
// {{prompt:N}} markers from a higher-level template string and substitutes
// cached Execution artifacts for them.
//
// Markers are extracted with hand-rolled strings.Index("{{")/"}}") scanning
// rather than regexp.
package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/skylarklabs/reportloom/internal/cache"
)

const (
	openMarker = "{{prompt:"
	closeChar  = '}'
)

// Placeholder describes one {{prompt:N}} occurrence resolved by Parse.
type Placeholder struct {
	PromptID int    `json:"prompt_id"`
	Found    bool   `json:"found"`
	Source   string `json:"source,omitempty"` // "override" | "cache"
}

// Result is what Parse returns.
type Result struct {
	HTML         string        `json:"html"`
	Placeholders []Placeholder `json:"placeholders"`
	Missing      []int         `json:"missing"`
}

// missingFallbackFormat is the bounded HTML fallback emitted for a
// promptId with neither an override nor a cached execution.
const missingFallbackFormat = `<div class="report-placeholder-missing" data-prompt-id="%d">[missing report for prompt %d]</div>`

// Parser substitutes {{prompt:N}} markers in a template string using an
// override map checked first, then the Execution Cache's latest run for
// that prompt. Nested placeholders are not supported: a placeholder
// appearing inside a substituted artifact is never re-expanded.
type Parser struct {
	Store cache.Store
}

// NewParser builds a Parser backed by the given Execution Cache.
func NewParser(store cache.Store) *Parser {
	return &Parser{Store: store}
}

// Parse scans tmpl for {{prompt:<digits>}} markers and substitutes each:
//  1. If promptID is in overrides, use that artifact (source "override").
//  2. Else consult the Execution Cache's LatestFor; if present, use its
//     artifact (source "cache").
//  3. Else emit a bounded HTML fallback and record the id as missing.
func (p *Parser) Parse(ctx context.Context, tmpl string, overrides map[int]string) (*Result, error) {
	result := &Result{Placeholders: []Placeholder{}, Missing: []int{}}

	var b strings.Builder
	rest := tmpl

	for {
		idx := strings.Index(rest, openMarker)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		afterMarker := rest[idx+len(openMarker):]

		digitsEnd := 0
		for digitsEnd < len(afterMarker) && afterMarker[digitsEnd] >= '0' && afterMarker[digitsEnd] <= '9' {
			digitsEnd++
		}
		// Not a well-formed marker (no digits, or not closed with "}}") —
		// emit the literal marker text verbatim and keep scanning past it.
		if digitsEnd == 0 || digitsEnd+1 >= len(afterMarker) || afterMarker[digitsEnd] != closeChar || afterMarker[digitsEnd+1] != closeChar {
			b.WriteString(openMarker)
			rest = afterMarker
			continue
		}

		promptID, err := strconv.Atoi(afterMarker[:digitsEnd])
		if err != nil {
			b.WriteString(openMarker)
			rest = afterMarker
			continue
		}

		html, placeholder := p.resolve(ctx, promptID, overrides)
		b.WriteString(html)
		result.Placeholders = append(result.Placeholders, placeholder)
		if !placeholder.Found {
			result.Missing = append(result.Missing, promptID)
		}

		rest = afterMarker[digitsEnd+2:]
	}

	result.HTML = b.String()
	return result, nil
}

func (p *Parser) resolve(ctx context.Context, promptID int, overrides map[int]string) (string, Placeholder) {
	if artifact, ok := overrides[promptID]; ok {
		return artifact, Placeholder{PromptID: promptID, Found: true, Source: "override"}
	}

	if p.Store != nil {
		exec, err := p.Store.LatestFor(ctx, promptID)
		if err == nil && exec != nil {
			return exec.Artifact, Placeholder{PromptID: promptID, Found: true, Source: "cache"}
		}
	}

	return fmt.Sprintf(missingFallbackFormat, promptID, promptID), Placeholder{PromptID: promptID, Found: false}
}
