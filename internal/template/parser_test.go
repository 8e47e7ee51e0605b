package template

import (
	"context"
	"strings"
	"testing"

	"github.com/skylarklabs/reportloom/internal/cache"
)

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, closeFn, err := cache.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })
	return store
}

func TestParseOverrideTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.StoreRun(ctx, 1, "<p>from cache</p>", nil, nil); err != nil {
		t.Fatalf("StoreRun: %v", err)
	}

	p := NewParser(store)
	res, err := p.Parse(ctx, "Report: {{prompt:1}}", map[int]string{1: "<p>override</p>"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.HTML != "Report: <p>override</p>" {
		t.Fatalf("got %q", res.HTML)
	}
	if len(res.Placeholders) != 1 || res.Placeholders[0].Source != "override" || !res.Placeholders[0].Found {
		t.Fatalf("placeholders = %+v", res.Placeholders)
	}
	if len(res.Missing) != 0 {
		t.Fatalf("expected no missing, got %v", res.Missing)
	}
}

func TestParseFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.StoreRun(ctx, 2, "<p>cached artifact</p>", nil, nil); err != nil {
		t.Fatalf("StoreRun: %v", err)
	}

	p := NewParser(store)
	res, err := p.Parse(ctx, "{{prompt:2}}", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.HTML != "<p>cached artifact</p>" {
		t.Fatalf("got %q", res.HTML)
	}
	if res.Placeholders[0].Source != "cache" {
		t.Fatalf("expected cache source, got %+v", res.Placeholders[0])
	}
}

func TestParseMissingExecutionFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := NewParser(store)

	res, err := p.Parse(ctx, "before {{prompt:99}} after", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.HTML, "before") || !strings.Contains(res.HTML, "after") {
		t.Fatalf("surrounding text lost: %q", res.HTML)
	}
	if strings.Contains(res.HTML, "{{prompt:99}}") {
		t.Fatalf("placeholder was not substituted: %q", res.HTML)
	}
	if len(res.Missing) != 1 || res.Missing[0] != 99 {
		t.Fatalf("expected missing=[99], got %v", res.Missing)
	}
	if res.Placeholders[0].Found {
		t.Fatalf("expected not found, got %+v", res.Placeholders[0])
	}
}

func TestParseMultiplePlaceholders(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := NewParser(store)

	res, err := p.Parse(ctx, "{{prompt:1}} and {{prompt:2}}", map[int]string{1: "A", 2: "B"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.HTML != "A and B" {
		t.Fatalf("got %q", res.HTML)
	}
	if len(res.Placeholders) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(res.Placeholders))
	}
}

func TestParseMalformedMarkerPassesThrough(t *testing.T) {
	ctx := context.Background()
	p := NewParser(newTestStore(t))

	res, err := p.Parse(ctx, "text {{prompt:abc}} more", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.HTML, "{{prompt:abc}}") {
		t.Fatalf("expected malformed marker preserved verbatim, got %q", res.HTML)
	}
	if len(res.Placeholders) != 0 {
		t.Fatalf("expected no placeholders recorded for malformed marker, got %+v", res.Placeholders)
	}
}

func TestParseNoPlaceholders(t *testing.T) {
	ctx := context.Background()
	p := NewParser(newTestStore(t))

	res, err := p.Parse(ctx, "no markers here", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.HTML != "no markers here" {
		t.Fatalf("got %q", res.HTML)
	}
	if len(res.Placeholders) != 0 || len(res.Missing) != 0 {
		t.Fatalf("expected empty results, got %+v / %v", res.Placeholders, res.Missing)
	}
}
