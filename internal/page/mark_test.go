package page

import (
	"strings"
	"testing"
)

func TestSplitRuns_CaseInsensitiveOccurrences(t *testing.T) {
	runs := splitRuns("Foxes love foxholes, FOX included.", "fox")

	var rebuilt strings.Builder
	hits := 0
	for _, r := range runs {
		rebuilt.WriteString(r.text)
		if r.hit {
			hits++
		}
	}
	if hits != 3 {
		t.Errorf("expected 3 hits, got %d", hits)
	}
	if rebuilt.String() != "Foxes love foxholes, FOX included." {
		t.Errorf("runs do not reconstruct input: %q", rebuilt.String())
	}
}

func TestSplitRuns_NoMatch(t *testing.T) {
	runs := splitRuns("nothing to see here", "zebra")
	if len(runs) != 1 || runs[0].hit {
		t.Fatalf("expected single plain run, got %+v", runs)
	}
}

func TestSplitRuns_PreservesOriginalCasing(t *testing.T) {
	runs := splitRuns("Say HELLO there", "hello")
	found := false
	for _, r := range runs {
		if r.hit {
			found = true
			if r.text != "HELLO" {
				t.Errorf("expected matched run to keep casing, got %q", r.text)
			}
		}
	}
	if !found {
		t.Fatal("expected a hit run")
	}
}

func TestMarkLeaf_WrapsWithoutLosingText(t *testing.T) {
	doc, err := ParseString("<html><body><p>The quick brown fox jumps.</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := doc.BodyText()

	leaves := doc.TextLeaves()
	if len(leaves) != 1 {
		t.Fatalf("expected 1 leaf, got %d", len(leaves))
	}
	created := doc.MarkLeaf(leaves[0], "quick brown", RoleChunk)
	if len(created) != 1 {
		t.Fatalf("expected 1 span, got %d", len(created))
	}

	if got := doc.BodyText(); got != before {
		t.Errorf("marking changed text: before %q, after %q", before, got)
	}

	rendered, err := doc.Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, `data-whs-role="chunk"`) {
		t.Errorf("expected chunk span in rendered output: %s", rendered)
	}
}

func TestClear_RoundTripIsIdempotent(t *testing.T) {
	doc, err := ParseString(`<html><head><title>T</title></head><body><p>Foxes are clever. Dogs are loyal.</p><p>More foxes here.</p></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := doc.Extract()

	for _, leaf := range doc.TextLeaves() {
		doc.MarkLeaf(leaf, "foxes", RoleChunk)
	}
	if n := len(doc.Spans(RoleChunk)); n != 2 {
		t.Fatalf("expected 2 spans, got %d", n)
	}

	doc.ClearAll()
	doc.ClearAll() // second clear must be a no-op

	if n := len(doc.Spans(RoleChunk)); n != 0 {
		t.Errorf("expected 0 spans after clear, got %d", n)
	}
	after := doc.Extract()
	if after != before {
		t.Errorf("clear did not restore document: before %+v, after %+v", before, after)
	}

	rendered, err := doc.Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rendered, "whs-highlight") {
		t.Errorf("rendered output still contains highlight markup: %s", rendered)
	}
}

func TestClear_MergesSplitTextNodes(t *testing.T) {
	doc, err := ParseString("<html><body><p>alpha beta gamma</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc.MarkLeaf(doc.TextLeaves()[0], "beta", RoleSearch)
	doc.ClearAll()

	// A later pass must be able to match across the former span boundary.
	leaves := doc.TextLeaves()
	if len(leaves) != 1 {
		t.Fatalf("expected merged single leaf, got %d", len(leaves))
	}
	if created := doc.MarkLeaf(leaves[0], "alpha beta gamma", RoleChunk); len(created) != 1 {
		t.Errorf("expected full-text match after merge, got %d spans", len(created))
	}
}

func TestMarkWithin_NestsTermSpans(t *testing.T) {
	doc, err := ParseString("<html><body><p>Foxes are clever.</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created := doc.MarkLeaf(doc.TextLeaves()[0], "Foxes are clever.", RoleChunk)
	if len(created) != 1 {
		t.Fatalf("expected 1 chunk span, got %d", len(created))
	}

	if n := doc.MarkWithin(created[0], "clever", RoleTerm); n != 1 {
		t.Errorf("expected 1 term span, got %d", n)
	}
	// Marking the same word again must not wrap text already inside a
	// term span.
	if n := doc.MarkWithin(created[0], "clever", RoleTerm); n != 0 {
		t.Errorf("expected 0 additional term spans, got %d", n)
	}

	spans := doc.Spans(RoleTerm)
	if len(spans) != 1 || spans[0].Text != "clever" {
		t.Fatalf("expected one term span around %q, got %+v", "clever", spans)
	}
}

func TestSpans_DocumentOrder(t *testing.T) {
	doc, err := ParseString("<html><body><p>first fox</p><div><p>second fox</p></div><p>third fox</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, leaf := range doc.TextLeaves() {
		doc.MarkLeaf(leaf, "fox", RoleSearch)
	}
	spans := doc.Spans(RoleSearch)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
}

func TestClassHelpers(t *testing.T) {
	doc, err := ParseString("<html><body><p>text here now</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created := doc.MarkLeaf(doc.TextLeaves()[0], "here", RoleChunk)
	el := created[0]

	if !HasClass(el, "whs-chunk") {
		t.Error("expected role class on new span")
	}
	AddClass(el, "whs-pulse")
	AddClass(el, "whs-pulse") // must not duplicate
	if !HasClass(el, "whs-pulse") {
		t.Error("expected pulse class after add")
	}
	RemoveClass(el, "whs-pulse")
	if HasClass(el, "whs-pulse") {
		t.Error("expected pulse class removed")
	}
	if !HasClass(el, "whs-chunk") {
		t.Error("role class must survive pulse removal")
	}
}
