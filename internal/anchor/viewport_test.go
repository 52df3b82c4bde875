package anchor

import (
	"testing"
	"time"

	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

func markAllLeaves(t *testing.T, doc *page.Document, needle string, role page.Role) {
	t.Helper()
	for _, leaf := range doc.TextLeaves() {
		doc.MarkLeaf(leaf, needle, role)
	}
}

func TestFocus_PicksBestScoringSpan(t *testing.T) {
	doc := mustParse(t, `<html><body><p>fox habitat range</p><p>fox clever animal</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	for _, leaf := range doc.TextLeaves() {
		doc.MarkLeaf(leaf, leaf.Data, page.RoleChunk)
	}
	v.Focus(doc, page.RoleChunk, "clever animal")

	spans := doc.Spans(page.RoleChunk)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if page.HasClass(spans[0].Element, PulseClass) {
		t.Error("lower-scoring span must not pulse")
	}
	if !page.HasClass(spans[1].Element, PulseClass) {
		t.Error("expected pulse on best-scoring span")
	}
	if sched.delay != time.Second {
		t.Errorf("expected expiry scheduled at pulse window, got %v", sched.delay)
	}
}

func TestFocus_TieKeepsFirstInDocumentOrder(t *testing.T) {
	doc := mustParse(t, `<html><body><p>same text</p><p>same text</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	markAllLeaves(t, doc, "same text", page.RoleChunk)
	v.Focus(doc, page.RoleChunk, "same text")

	spans := doc.Spans(page.RoleChunk)
	if !page.HasClass(spans[0].Element, PulseClass) {
		t.Error("expected the first span to win the tie")
	}
	if page.HasClass(spans[1].Element, PulseClass) {
		t.Error("second span must not pulse on a tie")
	}
}

func TestFocus_PulseExpires(t *testing.T) {
	doc := mustParse(t, `<html><body><p>only span here</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	markAllLeaves(t, doc, "only span here", page.RoleChunk)
	v.Focus(doc, page.RoleChunk, "only span")

	el := doc.Spans(page.RoleChunk)[0].Element
	if !page.HasClass(el, PulseClass) {
		t.Fatal("expected pulse before expiry")
	}
	sched.fire()
	if page.HasClass(el, PulseClass) {
		t.Error("expected pulse removed after window")
	}
}

func TestFocus_NoSpansIsNoOp(t *testing.T) {
	doc := mustParse(t, `<html><body><p>nothing marked</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	v.Focus(doc, page.RoleChunk, "whatever")
	if sched.fn != nil {
		t.Error("no expiry should be scheduled without spans")
	}
}

func TestCancelPulse_InvalidatesPendingExpiry(t *testing.T) {
	doc := mustParse(t, `<html><body><p>only span here</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	markAllLeaves(t, doc, "only span here", page.RoleChunk)
	v.Focus(doc, page.RoleChunk, "only span")
	el := doc.Spans(page.RoleChunk)[0].Element

	v.CancelPulse()
	sched.fire() // stale timer

	// The stale expiry must not touch the element; a new pass owns it now.
	if !page.HasClass(el, PulseClass) {
		t.Error("stale expiry removed the pulse after cancellation")
	}
}

func TestFocus_NewPassSupersedesOldTimer(t *testing.T) {
	doc := mustParse(t, `<html><body><p>first target text</p><p>second target text</p></body></html>`)
	sched := &fakeScheduler{}
	v := NewViewport(testLogger(), time.Second, sched.after)

	markAllLeaves(t, doc, "first target text", page.RoleChunk)
	v.Focus(doc, page.RoleChunk, "first target text")
	stale := sched.fn

	markAllLeaves(t, doc, "second target text", page.RoleSearch)
	v.Focus(doc, page.RoleSearch, "second target text")
	current := doc.Spans(page.RoleSearch)[0].Element

	stale() // first pass timer fires late
	if !page.HasClass(current, PulseClass) {
		t.Error("stale timer must not clear the newer pulse")
	}
	sched.fire()
	if page.HasClass(current, PulseClass) {
		t.Error("current timer should clear the pulse")
	}
}
