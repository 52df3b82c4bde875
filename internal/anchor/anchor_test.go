package anchor

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

const foxHTML = `<html><body><p>The quick brown fox. It jumps over the lazy dog. Foxes are clever.</p></body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAnchorer wires a viewport whose scheduler never fires on its
// own; tests trigger expiry by hand.
func newTestAnchorer(chunkSize int) (*Anchorer, *fakeScheduler) {
	sched := &fakeScheduler{}
	view := NewViewport(testLogger(), 2*time.Second, sched.after)
	return New(testLogger(), chunkSize, view), sched
}

type fakeScheduler struct {
	delay time.Duration
	fn    func()
}

func (f *fakeScheduler) after(d time.Duration, fn func()) {
	f.delay = d
	f.fn = fn
}

func (f *fakeScheduler) fire() {
	if f.fn != nil {
		f.fn()
	}
}

func mustParse(t *testing.T, src string) *page.Document {
	t.Helper()
	doc, err := page.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func intp(n int) *int { return &n }

func TestApply_ChunkIndexPath(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkIndex: intp(2),
		ChunkText:  "Foxes are clever.",
		QueryText:  "clever fox",
	})

	if !res.Handled {
		t.Fatal("expected request to be handled")
	}
	if res.Path != PathChunkIndex {
		t.Fatalf("expected chunk-index path, got %s", res.Path)
	}

	chunks := doc.Spans(page.RoleChunk)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk span, got %d", len(chunks))
	}
	if chunks[0].Text != "Foxes are clever." {
		t.Errorf("expected chunk span around %q, got %q", "Foxes are clever.", chunks[0].Text)
	}

	terms := doc.Spans(page.RoleTerm)
	foundClever := false
	for _, s := range terms {
		if s.Text == "clever" {
			foundClever = true
		}
	}
	if !foundClever {
		t.Errorf("expected a term span around %q, got %+v", "clever", terms)
	}
}

func TestApply_StaleChunkIndexFallsBackToFuzzy(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkIndex: intp(99),
		ChunkText:  "Foxes are clever.",
		QueryText:  "clever fox",
	})

	if res.Path != PathFuzzy {
		t.Fatalf("expected fuzzy path, got %s", res.Path)
	}
	if res.Spans == 0 {
		t.Fatal("expected at least one span from the fuzzy fallback")
	}
	chunks := doc.Spans(page.RoleChunk)
	if len(chunks) != 1 || chunks[0].Text != "Foxes are clever." {
		t.Errorf("expected chunk span around fragment, got %+v", chunks)
	}
}

func TestApply_NoChunkIndexUsesFuzzy(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkText: "It jumps over the lazy dog.",
		QueryText: "lazy dog",
	})
	if res.Path != PathFuzzy {
		t.Fatalf("expected fuzzy path, got %s", res.Path)
	}
}

func TestApply_QueryFallback(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkText: "completely absent fragment of indexed text",
		QueryText: "lazy",
	})

	if res.Path != PathQuery {
		t.Fatalf("expected query path, got %s", res.Path)
	}
	spans := doc.Spans(page.RoleSearch)
	if len(spans) != 1 || spans[0].Text != "lazy" {
		t.Errorf("expected one search span around %q, got %+v", "lazy", spans)
	}
}

func TestApply_ShortFragmentHandledWithZeroSpans(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{ChunkText: "ab", QueryText: "fox"})

	if !res.Handled {
		t.Fatal("expected request to be handled")
	}
	if res.Spans != 0 || res.Path != PathNone {
		t.Errorf("expected zero spans on path none, got %d spans on %s", res.Spans, res.Path)
	}
	for _, role := range page.AllRoles {
		if n := len(doc.Spans(role)); n != 0 {
			t.Errorf("expected no %s spans, got %d", role, n)
		}
	}
}

func TestApply_NothingFound(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkText: "completely absent fragment of indexed text",
		QueryText: "q", // below the query fallback threshold
	})
	if !res.Handled || res.Spans != 0 || res.Path != PathNone {
		t.Errorf("expected handled no-match result, got %+v", res)
	}
}

func TestApply_RepeatedRequestsDoNotStackSpans(t *testing.T) {
	doc := mustParse(t, foxHTML)
	a, _ := newTestAnchorer(30)
	req := Request{ChunkIndex: intp(2), ChunkText: "Foxes are clever.", QueryText: "clever"}

	a.Apply(doc, req)
	first := len(doc.Spans(page.RoleChunk)) + len(doc.Spans(page.RoleTerm))
	a.Apply(doc, req)
	second := len(doc.Spans(page.RoleChunk)) + len(doc.Spans(page.RoleTerm))

	if first != second {
		t.Errorf("span count changed across identical requests: %d then %d", first, second)
	}

	before := mustParse(t, foxHTML).Extract()
	doc.ClearAll()
	if got := doc.Extract(); got != before {
		t.Errorf("document not restored after clear: %+v", got)
	}
}

func TestApply_WhitespaceDriftFallsBackToFuzzy(t *testing.T) {
	// A newline inside the leaf defeats the literal needle of the
	// chunk-index path; the normalized fuzzy comparison still locates
	// the fragment.
	drifted := "<html><body><p>The quick brown\nfox. It jumps over the lazy dog. Foxes are clever.</p></body></html>"
	doc := mustParse(t, drifted)
	a, _ := newTestAnchorer(30)

	res := a.Apply(doc, Request{
		ChunkIndex: intp(0),
		ChunkText:  "Foxes are clever.",
		QueryText:  "clever fox",
	})

	if res.Path != PathFuzzy {
		t.Fatalf("expected fuzzy path, got %s", res.Path)
	}
	chunks := doc.Spans(page.RoleChunk)
	if len(chunks) != 1 || chunks[0].Text != "Foxes are clever." {
		t.Errorf("expected chunk span around fragment, got %+v", chunks)
	}
}
