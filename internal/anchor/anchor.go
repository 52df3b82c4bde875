// Package anchor re-locates a previously indexed text fragment inside the
// live document and wraps it in highlight spans. Matching and scoring run
// here; the tree mutation primitives live in package page.
package anchor

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/hsinghweb/web-history-search-rag/internal/chunker"
	"github.com/hsinghweb/web-history-search-rag/internal/match"
	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

const (
	// minFragmentLen is the shortest fragment worth searching for.
	minFragmentLen = 3
	// needleRunes is how much of a located chunk gets literally marked.
	needleRunes = 40
	// minQueryLen gates the whole-query fallback.
	minQueryLen = 2
	// minTermLen is the shortest query word marked inside a located chunk.
	minTermLen = 3
)

// Request asks for a fragment to be located and highlighted. ChunkIndex
// is advisory: locating must still succeed when it is nil or stale.
type Request struct {
	ChunkIndex *int   `json:"chunkId,omitempty"`
	ChunkText  string `json:"chunkText"`
	QueryText  string `json:"queryText"`
}

// Path records which strategy produced the spans.
type Path string

const (
	PathChunkIndex Path = "chunk-index"
	PathFuzzy      Path = "fuzzy"
	PathQuery      Path = "query"
	PathNone       Path = "none"
)

// Result reports what a locate-and-mark pass did. Handled is true whenever
// the request was processed, even when no span could be created.
type Result struct {
	Handled bool `json:"success"`
	Spans   int  `json:"spans"`
	Path    Path `json:"path"`
}

// Anchorer runs the priority-ordered locate-and-mark algorithm.
type Anchorer struct {
	log       *slog.Logger
	chunkSize int
	view      *Viewport
}

// New creates an Anchorer. chunkSize must equal the size the indexing
// backend chunked with.
func New(log *slog.Logger, chunkSize int, view *Viewport) *Anchorer {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultSize
	}
	return &Anchorer{log: log, chunkSize: chunkSize, view: view}
}

// Apply clears all existing spans and then tries, in order: positional
// chunk lookup, fuzzy text fallback, whole-query fallback. The last
// request always wins; stale spans never stack.
func (a *Anchorer) Apply(doc *page.Document, req Request) Result {
	a.view.CancelPulse()
	doc.ClearAll()

	if len(req.ChunkText) < minFragmentLen {
		a.log.Debug("fragment too short to anchor", "len", len(req.ChunkText))
		return Result{Handled: true, Spans: 0, Path: PathNone}
	}

	if req.ChunkIndex != nil {
		if n := a.markByChunkIndex(doc, *req.ChunkIndex, req.QueryText); n > 0 {
			a.view.Focus(doc, page.RoleChunk, req.ChunkText)
			return Result{Handled: true, Spans: n, Path: PathChunkIndex}
		}
	}

	if n := a.markByFuzzyText(doc, req.ChunkText, req.QueryText); n > 0 {
		a.view.Focus(doc, page.RoleChunk, req.ChunkText)
		return Result{Handled: true, Spans: n, Path: PathFuzzy}
	}

	if n := a.markQueryEverywhere(doc, req.QueryText); n > 0 {
		a.view.Focus(doc, page.RoleSearch, req.QueryText)
		return Result{Handled: true, Spans: n, Path: PathQuery}
	}

	a.log.Info("no highlight produced", "query", req.QueryText)
	return Result{Handled: true, Spans: 0, Path: PathNone}
}

// markByChunkIndex re-extracts the page, re-chunks it with the shared
// size, and marks every leaf containing the head of the chunk at idx.
func (a *Anchorer) markByChunkIndex(doc *page.Document, idx int, query string) int {
	if idx < 0 {
		return 0
	}
	chunks := chunker.Split(doc.Extract().Content(), a.chunkSize)
	if idx >= len(chunks) {
		a.log.Debug("chunk index out of range", "index", idx, "chunks", len(chunks))
		return 0
	}
	needle := head(chunks[idx], needleRunes)
	if needle == "" {
		return 0
	}

	var created []*html.Node
	for _, leaf := range doc.TextLeaves() {
		created = append(created, doc.MarkLeaf(leaf, needle, page.RoleChunk)...)
	}
	for _, el := range created {
		a.markTerms(doc, el, query)
	}
	return len(created)
}

// markByFuzzyText scans leaves for the first one that fuzzy-contains the
// fragment and marks the fragment head inside it. First match wins; there
// is no attempt to find a globally best node on this path.
func (a *Anchorer) markByFuzzyText(doc *page.Document, chunkText, query string) int {
	needle := head(chunkText, needleRunes)
	for _, leaf := range doc.TextLeaves() {
		if !match.FuzzyIncludes(leaf.Data, chunkText) {
			continue
		}
		created := doc.MarkLeaf(leaf, needle, page.RoleChunk)
		for _, el := range created {
			a.markTerms(doc, el, query)
		}
		// The leaf passed the normalized test; if the literal head is
		// absent (whitespace drift inside the node) nothing was marked
		// and the query fallback gets a try. Either way, stop scanning.
		return len(created)
	}
	return 0
}

// markQueryEverywhere highlights the raw query text wherever it appears.
func (a *Anchorer) markQueryEverywhere(doc *page.Document, query string) int {
	q := strings.TrimSpace(query)
	if len(q) < minQueryLen {
		return 0
	}
	count := 0
	for _, leaf := range doc.TextLeaves() {
		count += len(doc.MarkLeaf(leaf, q, page.RoleSearch))
	}
	return count
}

// markTerms nests term spans for each sufficiently long query word inside
// a located chunk span.
func (a *Anchorer) markTerms(doc *page.Document, el *html.Node, query string) {
	for _, term := range strings.Fields(query) {
		if len(term) < minTermLen {
			continue
		}
		doc.MarkWithin(el, term, page.RoleTerm)
	}
}

// head returns the first n runes, trimmed.
func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.TrimSpace(string(runes))
}
