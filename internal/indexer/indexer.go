// Package indexer feeds visited pages to the indexing backend. Visits go
// through the exclusion gate, get flattened to PageText, and are shipped
// off on a bounded queue with a small worker pool. Indexing is
// best-effort; a failed call is logged and dropped, never retried into
// the user's way.
package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hsinghweb/web-history-search-rag/internal/backend"
	"github.com/hsinghweb/web-history-search-rag/internal/exclude"
)

// Visit is one page the user opened, as captured by the control surface.
type Visit struct {
	URL         string
	ContentType string
	Content     []byte
}

// ErrExcluded marks visits rejected by the host exclusion policy.
type ErrExcluded struct{ URL string }

func (e ErrExcluded) Error() string { return fmt.Sprintf("host excluded: %s", e.URL) }

// ErrDuplicate marks repeat visits of unchanged content.
type ErrDuplicate struct{ URL string }

func (e ErrDuplicate) Error() string { return fmt.Sprintf("already indexed: %s", e.URL) }

// Indexer is the visit pipeline.
type Indexer struct {
	backend *backend.Client
	exclude *exclude.List
	log     *slog.Logger

	queue   chan Visit
	workers int
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

func New(bc *backend.Client, ex *exclude.List, log *slog.Logger, queueSize, workers int) *Indexer {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	return &Indexer{
		backend: bc,
		exclude: ex,
		log:     log,
		queue:   make(chan Visit, queueSize),
		workers: workers,
		seen:    make(map[[32]byte]struct{}),
	}
}

// Start launches the worker goroutines.
func (ix *Indexer) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel

	for i := 0; i < ix.workers; i++ {
		ix.wg.Add(1)
		go func() {
			defer ix.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case v, ok := <-ix.queue:
					if !ok {
						return
					}
					ix.process(workerCtx, v)
				}
			}
		}()
	}
}

// Stop drains the pipeline and waits for workers to finish. Queued
// visits are still processed; only then is the worker context released.
func (ix *Indexer) Stop() {
	close(ix.queue)
	ix.wg.Wait()
	if ix.cancel != nil {
		ix.cancel()
	}
}

// Submit queues a visit for indexing. Excluded hosts and repeat visits of
// unchanged content are rejected up front.
func (ix *Indexer) Submit(v Visit) error {
	if ix.exclude.Blocked(v.URL) {
		return ErrExcluded{URL: v.URL}
	}
	if ix.alreadySeen(v) {
		return ErrDuplicate{URL: v.URL}
	}
	select {
	case ix.queue <- v:
		return nil
	default:
		return fmt.Errorf("index queue is full (%d)", cap(ix.queue))
	}
}

// QueueDepth returns the current queue depth.
func (ix *Indexer) QueueDepth() int {
	return len(ix.queue)
}

func (ix *Indexer) alreadySeen(v Visit) bool {
	h := sha256.New()
	h.Write([]byte(v.URL))
	h.Write([]byte{0})
	h.Write(v.Content)
	var key [32]byte
	copy(key[:], h.Sum(nil))

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.seen[key]; ok {
		return true
	}
	ix.seen[key] = struct{}{}
	return false
}

func (ix *Indexer) process(ctx context.Context, v Visit) {
	log := ix.log.With("url", v.URL)

	text, err := ExtractVisit(v)
	if err != nil {
		log.Warn("visit extraction failed", "error", err)
		return
	}
	if text.Content() == "\n\n" {
		log.Debug("visit has no extractable text")
		return
	}

	err = ix.backend.Index(ctx, backend.Page{
		URL:       v.URL,
		Title:     text.Title,
		Content:   text.Content(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn("index call failed", "error", err)
		return
	}
	log.Info("indexed visit", "title", text.Title, "content_len", len(text.Content()))
}
