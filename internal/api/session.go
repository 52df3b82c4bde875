package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hsinghweb/web-history-search-rag/internal/anchor"
	"github.com/hsinghweb/web-history-search-rag/internal/messenger"
	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

// PageSession is the page-context side of one opened search result. It
// owns the rendered document and serves the tagged actions against it.
// All message handling is serialized by the session mutex, which is what
// lets the anchorer clear and rebuild spans without further locking.
type PageSession struct {
	URL string

	mu       sync.Mutex
	doc      *page.Document
	anchorer *anchor.Anchorer
}

func NewPageSession(url string, anchorer *anchor.Anchorer) *PageSession {
	return &PageSession{URL: url, anchorer: anchorer}
}

// AttachDocument parses the rendered HTML the page view reported.
func (s *PageSession) AttachDocument(htmlSrc string) error {
	doc, err := page.ParseString(htmlSrc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Attached reports whether a page view ever reported its document.
func (s *PageSession) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != nil
}

// Render serializes the current document, highlight spans included.
func (s *PageSession) Render() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", fmt.Errorf("document not attached")
	}
	return s.doc.Render()
}

// Receive handles a cross-context message. The non-empty response doubles
// as the delivery acknowledgment.
func (s *PageSession) Receive(ctx context.Context, msg messenger.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", fmt.Errorf("document not attached")
	}

	switch msg.Action {
	case messenger.ActionHighlightChunk:
		res := s.anchorer.Apply(s.doc, anchor.Request{
			ChunkIndex: msg.ChunkID,
			ChunkText:  msg.ChunkText,
			QueryText:  msg.SearchText,
		})
		return marshalResponse(res)

	case messenger.ActionClearHighlights:
		s.doc.ClearAll()
		return marshalResponse(map[string]bool{"success": true})

	case messenger.ActionGetPageContent:
		return marshalResponse(map[string]page.PageText{"content": s.doc.Extract()})
	}
	return "", fmt.Errorf("unknown action %q", msg.Action)
}

func marshalResponse(v any) (string, error) {
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// SessionStore is a thread-safe registry of open page sessions.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*PageSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*PageSession)}
}

func (st *SessionStore) Put(id string, s *PageSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[id] = s
}

func (st *SessionStore) Get(id string) *PageSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
