package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hsinghweb/web-history-search-rag/internal/anchor"
	"github.com/hsinghweb/web-history-search-rag/internal/indexer"
	"github.com/hsinghweb/web-history-search-rag/internal/messenger"
)

// handleVisit accepts a captured page visit and queues it for indexing.
func (s *Server) handleVisit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Content     string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	err := s.indexer.Submit(indexer.Visit{
		URL:         req.URL,
		ContentType: req.ContentType,
		Content:     []byte(req.Content),
	})
	var (
		excluded  indexer.ErrExcluded
		duplicate indexer.ErrDuplicate
	)
	switch {
	case errors.As(err, &excluded):
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "host excluded"})
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "already indexed"})
	case err != nil:
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

// handleSearch proxies a semantic query to the indexing backend.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	resp, err := s.backend.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.GetStats(r.Context())
	if err != nil {
		jsonError(w, "stats failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Clear(r.Context()); err != nil {
		jsonError(w, "clear failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleOpen creates a page session for a selected search result and
// schedules highlight delivery. The delivery waits for the page view to
// report loaded, so it runs in the background. A failed delivery stays
// silent; the page itself already opened.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string `json:"url"`
		ChunkText string `json:"chunk_text"`
		ChunkID   *int   `json:"chunk_id"`
		Query     string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		jsonError(w, "url is required", http.StatusBadRequest)
		return
	}

	view := anchor.NewViewport(s.log, s.cfg.PulseWindow, nil)
	session := NewPageSession(req.URL, anchor.New(s.log, s.cfg.ChunkSize, view))
	id := s.dispatcher.Open(session)
	s.sessions.Put(id, session)

	msg := messenger.Message{
		Action:     messenger.ActionHighlightChunk,
		ChunkText:  req.ChunkText,
		SearchText: req.Query,
		ChunkID:    req.ChunkID,
	}
	// The delivery outlives this request: it waits for the page view to
	// report loaded, bounded by the load timeout so a view that never
	// reports cannot pin a goroutine forever. Errors are logged by the
	// dispatcher; nothing is surfaced to the user. The dispatcher entry
	// is single-use and always reaped; the session itself is kept only
	// when a document actually arrived.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
		defer cancel()
		_ = s.dispatcher.Deliver(ctx, id, msg)
		s.dispatcher.Close(id)
		if !session.Attached() {
			s.sessions.Delete(id)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id,
		"url":        req.URL,
	})
}

// handleLoaded attaches the rendered HTML a page view reported and fires
// the load edge exactly once.
func (s *Server) handleLoaded(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session := s.sessions.Get(id)
	if session == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.AttachDocument(string(body)); err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}
	// The dispatcher entry is reaped once delivery finishes, so a late
	// or repeated load report only refreshes the attached document.
	_ = s.dispatcher.NotifyLoaded(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// handleMessage serves the tagged page-context actions directly.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session := s.sessions.Get(id)
	if session == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	var msg messenger.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := msg.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := session.Receive(r.Context(), msg)
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(resp))
}

// handleContent returns the session's current HTML, spans included.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	session := s.sessions.Get(id)
	if session == nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	htmlSrc, err := session.Render()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(htmlSrc))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
