// Package messenger delivers highlight requests across execution
// contexts. The control surface that knows a search result and the page
// context that owns the document never share memory; delivery waits for
// the page to finish loading, then sends with a bounded retry budget.
// A delivery that never gets acknowledged is a silent, logged failure;
// the page stays open and usable either way.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// Actions accepted by a page context. Unknown actions are rejected at the
// boundary rather than silently ignored.
const (
	ActionHighlightChunk  = "highlight-chunk"
	ActionClearHighlights = "clearHighlights"
	ActionGetPageContent  = "getPageContent"
)

// Message is the cross-context payload, tagged by Action.
type Message struct {
	Action     string `json:"action"`
	ChunkText  string `json:"chunkText,omitempty"`
	SearchText string `json:"searchText,omitempty"`
	ChunkID    *int   `json:"chunkId,omitempty"`
}

// Validate rejects messages with an unknown action tag.
func (m Message) Validate() error {
	switch m.Action {
	case ActionHighlightChunk, ActionClearHighlights, ActionGetPageContent:
		return nil
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
}

// Receiver is the page-context side of a delivery. Any non-empty response
// counts as an acknowledgment.
type Receiver interface {
	Receive(ctx context.Context, msg Message) (string, error)
}

// Config bounds the delivery state machine. All delays are injectable so
// tests run without real waiting.
type Config struct {
	InjectDelay time.Duration // pause after load before the first send
	SendRetries int           // retries after the initial send
	RetryDelay  time.Duration // spacing between attempts
}

// DefaultConfig allows one second of settle time, then up to five
// retries half a second apart.
func DefaultConfig() Config {
	return Config{
		InjectDelay: time.Second,
		SendRetries: 5,
		RetryDelay:  500 * time.Millisecond,
	}
}

var errEmptyAck = errors.New("empty acknowledgment")

// session tracks one opened page view.
type session struct {
	id       string
	receiver Receiver

	loadOnce sync.Once
	loaded   chan struct{}
}

// Dispatcher owns the open sessions and runs deliveries against them.
type Dispatcher struct {
	log *slog.Logger
	cfg Config

	mu       sync.Mutex
	sessions map[string]*session
}

func NewDispatcher(log *slog.Logger, cfg Config) *Dispatcher {
	if cfg.SendRetries <= 0 {
		cfg.SendRetries = DefaultConfig().SendRetries
	}
	return &Dispatcher{
		log:      log,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// Open registers a new page view and returns its session ID.
func (d *Dispatcher) Open(r Receiver) string {
	s := &session{
		id:       uuid.NewString(),
		receiver: r,
		loaded:   make(chan struct{}),
	}
	d.mu.Lock()
	d.sessions[s.id] = s
	d.mu.Unlock()
	return s.id
}

// NotifyLoaded fires the load edge for a session. The edge is triggered
// exactly once; repeated load reports from the same view are no-ops, so a
// delivery never runs twice.
func (d *Dispatcher) NotifyLoaded(id string) error {
	d.mu.Lock()
	s := d.sessions[id]
	d.mu.Unlock()
	if s == nil {
		return fmt.Errorf("unknown session %s", id)
	}
	s.loadOnce.Do(func() { close(s.loaded) })
	return nil
}

// Close removes a session. Pending deliveries fail on their next attempt.
func (d *Dispatcher) Close(id string) {
	d.mu.Lock()
	delete(d.sessions, id)
	d.mu.Unlock()
}

// Deliver runs the full state machine for one message:
// WAIT_LOAD → INJECT → DELAY → SEND → retry on missing ack → GIVE_UP.
// The returned error exists for tests; callers treat exhaustion as a
// logged, non-fatal outcome.
func (d *Dispatcher) Deliver(ctx context.Context, id string, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	s := d.sessions[id]
	d.mu.Unlock()
	if s == nil {
		return fmt.Errorf("unknown session %s", id)
	}

	// WAIT_LOAD: block until the page reports complete.
	select {
	case <-s.loaded:
	case <-ctx.Done():
		return ctx.Err()
	}

	// INJECT + DELAY: give the page context time to settle.
	if err := sleep(ctx, d.cfg.InjectDelay); err != nil {
		return err
	}

	// SEND with bounded retry. Acknowledgment is any non-empty response.
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			resp, err := s.receiver.Receive(ctx, msg)
			if err != nil {
				return err
			}
			if resp == "" {
				return errEmptyAck
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(d.cfg.SendRetries)+1),
		retry.Delay(d.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		// GIVE_UP: the result page already opened; only the highlight
		// is lost.
		d.log.Warn("highlight delivery failed",
			"session", id,
			"action", msg.Action,
			"attempts", attempt,
			"error", err,
		)
		return fmt.Errorf("deliver %s after %d attempts: %w", msg.Action, attempt, err)
	}
	d.log.Debug("delivered", "session", id, "action", msg.Action, "attempts", attempt)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
