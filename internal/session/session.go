// Package session holds per-conversation chat state. A session owns an
// append-only message log and drives the assistant round-trip for each user
// message.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/discentra/discentra/internal/assistant"
	"github.com/discentra/discentra/internal/models"
	"github.com/discentra/discentra/internal/sanitize"
)

// Responder produces the assistant's reply to one user message.
type Responder interface {
	Reply(ctx context.Context, userText string) (string, error)
}

// Entry is one logged message plus how it should be rendered. User entries
// are always plain text; assistant entries carry the classified payload when
// the reply was structured.
type Entry struct {
	models.Message
	Mode    assistant.Mode            `json:"mode"`
	Centers []models.EvacuationCenter `json:"centers,omitempty"`
	Hazards []models.TrackedHazard    `json:"hazards,omitempty"`
}

// Session is safe for concurrent use. Messages are append-only: entries are
// never edited or removed once logged.
type Session struct {
	id        string
	responder Responder
	logger    *slog.Logger

	mu      sync.Mutex
	entries []Entry
	pending int

	wg sync.WaitGroup
}

func New(id string, responder Responder, logger *slog.Logger) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:        id,
		responder: responder,
		logger:    logger.With("session_id", id),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Send logs the user message and requests a reply asynchronously. The
// returned channel yields the assistant's entry when it arrives and is closed
// without a value when the input is blank or the assistant fails. The user
// message is in the log before Send returns.
func (s *Session) Send(ctx context.Context, text string) <-chan Entry {
	done := make(chan Entry, 1)

	if strings.TrimSpace(text) == "" {
		close(done)
		return done
	}

	userEntry := Entry{
		Message: models.Message{
			ID:        uuid.NewString(),
			Content:   text,
			Sender:    models.SenderUser,
			Timestamp: time.Now().UTC(),
		},
		Mode: assistant.ModePlainText,
	}

	s.mu.Lock()
	s.entries = append(s.entries, userEntry)
	s.pending++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		reply, err := s.responder.Reply(ctx, text)
		if err != nil {
			// The user keeps typing; the failure only shows up in logs.
			s.logger.Error("assistant request failed", "error", err)
			s.mu.Lock()
			s.pending--
			s.mu.Unlock()
			return
		}

		entry := s.renderReply(reply)

		s.mu.Lock()
		s.entries = append(s.entries, entry)
		s.pending--
		s.mu.Unlock()

		done <- entry
	}()

	return done
}

// renderReply interprets one raw assistant reply: extract a structured
// payload if present, classify it, and pick the display content. Structured
// replies keep the raw text so the payload survives; plain text is stripped
// of any markup first.
func (s *Session) renderReply(reply string) Entry {
	payload, _ := assistant.Extract(reply)
	cls := assistant.Classify(payload)

	content := reply
	if cls.Mode == assistant.ModePlainText {
		content = sanitize.StripTags(reply)
	}

	return Entry{
		Message: models.Message{
			ID:        uuid.NewString(),
			Content:   content,
			Sender:    models.SenderAssistant,
			Timestamp: time.Now().UTC(),
		},
		Mode:    cls.Mode,
		Centers: cls.Centers,
		Hazards: cls.Hazards,
	}
}

// Entries returns a copy of the message log in append order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Awaiting reports whether any assistant replies are still outstanding.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// Close waits for outstanding replies to finish.
func (s *Session) Close() {
	s.wg.Wait()
}

// Manager tracks live sessions by id.
type Manager struct {
	responder Responder
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(responder Responder, logger *slog.Logger) *Manager {
	return &Manager{
		responder: responder,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session with the given id, creating it if needed. An empty
// id creates a session with a fresh one.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}
	s := New(id, m.responder, m.logger)
	m.sessions[s.ID()] = s
	return s
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close waits for all sessions to drain.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
