// Package chat keeps a room's ordered message log in sync from two
// producers: push-delivered inserts and a polling fallback.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

const PollInterval = 2 * time.Second

var ErrEmptyMessage = errors.New("message is empty")

type Backend interface {
	ListMessages(ctx context.Context, roomCode string) ([]domain.Message, error)
	SendMessage(ctx context.Context, roomCode string, userID uuid.UUID, text string) (*domain.Message, error)
}

type Listener interface {
	MessagesChanged(msgs []domain.Message)
	NameResolved(userID uuid.UUID, name string)
}

type Synchronizer struct {
	roomCode string
	backend  Backend
	names    *NameResolver
	listener Listener
	log      *slog.Logger

	mu        sync.Mutex
	messages  []domain.Message
	seen      map[int64]struct{}
	draft     string
	resolving map[uuid.UUID]struct{}
	wg        sync.WaitGroup
}

func NewSynchronizer(roomCode string, backend Backend, names *NameResolver, listener Listener, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		roomCode:  roomCode,
		backend:   backend,
		names:     names,
		listener:  listener,
		log:       log.With(slog.String("room_code", roomCode)),
		seen:      make(map[int64]struct{}),
		resolving: make(map[uuid.UUID]struct{}),
	}
}

// LoadHistory replaces the log with the backend's ordered history. On failure
// the log is left empty.
func (s *Synchronizer) LoadHistory(ctx context.Context) error {
	const op = "chat.synchronizer.loadHistory"

	msgs, err := s.backend.ListMessages(ctx, s.roomCode)
	if err != nil {
		s.log.Error("failed to load chat history", slog.String("op", op), sl.Err(err))
		s.mu.Lock()
		s.messages = nil
		s.seen = make(map[int64]struct{})
		s.mu.Unlock()
		return &domain.BackendReadError{Op: op, Err: err}
	}

	s.mu.Lock()
	s.replaceLocked(msgs)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.resolveAuthors(ctx, msgs)
	s.notify(snapshot)
	return nil
}

// OnRemoteInsert appends msg unless its id is already in the log.
func (s *Synchronizer) OnRemoteInsert(ctx context.Context, msg domain.Message) bool {
	return s.appendMessage(ctx, msg)
}

// PollRefresh re-fetches the log and adopts it only if it is strictly longer
// than the local one.
func (s *Synchronizer) PollRefresh(ctx context.Context) (bool, error) {
	const op = "chat.synchronizer.pollRefresh"

	msgs, err := s.backend.ListMessages(ctx, s.roomCode)
	if err != nil {
		s.log.Debug("chat poll failed", slog.String("op", op), sl.Err(err))
		return false, &domain.BackendReadError{Op: op, Err: err}
	}

	s.mu.Lock()
	// the log may have grown while the fetch was in flight
	if len(msgs) <= len(s.messages) {
		s.mu.Unlock()
		return false, nil
	}
	s.replaceLocked(msgs)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.resolveAuthors(ctx, msgs)
	s.notify(snapshot)
	return true, nil
}

// Poll runs PollRefresh every PollInterval until ctx is done.
func (s *Synchronizer) Poll(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.PollRefresh(ctx)
		}
	}
}

func (s *Synchronizer) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

func (s *Synchronizer) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Send posts the current draft. The draft is cleared before the round trip
// and restored if the send fails and nothing new was typed meanwhile.
func (s *Synchronizer) Send(ctx context.Context, userID uuid.UUID) (*domain.Message, error) {
	const op = "chat.synchronizer.send"

	s.mu.Lock()
	drafted := s.draft
	text := strings.TrimSpace(drafted)
	if text == "" {
		s.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	s.draft = ""
	s.mu.Unlock()

	msg, err := s.backend.SendMessage(ctx, s.roomCode, userID, text)
	if err != nil {
		s.log.Error("failed to send message", slog.String("op", op), sl.Err(err))
		s.mu.Lock()
		if s.draft == "" {
			s.draft = drafted
		}
		s.mu.Unlock()
		return nil, &domain.BackendWriteError{Op: op, Control: "chat", Err: err}
	}

	s.appendMessage(ctx, *msg)
	return msg, nil
}

func (s *Synchronizer) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) Names() *NameResolver {
	return s.names
}

// Wait blocks until in-flight name resolutions finish.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) appendMessage(ctx context.Context, msg domain.Message) bool {
	s.mu.Lock()
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	domain.SortMessages(s.messages)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.resolveAuthors(ctx, []domain.Message{msg})
	s.notify(snapshot)
	return true
}

func (s *Synchronizer) replaceLocked(msgs []domain.Message) {
	s.messages = make([]domain.Message, 0, len(msgs))
	s.seen = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
	}
	domain.SortMessages(s.messages)
}

func (s *Synchronizer) snapshotLocked() []domain.Message {
	return append([]domain.Message(nil), s.messages...)
}

// resolveAuthors looks up uncached authors in the background.
func (s *Synchronizer) resolveAuthors(ctx context.Context, msgs []domain.Message) {
	for _, m := range msgs {
		if _, ok := s.names.Cached(m.UserID); ok {
			continue
		}
		s.mu.Lock()
		if _, busy := s.resolving[m.UserID]; busy {
			s.mu.Unlock()
			continue
		}
		s.resolving[m.UserID] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func(userID uuid.UUID) {
			defer s.wg.Done()
			name := s.names.Resolve(ctx, userID)

			s.mu.Lock()
			delete(s.resolving, userID)
			s.mu.Unlock()

			if s.listener != nil {
				s.listener.NameResolved(userID, name)
			}
		}(m.UserID)
	}
}

func (s *Synchronizer) notify(msgs []domain.Message) {
	if s.listener != nil {
		s.listener.MessagesChanged(msgs)
	}
}
