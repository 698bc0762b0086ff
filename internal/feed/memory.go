package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

// Broker is an in-process feed. Publish never blocks: a subscriber whose
// buffer is full misses the change.
type Broker struct {
	log *slog.Logger

	mu     sync.RWMutex
	rooms  map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewBroker(log *slog.Logger) *Broker {
	if log == nil {
		log = slog.Default()
	}
	return &Broker{
		log:   log,
		rooms: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *Broker) Publish(ctx context.Context, change domain.Change) error {
	const op = "feed.memory.publish"

	if err := ctx.Err(); err != nil {
		return err
	}
	code := domain.NormalizeCode(change.RoomCode)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for sub := range b.rooms[code] {
		select {
		case sub.ch <- change:
		default:
			b.log.Debug("subscriber full, dropping change",
				slog.String("op", op),
				slog.String("room_code", code),
				slog.String("table", string(change.Table)),
			)
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, roomCode string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code := domain.NormalizeCode(roomCode)
	sub := &memorySubscription{
		broker: b,
		code:   code,
		ch:     make(chan domain.Change, subscriberBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.rooms[code] == nil {
		b.rooms[code] = make(map[*memorySubscription]struct{})
	}
	b.rooms[code][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Subscribers returns the number of live subscriptions for a room.
func (b *Broker) Subscribers(roomCode string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[domain.NormalizeCode(roomCode)])
}

// Close ends every subscription.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for code, subs := range b.rooms {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.rooms, code)
	}
	return nil
}

type memorySubscription struct {
	broker *Broker
	code   string
	ch     chan domain.Change
	done   bool
}

func (s *memorySubscription) Changes() <-chan domain.Change {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if subs := s.broker.rooms[s.code]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.rooms, s.code)
		}
	}
	s.closeLocked()
	return nil
}

// closeLocked requires the broker's write lock.
func (s *memorySubscription) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
