package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
	"github.com/lib/pq"
)

const (
	NotifyChannel = "room_changes"

	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// PostgresFeed publishes with pg_notify and listens with LISTEN on a single
// channel, filtering payloads by room code.
type PostgresFeed struct {
	db  *sql.DB
	dsn string
	log *slog.Logger
}

func NewPostgresFeed(db *sql.DB, dsn string, log *slog.Logger) *PostgresFeed {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresFeed{db: db, dsn: dsn, log: log}
}

func (f *PostgresFeed) Publish(ctx context.Context, change domain.Change) error {
	payload, err := change.Encode()
	if err != nil {
		return err
	}
	if _, err := f.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, string(payload)); err != nil {
		return fmt.Errorf("notify change: %w", err)
	}
	return nil
}

func (f *PostgresFeed) Subscribe(ctx context.Context, roomCode string) (Subscription, error) {
	const op = "feed.postgres.subscribe"
	code := domain.NormalizeCode(roomCode)
	log := f.log.With(slog.String("op", op), slog.String("room_code", code))

	listener := pq.NewListener(f.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", slog.Int("event", int(ev)), sl.Err(err))
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	sub := &pgSubscription{
		listener: listener,
		out:      make(chan domain.Change, subscriberBuffer),
		done:     make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.pump(code, log)
	return sub, nil
}

type pgSubscription struct {
	listener *pq.Listener
	out      chan domain.Change
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func (s *pgSubscription) Changes() <-chan domain.Change {
	return s.out
}

func (s *pgSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.listener.Close()
		s.wg.Wait()
	})
	return err
}

func (s *pgSubscription) pump(code string, log *slog.Logger) {
	defer s.wg.Done()
	defer close(s.out)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			go func() { _ = s.listener.Ping() }()
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; changes sent while disconnected are lost
			if n == nil {
				log.Info("listener reconnected")
				continue
			}
			change, mine, err := decodeFor([]byte(n.Extra), code)
			if err != nil {
				log.Warn("undecodable change", sl.Err(err))
				continue
			}
			if !mine {
				continue
			}
			select {
			case s.out <- change:
			case <-s.done:
				return
			}
		}
	}
}
