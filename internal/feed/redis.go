package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "room:"

// RedisFeed fans changes out over Redis pub/sub, one channel per room.
type RedisFeed struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisFeed(redisURL string, log *slog.Logger) (*RedisFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisFeedWithClient(client, log), nil
}

func NewRedisFeedWithClient(client *redis.Client, log *slog.Logger) *RedisFeed {
	if log == nil {
		log = slog.Default()
	}
	return &RedisFeed{client: client, log: log}
}

func Channel(roomCode string) string {
	return channelPrefix + domain.NormalizeCode(roomCode)
}

func (f *RedisFeed) Publish(ctx context.Context, change domain.Change) error {
	payload, err := change.Encode()
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, Channel(change.RoomCode), payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, roomCode string) (Subscription, error) {
	code := domain.NormalizeCode(roomCode)
	pubsub := f.client.Subscribe(ctx, Channel(code))

	// wait for the subscription confirmation so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", Channel(code), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan domain.Change, subscriberBuffer),
		done:   make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.pump(code, f.log)
	return sub, nil
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan domain.Change
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *redisSubscription) Changes() <-chan domain.Change {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}

func (s *redisSubscription) pump(code string, log *slog.Logger) {
	const op = "feed.redis.pump"
	defer s.wg.Done()
	defer close(s.out)

	messages := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			change, mine, err := decodeFor([]byte(msg.Payload), code)
			if err != nil {
				log.Warn("undecodable change", slog.String("op", op), sl.Err(err))
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
