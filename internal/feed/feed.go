// Package feed delivers row-level room changes to the sessions watching a
// room. Subscriptions are scoped to one room code.
package feed

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

const subscriberBuffer = 64

var ErrClosed = errors.New("feed closed")

type Feed interface {
	Publish(ctx context.Context, change domain.Change) error
	Subscribe(ctx context.Context, roomCode string) (Subscription, error)
}

// Subscription must be closed by its owner. Changes is closed afterwards.
type Subscription interface {
	Changes() <-chan domain.Change
	Close() error
}

// decodeFor decodes a wire payload and reports whether it belongs to roomCode.
func decodeFor(payload []byte, roomCode string) (domain.Change, bool, error) {
	change, err := domain.DecodeChange(payload)
	if err != nil {
		return domain.Change{}, false, err
	}
	return change, domain.NormalizeCode(change.RoomCode) == roomCode, nil
}
