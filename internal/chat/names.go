package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

const placeholderPrefixLength = 6

type ProfileLookup interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
}

// NameResolver turns user ids into display names and caches successful
// lookups for the rest of the session.
type NameResolver struct {
	profiles ProfileLookup
	log      *slog.Logger

	mu    sync.RWMutex
	cache map[uuid.UUID]string
}

func NewNameResolver(profiles ProfileLookup, log *slog.Logger) *NameResolver {
	if log == nil {
		log = slog.Default()
	}
	return &NameResolver{
		profiles: profiles,
		log:      log,
		cache:    make(map[uuid.UUID]string),
	}
}

func (r *NameResolver) Cached(userID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.cache[userID]
	return name, ok
}

// Name returns the cached name or the placeholder without a lookup.
func (r *NameResolver) Name(userID uuid.UUID) string {
	if name, ok := r.Cached(userID); ok {
		return name
	}
	return Placeholder(userID)
}

// Resolve returns a display name for userID. A failed profile lookup yields
// the placeholder and is not cached.
func (r *NameResolver) Resolve(ctx context.Context, userID uuid.UUID) string {
	const op = "chat.names.resolve"

	if name, ok := r.Cached(userID); ok {
		return name
	}

	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		r.log.Warn("profile lookup failed", slog.String("op", op), slog.String("user_id", userID.String()), sl.Err(err))
		return Placeholder(userID)
	}

	name := DisplayName(profile)
	r.mu.Lock()
	r.cache[userID] = name
	r.mu.Unlock()
	return name
}

// DisplayName picks username, then the local part of the email, then the
// full email, then the placeholder.
func DisplayName(p *domain.Profile) string {
	if p == nil {
		return ""
	}
	if name := strings.TrimSpace(p.Username); name != "" {
		return name
	}
	email := strings.TrimSpace(p.Email)
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" {
		return email
	}
	return Placeholder(p.ID)
}

func Placeholder(userID uuid.UUID) string {
	return "User " + userID.String()[:placeholderPrefixLength]
}
