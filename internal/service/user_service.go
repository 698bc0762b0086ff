package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
)

type UserService struct {
	profiles repository.ProfileRepository
	log      *slog.Logger
}

func NewUserService(profiles repository.ProfileRepository, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{profiles: profiles, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, username string, email string) (*domain.Profile, error) {
	const op = "service.user.create"
	log := s.log.With(slog.String("op", op))

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		log.Error("no name or email provided")
		return nil, ErrIdentityRequired
	}

	profile := domain.NewProfile(username, email)
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user created", slog.String("user_id", profile.ID.String()))
	return profile, nil
}

func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	const op = "service.user.get"

	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return profile, nil
}
