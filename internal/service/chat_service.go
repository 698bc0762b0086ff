package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/feed"
	"github.com/immxrtalbeast/globe_rooms/internal/repository"
	"github.com/immxrtalbeast/globe_rooms/lib/logger/sl"
)

const maxChatMessageLength = 4000

type ChatService struct {
	messages repository.MessageRepository
	pub      publisher
	log      *slog.Logger
}

func NewChatService(messages repository.MessageRepository, changes feed.Feed, log *slog.Logger) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	return &ChatService{
		messages: messages,
		pub:      publisher{feed: changes, log: log},
		log:      log,
	}
}

func (s *ChatService) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	const op = "service.chat.list"

	msgs, err := s.messages.List(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

func (s *ChatService) SendMessage(ctx context.Context, code string, userID uuid.UUID, text string) (*domain.Message, error) {
	const op = "service.chat.send"
	code = domain.NormalizeCode(code)
	log := s.log.With(slog.String("op", op), slog.String("room_code", code))

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > maxChatMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := domain.NewMessage(code, userID, text)
	if err := s.messages.Create(ctx, msg); err != nil {
		log.Error("failed to store message", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("message stored", slog.Int64("id", msg.ID))
	s.pub.publish(ctx, domain.TableMessages, domain.ChangeInsert, code, msg, nil)
	return msg, nil
}
