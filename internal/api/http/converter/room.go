package converter

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
)

type RoomResponse struct {
	Code            string       `json:"room_code"`
	Name            string       `json:"name"`
	MasterID        uuid.UUID    `json:"master_id"`
	IsPublic        bool         `json:"is_public"`
	Description     *string      `json:"description"`
	Phase           domain.Phase `json:"phase"`
	SelectedCountry *string      `json:"selected_country"`
	SelectedLat     *float64     `json:"selected_opportunity_lat"`
	SelectedLng     *float64     `json:"selected_opportunity_lng"`
	CreatedAt       time.Time    `json:"created_at"`
	Created         string       `json:"created"`
}

type ParticipantResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	IsMaster bool      `json:"is_master"`
	JoinedAt time.Time `json:"joined_at"`
}

type MessageResponse struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func RoomToApi(r *domain.Room) *RoomResponse {
	return &RoomResponse{
		Code:            r.Code,
		Name:            r.Name,
		MasterID:        r.MasterID,
		IsPublic:        r.IsPublic,
		Description:     r.Description,
		Phase:           r.Phase(),
		SelectedCountry: r.SelectedCountry,
		SelectedLat:     r.SelectedLat,
		SelectedLng:     r.SelectedLng,
		CreatedAt:       r.CreatedAt,
		Created:         humanize.Time(r.CreatedAt),
	}
}

func RoomsToApi(rooms []*domain.Room) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomToApi(r))
	}
	return out
}

func ParticipantsToApi(ps []domain.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, ParticipantResponse{UserID: p.UserID, IsMaster: p.IsMaster, JoinedAt: p.JoinedAt})
	}
	return out
}

func MessagesToApi(msgs []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageResponse{ID: m.ID, UserID: m.UserID, Message: m.Message, CreatedAt: m.CreatedAt})
	}
	return out
}
