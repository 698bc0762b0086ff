package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/globe_rooms/internal/domain"
	"github.com/immxrtalbeast/globe_rooms/internal/repository/model"
	"gorm.io/gorm"
)

// The Postgres repositories expect a *gorm.DB opened with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelRoom(room)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomCodeExists
		}
		return err
	}
	return nil
}

func (r *PostgresRoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "room_code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) ListPublic(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := r.db.WithContext(ctx).Where("is_public = ?", true).Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}
	return result, nil
}

func (r *PostgresRoomRepository) StartPlanning(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("room_code = ? AND master_id = ?", code, masterID).
		Update("planning_started", true)
	return res.RowsAffected, res.Error
}

func (r *PostgresRoomRepository) UpdateSelection(ctx context.Context, code string, sel domain.Selection) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	updates := map[string]any{
		"selected_country":         nullable(sel.Country),
		"selected_opportunity_lat": nullable(sel.Lat),
		"selected_opportunity_lng": nullable(sel.Lng),
	}
	res := r.db.WithContext(ctx).Model(&model.Room{}).Where("room_code = ?", code).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *PostgresRoomRepository) UpdateSettings(ctx context.Context, code string, masterID uuid.UUID, settings domain.Settings) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	updates := map[string]any{
		"is_public":   settings.IsPublic,
		"description": nullable(settings.Description),
	}
	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("room_code = ? AND master_id = ?", code, masterID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, code string, masterID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Where("room_code = ? AND master_id = ?", code, masterID).Delete(&model.Room{})
	return res.RowsAffected, res.Error
}

type PostgresParticipantRepository struct {
	db *gorm.DB
}

func NewPostgresParticipantRepository(db *gorm.DB) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{db: db}
}

func (r *PostgresParticipantRepository) Add(ctx context.Context, participant *domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if participant == nil {
		return errors.New("participant is nil")
	}

	row := model.Participant{
		RoomCode: participant.RoomCode,
		UserID:   participant.UserID,
		IsMaster: participant.IsMaster,
		JoinedAt: participant.JoinedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrParticipantExists
		}
		return err
	}
	return nil
}

func (r *PostgresParticipantRepository) List(ctx context.Context, code string) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.Participant
	if err := r.db.WithContext(ctx).Where("room_code = ?", code).Order("joined_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.Participant, 0, len(rows))
	for _, p := range rows {
		result = append(result, domain.Participant{
			RoomCode: p.RoomCode,
			UserID:   p.UserID,
			IsMaster: p.IsMaster,
			JoinedAt: p.JoinedAt.UTC(),
		})
	}
	return result, nil
}

func (r *PostgresParticipantRepository) Remove(ctx context.Context, code string, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Where("room_code = ? AND user_id = ?", code, userID).Delete(&model.Participant{})
	return res.RowsAffected, res.Error
}

func (r *PostgresParticipantRepository) RemoveAll(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&model.Participant{}).Error
}

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	row := model.Message{
		RoomCode:  msg.RoomCode,
		UserID:    msg.UserID,
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}

	msg.ID = row.ID
	msg.CreatedAt = row.CreatedAt.UTC()
	return nil
}

func (r *PostgresMessageRepository) List(ctx context.Context, code string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.Message
	if err := r.db.WithContext(ctx).Where("room_code = ?", code).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]domain.Message, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Message{
			ID:        m.ID,
			RoomCode:  m.RoomCode,
			UserID:    m.UserID,
			Message:   m.Message,
			CreatedAt: m.CreatedAt.UTC(),
		})
	}
	return result, nil
}

func (r *PostgresMessageRepository) DeleteByRoom(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("room_code = ?", code).Delete(&model.Message{}).Error
}

type PostgresProfileRepository struct {
	db *gorm.DB
}

func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile == nil {
		return errors.New("profile is nil")
	}

	var email *string
	if e := strings.TrimSpace(profile.Email); e != "" {
		email = &e
	}
	row := model.Profile{
		ID:        profile.ID,
		Username:  profile.Username,
		Email:     email,
		CreatedAt: profile.CreatedAt.UTC(),
		UpdatedAt: profile.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrProfileEmailExists
		}
		return err
	}
	return nil
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row model.Profile
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &domain.Profile{
		ID:        row.ID,
		Username:  row.Username,
		Email:     domain.StringValue(row.Email),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

func nullable[T any](v *T) any {
	if v == nil {
		return gorm.Expr("NULL")
	}
	return *v
}

func toModelRoom(room *domain.Room) *model.Room {
	return &model.Room{
		Code:                   room.Code,
		MasterID:               room.MasterID,
		IsPublic:               room.IsPublic,
		Name:                   room.Name,
		Description:            room.Description,
		PlanningStarted:        room.PlanningStarted,
		SelectedCountry:        room.SelectedCountry,
		SelectedOpportunityLat: room.SelectedLat,
		SelectedOpportunityLng: room.SelectedLng,
		CreatedAt:              room.CreatedAt.UTC(),
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	return &domain.Room{
		Code:            room.Code,
		MasterID:        room.MasterID,
		IsPublic:        room.IsPublic,
		Name:            room.Name,
		Description:     room.Description,
		PlanningStarted: room.PlanningStarted,
		SelectedCountry: room.SelectedCountry,
		SelectedLat:     room.SelectedOpportunityLat,
		SelectedLng:     room.SelectedOpportunityLng,
		CreatedAt:       room.CreatedAt.UTC(),
	}
}
