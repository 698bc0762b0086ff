package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	Code                   string    `gorm:"column:room_code;size:6;primaryKey"`
	MasterID               uuid.UUID `gorm:"type:uuid;index;not null"`
	IsPublic               bool      `gorm:"not null;default:false;index"`
	Name                   string    `gorm:"size:255;not null"`
	Description            *string   `gorm:"type:text"`
	PlanningStarted        bool      `gorm:"not null;default:false"`
	SelectedCountry        *string   `gorm:"size:255"`
	SelectedOpportunityLat *float64
	SelectedOpportunityLng *float64
	CreatedAt              time.Time     `gorm:"not null"`
	Participants           []Participant `gorm:"foreignKey:RoomCode;references:Code;constraint:OnDelete:CASCADE"`
	Messages               []Message     `gorm:"foreignKey:RoomCode;references:Code;constraint:OnDelete:CASCADE"`
}

type Participant struct {
	RoomCode string    `gorm:"column:room_code;size:6;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsMaster bool      `gorm:"not null;default:false"`
	JoinedAt time.Time `gorm:"not null"`
}

type Message struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	RoomCode  string    `gorm:"column:room_code;size:6;index:idx_messages_room_created,priority:1;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2;not null"`
}

type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"size:255"`
	Email     *string   `gorm:"size:255;uniqueIndex:idx_profiles_email,where:email IS NOT NULL"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All lists the models for AutoMigrate in dependency order.
func All() []any {
	return []any{&Room{}, &Participant{}, &Message{}, &Profile{}}
}
