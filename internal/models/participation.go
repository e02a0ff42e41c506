package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ParticipationStatus string

const (
	ParticipationStatusActive   ParticipationStatus = "ACTIVE"
	ParticipationStatusWon      ParticipationStatus = "WON"
	ParticipationStatusLost     ParticipationStatus = "LOST"
	ParticipationStatusDraw     ParticipationStatus = "DRAW"
	ParticipationStatusRefunded ParticipationStatus = "REFUNDED"
)

// Participation represents one user's stake on a wager
type Participation struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	WagerID        uuid.UUID           `gorm:"type:uuid;not null;index;uniqueIndex:idx_wager_user" json:"wager_id"`
	UserID         uint                `gorm:"not null;index;uniqueIndex:idx_wager_user" json:"user_id"`
	ChosenOption   *WagerOutcome       `gorm:"size:50" json:"chosen_option"`
	PredictedValue *string             `gorm:"size:500" json:"predicted_value"`
	Stake          decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"stake"`
	Status         ParticipationStatus `gorm:"size:50;not null;default:ACTIVE;index" json:"status"`
	CreatedAt      time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Participation) TableName() string {
	return "participations"
}
