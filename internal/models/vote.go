package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeVote is one voter's current vote on a wager. Outcome is nil when the
// voter submitted a winner selection instead (PREDICTION wagers).
type OutcomeVote struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	WagerID   uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_vote_wager_voter" json:"wager_id"`
	VoterID   uint          `gorm:"not null;index;uniqueIndex:idx_vote_wager_voter" json:"voter_id"`
	Outcome   *WagerOutcome `gorm:"size:50" json:"outcome"`
	Rationale *string       `gorm:"size:1000" json:"rationale"`
	IsActive  bool          `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (OutcomeVote) TableName() string {
	return "outcome_votes"
}

// WinnerSelection is one participant-user a voter nominated as a winner.
// The full set for a vote is replaced on resubmission.
type WinnerSelection struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VoteID       uuid.UUID `gorm:"type:uuid;not null;index" json:"vote_id"`
	WagerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"wager_id"`
	WinnerUserID uint      `gorm:"not null" json:"winner_user_id"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WinnerSelection) TableName() string {
	return "winner_selections"
}

// PredictionVote is a per-participant correctness vote on a PREDICTION wager
type PredictionVote struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WagerID         uuid.UUID `gorm:"type:uuid;not null;index" json:"wager_id"`
	VoterID         uint      `gorm:"not null;index;uniqueIndex:idx_pvote_voter_target" json:"voter_id"`
	ParticipationID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_pvote_voter_target" json:"participation_id"`
	IsCorrect       bool      `gorm:"not null" json:"is_correct"`
	IsActive        bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PredictionVote) TableName() string {
	return "prediction_votes"
}
