package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WagerStatus string

const (
	WagerStatusOpen      WagerStatus = "OPEN"
	WagerStatusClosed    WagerStatus = "CLOSED"
	WagerStatusResolved  WagerStatus = "RESOLVED"
	WagerStatusCancelled WagerStatus = "CANCELLED"
)

type WagerOutcome string

const (
	OutcomeOption1   WagerOutcome = "OPTION_1"
	OutcomeOption2   WagerOutcome = "OPTION_2"
	OutcomeOption3   WagerOutcome = "OPTION_3"
	OutcomeOption4   WagerOutcome = "OPTION_4"
	OutcomeDraw      WagerOutcome = "DRAW"
	OutcomeCancelled WagerOutcome = "CANCELLED"
)

type WagerType string

const (
	WagerTypeBinary         WagerType = "BINARY"
	WagerTypeMultipleChoice WagerType = "MULTIPLE_CHOICE"
	WagerTypePrediction     WagerType = "PREDICTION"
)

type ResolutionMethod string

const (
	ResolutionMethodSelf              ResolutionMethod = "SELF"
	ResolutionMethodAssignedResolvers ResolutionMethod = "ASSIGNED_RESOLVERS"
	ResolutionMethodParticipantVote   ResolutionMethod = "PARTICIPANT_VOTE"
)

// Wager represents a group bet on a proposition
type Wager struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID          uint             `gorm:"not null;index" json:"group_id"`
	CreatorID        uint             `gorm:"not null;index" json:"creator_id"`
	Title            string           `gorm:"size:255;not null" json:"title"`
	Description      *string          `gorm:"size:2000" json:"description"`
	Type             WagerType        `gorm:"size:50;not null" json:"type"`
	ResolutionMethod ResolutionMethod `gorm:"size:50;not null" json:"resolution_method"`
	Status           WagerStatus      `gorm:"size:50;not null;default:OPEN;index" json:"status"`
	Outcome          *WagerOutcome    `gorm:"size:50" json:"outcome"`
	Option1          string           `gorm:"size:255" json:"option_1"`
	Option2          string           `gorm:"size:255" json:"option_2"`
	Option3          *string          `gorm:"size:255" json:"option_3"`
	Option4          *string          `gorm:"size:255" json:"option_4"`
	AllowCreatorVote bool             `gorm:"not null;default:false" json:"allow_creator_vote"`
	BettingDeadline  time.Time        `gorm:"not null;index" json:"betting_deadline"`
	ResolveDeadline  time.Time        `gorm:"not null;index" json:"resolve_deadline"`

	// Reminder de-duplication stamps (nil = not sent yet)
	BettingReminder24hSentAt *time.Time `gorm:"column:betting_reminder_24h_sent_at" json:"betting_reminder_24h_sent_at"`
	BettingReminder1hSentAt  *time.Time `gorm:"column:betting_reminder_1h_sent_at" json:"betting_reminder_1h_sent_at"`
	ResolveReminder24hSentAt *time.Time `gorm:"column:resolve_reminder_24h_sent_at" json:"resolve_reminder_24h_sent_at"`
	ResolveReminder1hSentAt  *time.Time `gorm:"column:resolve_reminder_1h_sent_at" json:"resolve_reminder_1h_sent_at"`

	ResolvedBy   *uint      `json:"resolved_by"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	CancelledBy  *uint      `json:"cancelled_by"`
	CancelReason *string    `gorm:"size:500" json:"cancel_reason"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Wager) TableName() string {
	return "wagers"
}

// IsTerminal reports whether the wager can no longer change state
func (w *Wager) IsTerminal() bool {
	return w.Status == WagerStatusResolved || w.Status == WagerStatusCancelled
}

// OptionLabel returns the human label for an option outcome, or the outcome
// itself for DRAW/CANCELLED
func (w *Wager) OptionLabel(outcome WagerOutcome) string {
	switch outcome {
	case OutcomeOption1:
		return w.Option1
	case OutcomeOption2:
		return w.Option2
	case OutcomeOption3:
		if w.Option3 != nil {
			return *w.Option3
		}
	case OutcomeOption4:
		if w.Option4 != nil {
			return *w.Option4
		}
	}
	return string(outcome)
}

// HasOption reports whether the outcome names an option this wager actually has
func (w *Wager) HasOption(outcome WagerOutcome) bool {
	switch outcome {
	case OutcomeOption1, OutcomeOption2:
		return true
	case OutcomeOption3:
		return w.Option3 != nil
	case OutcomeOption4:
		return w.Option4 != nil
	}
	return false
}

// ParseOutcome validates a caller-supplied outcome string against this wager
func (w *Wager) ParseOutcome(s string) (WagerOutcome, error) {
	outcome := WagerOutcome(s)
	if outcome == OutcomeDraw || w.HasOption(outcome) {
		return outcome, nil
	}
	return "", fmt.Errorf("invalid outcome %q for wager %s", s, w.ID)
}
