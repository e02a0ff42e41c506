package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"groupbet/internal/models"
)

// Event is a domain event handed to the notification collaborator.
// Delivery is at-most-once and is not part of the resolution's correctness
// contract.
type Event interface {
	EventName() string
}

// WagerResolved is emitted exactly once when a wager reaches RESOLVED
type WagerResolved struct {
	WagerID      uuid.UUID                `json:"wager_id"`
	Title        string                   `json:"title"`
	GroupID      uint                     `json:"group_id"`
	WinnerIDs    []uint                   `json:"winner_ids"`
	LoserIDs     []uint                   `json:"loser_ids"`
	DrawIDs      []uint                   `json:"draw_ids"`
	PayoutDeltas map[uint]decimal.Decimal `json:"payout_deltas"`
	OutcomeLabel string                   `json:"outcome_label"`
	ResolvedBy   *uint                    `json:"resolved_by"`
}

func (WagerResolved) EventName() string { return "wager.resolved" }

// WagerCancelled is emitted when a wager is cancelled and refunded
type WagerCancelled struct {
	WagerID     uuid.UUID                `json:"wager_id"`
	GroupID     uint                     `json:"group_id"`
	CancelledBy uint                     `json:"cancelled_by"`
	Reason      *string                  `json:"reason"`
	RefundMap   map[uint]decimal.Decimal `json:"refund_map"`
}

func (WagerCancelled) EventName() string { return "wager.cancelled" }

// BettingDeadlineReached is emitted when the close sweep flips a wager to CLOSED
type BettingDeadlineReached struct {
	WagerID          uuid.UUID `json:"wager_id"`
	GroupID          uint      `json:"group_id"`
	Deadline         time.Time `json:"deadline"`
	ParticipantCount int       `json:"participant_count"`
}

func (BettingDeadlineReached) EventName() string { return "wager.betting_deadline_reached" }

// AwaitingManualResolution is emitted for SELF/ASSIGNED_RESOLVERS wagers whose
// resolve deadline passed; a human still has to pick the outcome
type AwaitingManualResolution struct {
	WagerID         uuid.UUID               `json:"wager_id"`
	GroupID         uint                    `json:"group_id"`
	ResolveDeadline time.Time               `json:"resolve_deadline"`
	Method          models.ResolutionMethod `json:"method"`
	CreatorID       uint                    `json:"creator_id"`
}

func (AwaitingManualResolution) EventName() string { return "wager.awaiting_manual_resolution" }

// ResolutionDeadlineApproaching is a reminder ahead of the resolve deadline
type ResolutionDeadlineApproaching struct {
	WagerID             uuid.UUID               `json:"wager_id"`
	GroupID             uint                    `json:"group_id"`
	ResolveDeadline     time.Time               `json:"resolve_deadline"`
	Method              models.ResolutionMethod `json:"method"`
	CreatorID           uint                    `json:"creator_id"`
	AssignedResolverIDs []uint                  `json:"assigned_resolver_ids"`
	HoursRemaining      int                     `json:"hours_remaining"`
}

func (ResolutionDeadlineApproaching) EventName() string { return "wager.resolution_deadline_approaching" }

// BettingDeadlineApproaching is a reminder ahead of the betting deadline
type BettingDeadlineApproaching struct {
	WagerID        uuid.UUID `json:"wager_id"`
	GroupID        uint      `json:"group_id"`
	Deadline       time.Time `json:"deadline"`
	HoursRemaining int       `json:"hours_remaining"`
}

func (BettingDeadlineApproaching) EventName() string { return "wager.betting_deadline_approaching" }
