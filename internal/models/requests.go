package models

// CreateWagerRequest represents a request to create a new wager
type CreateWagerRequest struct {
	GroupID          uint    `json:"group_id" binding:"required"`
	Title            string  `json:"title" binding:"required"`
	Description      *string `json:"description"`
	Type             string  `json:"type" binding:"required"`
	ResolutionMethod string  `json:"resolution_method" binding:"required"`
	Option1          string  `json:"option_1"`
	Option2          string  `json:"option_2"`
	Option3          *string `json:"option_3"`
	Option4          *string `json:"option_4"`
	AllowCreatorVote bool    `json:"allow_creator_vote"`
	BettingDeadline  string  `json:"betting_deadline" binding:"required"` // RFC3339, UTC
	ResolveDeadline  string  `json:"resolve_deadline" binding:"required"` // RFC3339, UTC
}

// JoinWagerRequest represents a request to place a stake on a wager
type JoinWagerRequest struct {
	ChosenOption   *string `json:"chosen_option"`
	PredictedValue *string `json:"predicted_value"`
	Stake          string  `json:"stake" binding:"required"`
}

// ResolveWagerRequest represents a direct resolution request
type ResolveWagerRequest struct {
	Outcome   string  `json:"outcome" binding:"required"`
	Rationale *string `json:"rationale"`
}

// ResolveByWinnersRequest names the winning participants directly
type ResolveByWinnersRequest struct {
	WinnerUserIDs []uint  `json:"winner_user_ids" binding:"required"`
	Rationale     *string `json:"rationale"`
}

// VoteRequest represents an outcome-consensus vote
type VoteRequest struct {
	Outcome   string  `json:"outcome" binding:"required"`
	Rationale *string `json:"rationale"`
}

// PredictionVoteRequest represents a per-participant correctness vote
type PredictionVoteRequest struct {
	ParticipationID string `json:"participation_id" binding:"required"`
	IsCorrect       *bool  `json:"is_correct" binding:"required"`
}

// WinnersVoteRequest represents a winner-selection consensus vote
type WinnersVoteRequest struct {
	WinnerUserIDs []uint  `json:"winner_user_ids" binding:"required"`
	Rationale     *string `json:"rationale"`
}

// CancelWagerRequest represents a cancellation request
type CancelWagerRequest struct {
	Reason *string `json:"reason"`
}

// AssignResolverRequest represents a resolver assignment request
type AssignResolverRequest struct {
	ResolverID              uint    `json:"resolver_id" binding:"required"`
	Reason                  *string `json:"reason"`
	CanResolveIndependently bool    `json:"can_resolve_independently"`
}

// LoginRequest exchanges a username for a JWT
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}
