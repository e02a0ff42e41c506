package repository

import (
	"context"
	"errors"

	"groupbet/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertOutcomeVote inserts the voter's vote or replaces their existing one.
// At most one active vote per (wager, voter) is kept by the unique index.
func (r *Repository) UpsertOutcomeVote(ctx context.Context, vote *models.OutcomeVote) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wager_id"}, {Name: "voter_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"outcome":    vote.Outcome,
			"rationale":  vote.Rationale,
			"is_active":  true,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(vote).Error
}

// GetOutcomeVote retrieves one voter's active vote, or nil
func (r *Repository) GetOutcomeVote(
	ctx context.Context,
	wagerID uuid.UUID,
	voterID uint,
) (*models.OutcomeVote, error) {
	var vote models.OutcomeVote
	err := r.db.WithContext(ctx).
		Where("wager_id = ? AND voter_id = ? AND is_active = ?", wagerID, voterID, true).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// GetActiveOutcomeVotes retrieves all active votes on a wager
func (r *Repository) GetActiveOutcomeVotes(ctx context.Context, wagerID uuid.UUID) ([]*models.OutcomeVote, error) {
	var votes []*models.OutcomeVote
	err := r.db.WithContext(ctx).
		Where("wager_id = ? AND is_active = ?", wagerID, true).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// ReplaceWinnerSelections swaps the full nominated winner set for a vote
func (r *Repository) ReplaceWinnerSelections(
	ctx context.Context,
	vote *models.OutcomeVote,
	winnerUserIDs []uint,
) error {
	if err := r.db.WithContext(ctx).
		Where("vote_id = ?", vote.ID).
		Delete(&models.WinnerSelection{}).Error; err != nil {
		return err
	}

	selections := make([]*models.WinnerSelection, 0, len(winnerUserIDs))
	for _, userID := range winnerUserIDs {
		selections = append(selections, &models.WinnerSelection{
			ID:           uuid.New(),
			VoteID:       vote.ID,
			WagerID:      vote.WagerID,
			WinnerUserID: userID,
		})
	}
	return r.db.WithContext(ctx).Create(&selections).Error
}

// GetWinnerSelections retrieves all nominations attached to active votes on a wager
func (r *Repository) GetWinnerSelections(ctx context.Context, wagerID uuid.UUID) ([]*models.WinnerSelection, error) {
	var selections []*models.WinnerSelection
	err := r.db.WithContext(ctx).
		Joins("JOIN outcome_votes ON outcome_votes.id = winner_selections.vote_id AND outcome_votes.is_active = ?", true).
		Where("winner_selections.wager_id = ?", wagerID).
		Find(&selections).Error
	if err != nil {
		return nil, err
	}
	return selections, nil
}

// CountWinnerVoters counts distinct active voters who nominated at least one winner
func (r *Repository) CountWinnerVoters(ctx context.Context, wagerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WinnerSelection{}).
		Joins("JOIN outcome_votes ON outcome_votes.id = winner_selections.vote_id AND outcome_votes.is_active = ?", true).
		Where("winner_selections.wager_id = ?", wagerID).
		Distinct("outcome_votes.voter_id").
		Count(&count).Error
	return count, err
}

// UpsertPredictionVote inserts or replaces a voter's correctness vote on one
// participation
func (r *Repository) UpsertPredictionVote(ctx context.Context, vote *models.PredictionVote) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "voter_id"}, {Name: "participation_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_correct": vote.IsCorrect,
			"is_active":  true,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(vote).Error
}

// GetActivePredictionVotes retrieves all active correctness votes on a wager
func (r *Repository) GetActivePredictionVotes(ctx context.Context, wagerID uuid.UUID) ([]*models.PredictionVote, error) {
	var votes []*models.PredictionVote
	err := r.db.WithContext(ctx).
		Where("wager_id = ? AND is_active = ?", wagerID, true).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// CountActivePredictionVotes counts active correctness votes on a wager
func (r *Repository) CountActivePredictionVotes(ctx context.Context, wagerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PredictionVote{}).
		Where("wager_id = ? AND is_active = ?", wagerID, true).
		Count(&count).Error
	return count, err
}
