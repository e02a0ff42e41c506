package services

import (
	"context"
	"fmt"
	"log"

	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settler computes payouts and adjusts balances once per resolution or
// cancellation. It runs inside the same transaction that flips the wager
// state. The returned map holds the net credit delta per user.
type Settler interface {
	Settle(
		ctx context.Context,
		tx *repository.Repository,
		wager *models.Wager,
		parts []*models.Participation,
		results map[uuid.UUID]models.ParticipationStatus,
	) (map[uint]decimal.Decimal, error)

	Refund(
		ctx context.Context,
		tx *repository.Repository,
		wager *models.Wager,
		parts []*models.Participation,
	) (map[uint]decimal.Decimal, error)
}

// CreditLedgerSettler settles wagers against the users' credit balances:
// losers forfeit their stake, winners split the forfeited pot in proportion
// to their own stake, draws get their stake back.
type CreditLedgerSettler struct{}

func NewCreditLedgerSettler() *CreditLedgerSettler {
	return &CreditLedgerSettler{}
}

func (s *CreditLedgerSettler) Settle(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
	parts []*models.Participation,
	results map[uuid.UUID]models.ParticipationStatus,
) (map[uint]decimal.Decimal, error) {
	losersPot := decimal.Zero
	winnersStake := decimal.Zero
	for _, p := range parts {
		switch results[p.ID] {
		case models.ParticipationStatusLost:
			losersPot = losersPot.Add(p.Stake)
		case models.ParticipationStatusWon:
			winnersStake = winnersStake.Add(p.Stake)
		}
	}

	deltas := make(map[uint]decimal.Decimal, len(parts))
	for _, p := range parts {
		switch results[p.ID] {
		case models.ParticipationStatusWon:
			share := decimal.Zero
			if winnersStake.IsPositive() {
				share = losersPot.Mul(p.Stake).Div(winnersStake).Round(2)
			}
			// stake back plus the winnings share
			if err := tx.CreditUser(ctx, p.UserID, p.Stake.Add(share)); err != nil {
				return nil, fmt.Errorf("failed to credit winner %d: %w", p.UserID, err)
			}
			deltas[p.UserID] = share
		case models.ParticipationStatusDraw:
			if err := tx.CreditUser(ctx, p.UserID, p.Stake); err != nil {
				return nil, fmt.Errorf("failed to refund draw %d: %w", p.UserID, err)
			}
			deltas[p.UserID] = decimal.Zero
		case models.ParticipationStatusLost:
			// stake was debited at join time and is forfeited
			deltas[p.UserID] = p.Stake.Neg()
		}
	}

	log.Printf("[Settlement] Wager %s settled: pot=%s across %d stakes", wager.ID, losersPot, len(parts))
	return deltas, nil
}

func (s *CreditLedgerSettler) Refund(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
	parts []*models.Participation,
) (map[uint]decimal.Decimal, error) {
	refunds := make(map[uint]decimal.Decimal, len(parts))
	for _, p := range parts {
		if p.Status != models.ParticipationStatusActive {
			continue
		}
		if err := tx.CreditUser(ctx, p.UserID, p.Stake); err != nil {
			return nil, fmt.Errorf("failed to refund user %d: %w", p.UserID, err)
		}
		refunds[p.UserID] = p.Stake
	}

	log.Printf("[Settlement] Wager %s refunded: %d stakes returned", wager.ID, len(refunds))
	return refunds, nil
}
