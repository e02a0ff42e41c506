package services

import (
	"context"
	"fmt"
	"log"

	"groupbet/internal/events"
	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cancel cancels a wager before resolution. Cancellation is irreversible:
// every ACTIVE stake is refunded in the same transaction and the wager can
// never be reopened.
func (s *WagerService) Cancel(
	ctx context.Context,
	wagerID uuid.UUID,
	actorID uint,
	reason *string,
) error {
	var (
		cancelled *models.Wager
		refunds   map[uint]decimal.Decimal
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		wager, err := s.getWager(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if wager.IsTerminal() {
			return fmt.Errorf("wager is already %s: %w", wager.Status, ErrInvalidState)
		}
		if actorID != wager.CreatorID {
			return fmt.Errorf("only the creator can cancel a wager: %w", ErrUnauthorized)
		}

		now := s.clock.Now()
		outcome := models.OutcomeCancelled
		rows, err := tx.UpdateWagerIfStatus(ctx, wagerID,
			[]models.WagerStatus{models.WagerStatusOpen, models.WagerStatusClosed},
			map[string]interface{}{
				"status":        models.WagerStatusCancelled,
				"outcome":       outcome,
				"cancelled_by":  actorID,
				"cancel_reason": reason,
				"updated_at":    now,
			})
		if err != nil {
			return fmt.Errorf("failed to cancel wager: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("wager is no longer cancellable: %w", ErrInvalidState)
		}

		parts, err := tx.GetParticipations(ctx, wagerID)
		if err != nil {
			return err
		}

		refunds, err = s.settler.Refund(ctx, tx, wager, parts)
		if err != nil {
			return fmt.Errorf("refund failed: %w", err)
		}

		for _, p := range parts {
			if p.Status != models.ParticipationStatusActive {
				continue
			}
			if err := tx.UpdateParticipationStatus(ctx, p.ID, models.ParticipationStatusRefunded); err != nil {
				return fmt.Errorf("failed to mark participation %s refunded: %w", p.ID, err)
			}
		}

		wager.Status = models.WagerStatusCancelled
		wager.Outcome = &outcome
		cancelled = wager
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[Cancel] Wager %s cancelled by user %d (%d refunds)", wagerID, actorID, len(refunds))

	s.publisher.Publish(ctx, events.WagerCancelled{
		WagerID:     cancelled.ID,
		GroupID:     cancelled.GroupID,
		CancelledBy: actorID,
		Reason:      reason,
		RefundMap:   refunds,
	})
	return nil
}
