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

// resolutionOutcome carries everything needed to emit the resolved event
// after the transaction commits
type resolutionOutcome struct {
	wager      *models.Wager
	parts      []*models.Participation
	results    map[uuid.UUID]models.ParticipationStatus
	deltas     map[uint]decimal.Decimal
	outcome    models.WagerOutcome
	resolvedBy *uint
}

// Resolve directly resolves a wager to an outcome. Only valid for BINARY and
// MULTIPLE_CHOICE wagers; PREDICTION wagers use ResolveByWinners.
func (s *WagerService) Resolve(
	ctx context.Context,
	wagerID uuid.UUID,
	actorID uint,
	outcomeStr string,
	rationale *string,
) (*models.Wager, error) {
	var res *resolutionOutcome
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		wager, err := s.getWager(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if wager.IsTerminal() {
			return fmt.Errorf("wager is already %s: %w", wager.Status, ErrInvalidState)
		}
		if wager.Type == models.WagerTypePrediction {
			return fmt.Errorf("prediction wagers resolve by winner set: %w", ErrInvalidState)
		}

		outcome, err := wager.ParseOutcome(outcomeStr)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidState)
		}

		assignment, err := tx.GetActiveAssignment(ctx, wagerID, actorID)
		if err != nil {
			return err
		}
		strategy := strategyFor(wager)
		if err := strategy.authorize(wager, actorID, assignment); err != nil {
			return err
		}

		// Keep the resolver's stated outcome and rationale in the vote ledger
		// as the audit trail of the decision
		vote := &models.OutcomeVote{
			ID:        uuid.New(),
			WagerID:   wagerID,
			VoterID:   actorID,
			Outcome:   &outcome,
			Rationale: rationale,
			IsActive:  true,
		}
		if err := tx.UpsertOutcomeVote(ctx, vote); err != nil {
			return fmt.Errorf("failed to record resolution rationale: %w", err)
		}

		parts, err := tx.GetParticipations(ctx, wagerID)
		if err != nil {
			return err
		}
		results := strategy.apply(tally{outcome: outcome}, parts)

		res, err = s.finalize(ctx, tx, wager, outcome, parts, results, &actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishResolved(ctx, res)
	return res.wager, nil
}

// ResolveByWinners directly resolves a PREDICTION wager by naming the winning
// participants. Named users win, every other participant loses.
func (s *WagerService) ResolveByWinners(
	ctx context.Context,
	wagerID uuid.UUID,
	actorID uint,
	winnerUserIDs []uint,
	rationale *string,
) (*models.Wager, error) {
	var res *resolutionOutcome
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		wager, err := s.getWager(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if wager.IsTerminal() {
			return fmt.Errorf("wager is already %s: %w", wager.Status, ErrInvalidState)
		}
		if wager.Type != models.WagerTypePrediction {
			return fmt.Errorf("winner-set resolution applies to prediction wagers only: %w", ErrInvalidState)
		}
		if len(winnerUserIDs) == 0 {
			return fmt.Errorf("winner set must not be empty: %w", ErrInvalidState)
		}

		assignment, err := tx.GetActiveAssignment(ctx, wagerID, actorID)
		if err != nil {
			return err
		}
		if err := strategyFor(wager).authorize(wager, actorID, assignment); err != nil {
			return err
		}

		parts, err := tx.GetParticipations(ctx, wagerID)
		if err != nil {
			return err
		}
		byUser := make(map[uint]*models.Participation, len(parts))
		for _, p := range parts {
			byUser[p.UserID] = p
		}
		winners := make(map[uint]bool, len(winnerUserIDs))
		for _, id := range winnerUserIDs {
			if byUser[id] == nil {
				return fmt.Errorf("user %d has no stake on this wager: %w", id, ErrInvalidState)
			}
			winners[id] = true
		}

		// Prediction wagers have no option axis; OPTION_1 marks "decided with
		// winners" and the per-participant statuses carry the real result
		outcome := models.OutcomeOption1
		results := make(map[uuid.UUID]models.ParticipationStatus, len(parts))
		for _, p := range parts {
			if winners[p.UserID] {
				results[p.ID] = models.ParticipationStatusWon
			} else {
				results[p.ID] = models.ParticipationStatusLost
			}
		}

		vote := &models.OutcomeVote{
			ID:        uuid.New(),
			WagerID:   wagerID,
			VoterID:   actorID,
			Rationale: rationale,
			IsActive:  true,
		}
		if err := tx.UpsertOutcomeVote(ctx, vote); err != nil {
			return fmt.Errorf("failed to record resolution rationale: %w", err)
		}

		res, err = s.finalize(ctx, tx, wager, outcome, parts, results, &actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishResolved(ctx, res)
	return res.wager, nil
}

// ForceResolve resolves a wager from whatever votes exist, regardless of
// completeness. Called by the deadline sweep for PARTICIPANT_VOTE and
// PREDICTION wagers whose resolve deadline has passed.
func (s *WagerService) ForceResolve(ctx context.Context, wagerID uuid.UUID) (*models.Wager, error) {
	var res *resolutionOutcome
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		wager, err := s.getWager(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if wager.IsTerminal() {
			return fmt.Errorf("wager is already %s: %w", wager.Status, ErrInvalidState)
		}

		res, err = s.resolveFromBallot(ctx, tx, wager, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishResolved(ctx, res)
	return res.wager, nil
}

// resolveFromBallot tallies the current votes and finalizes the wager inside
// the caller's transaction
func (s *WagerService) resolveFromBallot(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
	resolvedBy *uint,
) (*resolutionOutcome, error) {
	b, err := s.loadBallot(ctx, tx, wager)
	if err != nil {
		return nil, err
	}
	parts, err := tx.GetParticipations(ctx, wager.ID)
	if err != nil {
		return nil, err
	}

	strategy := strategyFor(wager)
	t := strategy.tally(b, parts)
	results := strategy.apply(t, parts)

	return s.finalize(ctx, tx, wager, t.outcome, parts, results, resolvedBy)
}

// finalize flips the wager to RESOLVED with a guarded conditional update,
// writes the per-participant results, and runs settlement. The conditional
// update is what makes resolution exactly-once: a concurrent resolver loses
// the race, affects zero rows, and gets ErrInvalidState.
func (s *WagerService) finalize(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
	outcome models.WagerOutcome,
	parts []*models.Participation,
	results map[uuid.UUID]models.ParticipationStatus,
	resolvedBy *uint,
) (*resolutionOutcome, error) {
	now := s.clock.Now()
	updates := map[string]interface{}{
		"status":      models.WagerStatusResolved,
		"outcome":     outcome,
		"resolved_at": now,
		"updated_at":  now,
	}
	if resolvedBy != nil {
		updates["resolved_by"] = *resolvedBy
	}

	rows, err := tx.UpdateWagerIfStatus(ctx, wager.ID,
		[]models.WagerStatus{models.WagerStatusOpen, models.WagerStatusClosed}, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update wager status: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("wager is no longer resolvable: %w", ErrInvalidState)
	}

	for _, p := range parts {
		if p.Status != models.ParticipationStatusActive {
			continue
		}
		status, ok := results[p.ID]
		if !ok {
			status = models.ParticipationStatusDraw
		}
		if err := tx.UpdateParticipationStatus(ctx, p.ID, status); err != nil {
			return nil, fmt.Errorf("failed to update participation %s: %w", p.ID, err)
		}
		p.Status = status
	}

	deltas, err := s.settler.Settle(ctx, tx, wager, parts, results)
	if err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}

	wager.Status = models.WagerStatusResolved
	wager.Outcome = &outcome
	wager.ResolvedAt = &now
	wager.ResolvedBy = resolvedBy

	log.Printf("[Resolution] Wager %s resolved to %s (%d stakes)", wager.ID, outcome, len(parts))

	return &resolutionOutcome{
		wager:      wager,
		parts:      parts,
		results:    results,
		deltas:     deltas,
		outcome:    outcome,
		resolvedBy: resolvedBy,
	}, nil
}

// publishResolved emits the resolved event after commit. Emission is
// best-effort: the resolved state is authoritative even if notification fails.
func (s *WagerService) publishResolved(ctx context.Context, res *resolutionOutcome) {
	var winners, losers, draws []uint
	for _, p := range res.parts {
		switch res.results[p.ID] {
		case models.ParticipationStatusWon:
			winners = append(winners, p.UserID)
		case models.ParticipationStatusLost:
			losers = append(losers, p.UserID)
		case models.ParticipationStatusDraw:
			draws = append(draws, p.UserID)
		}
	}

	s.publisher.Publish(ctx, events.WagerResolved{
		WagerID:      res.wager.ID,
		Title:        res.wager.Title,
		GroupID:      res.wager.GroupID,
		WinnerIDs:    winners,
		LoserIDs:     losers,
		DrawIDs:      draws,
		PayoutDeltas: res.deltas,
		OutcomeLabel: res.wager.OptionLabel(res.outcome),
		ResolvedBy:   res.resolvedBy,
	})
}

// ExpiredOpenWagers lists OPEN wagers whose betting deadline has passed
func (s *WagerService) ExpiredOpenWagers(ctx context.Context) ([]*models.Wager, error) {
	return s.repo.GetExpiredOpenWagers(ctx, s.clock.Now())
}

// ResolvableWagers lists non-terminal wagers whose resolve deadline has passed
func (s *WagerService) ResolvableWagers(ctx context.Context) ([]*models.Wager, error) {
	return s.repo.GetResolvableWagers(ctx, s.clock.Now())
}

// CloseExpired transitions one OPEN wager past its betting deadline to
// CLOSED. The guarded update means a racing manual close and sweep cannot
// both fire the event.
func (s *WagerService) CloseExpired(ctx context.Context, wagerID uuid.UUID) error {
	wager, err := s.getWager(ctx, s.repo, wagerID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	rows, err := s.repo.UpdateWagerIfStatus(ctx, wagerID,
		[]models.WagerStatus{models.WagerStatusOpen},
		map[string]interface{}{"status": models.WagerStatusClosed, "updated_at": now})
	if err != nil {
		return fmt.Errorf("failed to close wager: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("wager is not open: %w", ErrInvalidState)
	}

	count, err := s.repo.CountParticipants(ctx, wagerID)
	if err != nil {
		log.Printf("[CloseExpired] Failed to count participants for %s: %v", wagerID, err)
	}

	s.publisher.Publish(ctx, events.BettingDeadlineReached{
		WagerID:          wagerID,
		GroupID:          wager.GroupID,
		Deadline:         wager.BettingDeadline,
		ParticipantCount: int(count),
	})
	return nil
}

// NotifyAwaitingManual emits the awaiting-manual-resolution event for
// SELF/ASSIGNED_RESOLVERS wagers the sweep cannot auto-resolve
func (s *WagerService) NotifyAwaitingManual(ctx context.Context, wager *models.Wager) {
	s.publisher.Publish(ctx, events.AwaitingManualResolution{
		WagerID:         wager.ID,
		GroupID:         wager.GroupID,
		ResolveDeadline: wager.ResolveDeadline,
		Method:          wager.ResolutionMethod,
		CreatorID:       wager.CreatorID,
	})
}
