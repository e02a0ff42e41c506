package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/google/uuid"
)

// Vote casts or replaces a voter's outcome-consensus vote. Once every
// eligible voter has voted, the wager resolves immediately by plurality with
// ties (including zero votes) mapped to DRAW.
func (s *WagerService) Vote(
	ctx context.Context,
	wagerID uuid.UUID,
	voterID uint,
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
			return fmt.Errorf("prediction wagers use prediction voting: %w", ErrInvalidState)
		}

		voters, err := s.eligibleVoters(ctx, tx, wager)
		if err != nil {
			return err
		}
		if !voters[voterID] {
			return fmt.Errorf("user %d is not an eligible voter: %w", voterID, ErrUnauthorized)
		}

		outcome, err := wager.ParseOutcome(outcomeStr)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidState)
		}

		vote := &models.OutcomeVote{
			ID:        uuid.New(),
			WagerID:   wagerID,
			VoterID:   voterID,
			Outcome:   &outcome,
			Rationale: rationale,
			IsActive:  true,
		}
		if err := tx.UpsertOutcomeVote(ctx, vote); err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		// Consensus check: re-read the authoritative count inside this same
		// transaction so the last two concurrent voters cannot both resolve
		votes, err := tx.GetActiveOutcomeVotes(ctx, wagerID)
		if err != nil {
			return err
		}
		cast := 0
		for _, v := range votes {
			if v.Outcome != nil {
				cast++
			}
		}
		if cast < len(voters) {
			log.Printf("[Vote] Wager %s: %d/%d votes cast", wagerID, cast, len(voters))
			return nil
		}

		res, err = s.resolveFromBallot(ctx, tx, wager, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res != nil {
		s.publishResolved(ctx, res)
		return res.wager, nil
	}
	return s.GetWager(ctx, wagerID)
}

// VoteOnPrediction casts or replaces a per-participant correctness vote on a
// PREDICTION wager. Voters never judge their own prediction. The wager
// resolves once every eligible voter has voted on every participation they
// may judge.
func (s *WagerService) VoteOnPrediction(
	ctx context.Context,
	wagerID uuid.UUID,
	voterID uint,
	participationID uuid.UUID,
	isCorrect bool,
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
			return fmt.Errorf("correctness voting applies to prediction wagers only: %w", ErrInvalidState)
		}

		target, err := tx.GetParticipationByID(ctx, participationID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("participation %s: %w", participationID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if target.WagerID != wagerID {
			return fmt.Errorf("participation %s belongs to another wager: %w", participationID, ErrNotFound)
		}
		if target.UserID == voterID {
			return fmt.Errorf("voters cannot judge their own prediction: %w", ErrUnauthorized)
		}

		voters, err := s.eligibleVoters(ctx, tx, wager)
		if err != nil {
			return err
		}
		if !voters[voterID] {
			return fmt.Errorf("user %d is not an eligible voter: %w", voterID, ErrUnauthorized)
		}

		vote := &models.PredictionVote{
			ID:              uuid.New(),
			WagerID:         wagerID,
			VoterID:         voterID,
			ParticipationID: participationID,
			IsCorrect:       isCorrect,
			IsActive:        true,
		}
		if err := tx.UpsertPredictionVote(ctx, vote); err != nil {
			return fmt.Errorf("failed to record prediction vote: %w", err)
		}

		parts, err := tx.GetParticipations(ctx, wagerID)
		if err != nil {
			return err
		}

		// Expected total: each participation can be judged by every eligible
		// voter except its own owner
		expected := 0
		for _, p := range parts {
			n := len(voters)
			if voters[p.UserID] {
				n--
			}
			expected += n
		}

		actual, err := tx.CountActivePredictionVotes(ctx, wagerID)
		if err != nil {
			return err
		}
		if int(actual) < expected {
			log.Printf("[VoteOnPrediction] Wager %s: %d/%d correctness votes cast", wagerID, actual, expected)
			return nil
		}

		res, err = s.resolveFromBallot(ctx, tx, wager, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res != nil {
		s.publishResolved(ctx, res)
		return res.wager, nil
	}
	return s.GetWager(ctx, wagerID)
}

// VoteOnPredictionByWinners casts or fully replaces a voter's nominated
// winner set on a PREDICTION wager. The wager resolves once every eligible
// voter has nominated.
func (s *WagerService) VoteOnPredictionByWinners(
	ctx context.Context,
	wagerID uuid.UUID,
	voterID uint,
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
			return fmt.Errorf("winner voting applies to prediction wagers only: %w", ErrInvalidState)
		}
		if len(winnerUserIDs) == 0 {
			return fmt.Errorf("winner set must not be empty: %w", ErrInvalidState)
		}

		voters, err := s.eligibleVoters(ctx, tx, wager)
		if err != nil {
			return err
		}
		if !voters[voterID] {
			return fmt.Errorf("user %d is not an eligible voter: %w", voterID, ErrUnauthorized)
		}

		parts, err := tx.GetParticipations(ctx, wagerID)
		if err != nil {
			return err
		}
		participants := make(map[uint]bool, len(parts))
		for _, p := range parts {
			participants[p.UserID] = true
		}
		// A ballot nominates each user at most once; repeats collapse so one
		// voter cannot inflate a nominee's count
		seen := make(map[uint]bool, len(winnerUserIDs))
		nominated := make([]uint, 0, len(winnerUserIDs))
		for _, id := range winnerUserIDs {
			if !participants[id] {
				return fmt.Errorf("user %d has no stake on this wager: %w", id, ErrInvalidState)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			nominated = append(nominated, id)
		}

		// The vote row anchors the selections; its outcome stays nil
		vote := &models.OutcomeVote{
			ID:        uuid.New(),
			WagerID:   wagerID,
			VoterID:   voterID,
			Rationale: rationale,
			IsActive:  true,
		}
		if err := tx.UpsertOutcomeVote(ctx, vote); err != nil {
			return fmt.Errorf("failed to record winner vote: %w", err)
		}
		stored, err := tx.GetOutcomeVote(ctx, wagerID, voterID)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("winner vote vanished after upsert for wager %s", wagerID)
		}
		if err := tx.ReplaceWinnerSelections(ctx, stored, nominated); err != nil {
			return fmt.Errorf("failed to store winner selections: %w", err)
		}

		nominators, err := tx.CountWinnerVoters(ctx, wagerID)
		if err != nil {
			return err
		}
		if int(nominators) < len(voters) {
			log.Printf("[VoteOnWinners] Wager %s: %d/%d winner nominations cast", wagerID, nominators, len(voters))
			return nil
		}

		res, err = s.resolveFromBallot(ctx, tx, wager, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if res != nil {
		s.publishResolved(ctx, res)
		return res.wager, nil
	}
	return s.GetWager(ctx, wagerID)
}
