package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"groupbet/internal/clock"
	"groupbet/internal/events"
	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WagerService is the resolution engine: it owns every wager state
// transition, the three resolution strategies, and the voting algorithms.
type WagerService struct {
	repo      *repository.Repository
	settler   Settler
	publisher events.Publisher
	clock     clock.Clock
}

func NewWagerService(
	repo *repository.Repository,
	settler Settler,
	publisher events.Publisher,
	clk clock.Clock,
) *WagerService {
	return &WagerService{
		repo:      repo,
		settler:   settler,
		publisher: publisher,
		clock:     clk,
	}
}

// CreateWager creates a new wager in OPEN state
func (s *WagerService) CreateWager(
	ctx context.Context,
	creatorID uint,
	req *models.CreateWagerRequest,
) (*models.Wager, error) {
	wagerType := models.WagerType(req.Type)
	switch wagerType {
	case models.WagerTypeBinary, models.WagerTypeMultipleChoice, models.WagerTypePrediction:
	default:
		return nil, fmt.Errorf("unknown wager type %q: %w", req.Type, ErrInvalidState)
	}

	method := models.ResolutionMethod(req.ResolutionMethod)
	switch method {
	case models.ResolutionMethodSelf, models.ResolutionMethodAssignedResolvers, models.ResolutionMethodParticipantVote:
	default:
		return nil, fmt.Errorf("unknown resolution method %q: %w", req.ResolutionMethod, ErrInvalidState)
	}

	bettingDeadline, err := time.Parse(time.RFC3339, req.BettingDeadline)
	if err != nil {
		return nil, fmt.Errorf("invalid betting deadline: %w", ErrInvalidState)
	}
	resolveDeadline, err := time.Parse(time.RFC3339, req.ResolveDeadline)
	if err != nil {
		return nil, fmt.Errorf("invalid resolve deadline: %w", ErrInvalidState)
	}

	now := s.clock.Now()
	if !bettingDeadline.After(now) || !resolveDeadline.After(bettingDeadline) {
		return nil, fmt.Errorf("deadlines must be in the future and ordered: %w", ErrInvalidState)
	}

	if wagerType != models.WagerTypePrediction && (req.Option1 == "" || req.Option2 == "") {
		return nil, fmt.Errorf("at least two options are required: %w", ErrInvalidState)
	}

	wager := &models.Wager{
		ID:               uuid.New(),
		GroupID:          req.GroupID,
		CreatorID:        creatorID,
		Title:            req.Title,
		Description:      req.Description,
		Type:             wagerType,
		ResolutionMethod: method,
		Status:           models.WagerStatusOpen,
		Option1:          req.Option1,
		Option2:          req.Option2,
		Option3:          req.Option3,
		Option4:          req.Option4,
		AllowCreatorVote: req.AllowCreatorVote,
		BettingDeadline:  bettingDeadline.UTC(),
		ResolveDeadline:  resolveDeadline.UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.CreateWager(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}
	return wager, nil
}

// JoinWager places a stake on an OPEN wager. Joining a PARTICIPANT_VOTE wager
// also creates the vote-only resolver assignment that makes the participant an
// eligible voter; the engine's voter count relies on this contract.
func (s *WagerService) JoinWager(
	ctx context.Context,
	wagerID uuid.UUID,
	userID uint,
	req *models.JoinWagerRequest,
) (*models.Participation, error) {
	stake, err := decimal.NewFromString(req.Stake)
	if err != nil || !stake.IsPositive() {
		return nil, fmt.Errorf("stake must be a positive amount: %w", ErrInvalidState)
	}

	var participation *models.Participation
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		wager, err := s.getWager(ctx, tx, wagerID)
		if err != nil {
			return err
		}
		if wager.Status != models.WagerStatusOpen {
			return fmt.Errorf("wager is not open for betting: %w", ErrInvalidState)
		}
		if !s.clock.Now().Before(wager.BettingDeadline) {
			return fmt.Errorf("betting deadline has passed: %w", ErrInvalidState)
		}

		p := &models.Participation{
			ID:             uuid.New(),
			WagerID:        wagerID,
			UserID:         userID,
			PredictedValue: req.PredictedValue,
			Stake:          stake,
			Status:         models.ParticipationStatusActive,
		}

		if wager.Type == models.WagerTypePrediction {
			if req.PredictedValue == nil || *req.PredictedValue == "" {
				return fmt.Errorf("prediction wagers need a predicted value: %w", ErrInvalidState)
			}
		} else {
			if req.ChosenOption == nil {
				return fmt.Errorf("an option must be chosen: %w", ErrInvalidState)
			}
			chosen, err := wager.ParseOutcome(*req.ChosenOption)
			if err != nil || chosen == models.OutcomeDraw {
				return fmt.Errorf("invalid option %q: %w", *req.ChosenOption, ErrInvalidState)
			}
			p.ChosenOption = &chosen
		}

		// Guarded debit: the balance check and the write are one statement,
		// so two concurrent joins cannot both pass and overdraw
		rows, err := tx.DebitUser(ctx, userID, stake)
		if err != nil {
			return fmt.Errorf("failed to debit stake: %w", err)
		}
		if rows == 0 {
			if _, err := tx.GetUserByID(ctx, userID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("user %d: %w", userID, ErrNotFound)
				}
				return err
			}
			return fmt.Errorf("insufficient balance: %w", ErrInvalidState)
		}

		if err := tx.CreateParticipation(ctx, p); err != nil {
			return fmt.Errorf("failed to create participation: %w", err)
		}

		// Implicit vote-only resolver assignment for consensus wagers
		if wager.ResolutionMethod == models.ResolutionMethodParticipantVote {
			existing, err := tx.GetActiveAssignment(ctx, wagerID, userID)
			if err != nil {
				return err
			}
			if existing == nil {
				assignment := &models.ResolverAssignment{
					ID:                      uuid.New(),
					WagerID:                 wagerID,
					ResolverID:              userID,
					AssignedBy:              wager.CreatorID,
					CanResolveIndependently: false,
					IsActive:                true,
				}
				if err := tx.CreateResolverAssignment(ctx, assignment); err != nil {
					return fmt.Errorf("failed to create voter assignment: %w", err)
				}
			}
		}

		participation = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participation, nil
}

// GetWager retrieves one wager
func (s *WagerService) GetWager(ctx context.Context, wagerID uuid.UUID) (*models.Wager, error) {
	return s.getWager(ctx, s.repo, wagerID)
}

func (s *WagerService) getWager(ctx context.Context, tx *repository.Repository, wagerID uuid.UUID) (*models.Wager, error) {
	wager, err := tx.GetWagerByID(ctx, wagerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("wager %s: %w", wagerID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return wager, nil
}

// eligibleVoters returns the distinct users allowed to cast a consensus vote:
// the creator when allowed, plus every active resolver assignment
func (s *WagerService) eligibleVoters(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
) (map[uint]bool, error) {
	assignments, err := tx.GetActiveAssignments(ctx, wager.ID)
	if err != nil {
		return nil, err
	}

	voters := make(map[uint]bool, len(assignments)+1)
	if wager.AllowCreatorVote {
		voters[wager.CreatorID] = true
	}
	for _, a := range assignments {
		voters[a.ResolverID] = true
	}
	return voters, nil
}

// GetVoteCounts returns the active outcome-vote tally for a wager
func (s *WagerService) GetVoteCounts(ctx context.Context, wagerID uuid.UUID) (map[models.WagerOutcome]int, error) {
	if _, err := s.getWager(ctx, s.repo, wagerID); err != nil {
		return nil, err
	}
	votes, err := s.repo.GetActiveOutcomeVotes(ctx, wagerID)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.WagerOutcome]int)
	for _, v := range votes {
		if v.Outcome != nil {
			counts[*v.Outcome]++
		}
	}
	return counts, nil
}

// CanResolve reports whether user may directly resolve the wager. It mirrors
// the direct-resolution authorization rules without side effects and is false
// once the wager is terminal.
func (s *WagerService) CanResolve(ctx context.Context, wagerID uuid.UUID, userID uint) (bool, error) {
	wager, err := s.getWager(ctx, s.repo, wagerID)
	if err != nil {
		return false, err
	}
	if wager.IsTerminal() {
		return false, nil
	}

	assignment, err := s.repo.GetActiveAssignment(ctx, wagerID, userID)
	if err != nil {
		return false, err
	}
	return strategyFor(wager).authorize(wager, userID, assignment) == nil, nil
}

// loadBallot reads all active votes on a wager into one aggregate
func (s *WagerService) loadBallot(
	ctx context.Context,
	tx *repository.Repository,
	wager *models.Wager,
) (ballot, error) {
	b := ballot{
		outcomes:    make(map[models.WagerOutcome]int),
		correct:     make(map[uuid.UUID]int),
		totalVotes:  make(map[uuid.UUID]int),
		nominations: make(map[uint]int),
	}

	outcomeVotes, err := tx.GetActiveOutcomeVotes(ctx, wager.ID)
	if err != nil {
		return b, err
	}
	for _, v := range outcomeVotes {
		if v.Outcome != nil {
			b.outcomes[*v.Outcome]++
		}
	}

	if wager.Type != models.WagerTypePrediction {
		return b, nil
	}

	predictionVotes, err := tx.GetActivePredictionVotes(ctx, wager.ID)
	if err != nil {
		return b, err
	}
	for _, v := range predictionVotes {
		b.totalVotes[v.ParticipationID]++
		if v.IsCorrect {
			b.correct[v.ParticipationID]++
		}
	}

	selections, err := tx.GetWinnerSelections(ctx, wager.ID)
	if err != nil {
		return b, err
	}
	// Nominations count distinct voters, not selection rows
	voters := make(map[uuid.UUID]bool)
	nominatedBy := make(map[uint]map[uuid.UUID]bool)
	for _, sel := range selections {
		voters[sel.VoteID] = true
		if nominatedBy[sel.WinnerUserID] == nil {
			nominatedBy[sel.WinnerUserID] = make(map[uuid.UUID]bool)
		}
		nominatedBy[sel.WinnerUserID][sel.VoteID] = true
	}
	for userID, ballots := range nominatedBy {
		b.nominations[userID] = len(ballots)
	}
	b.winnerVoters = len(voters)

	return b, nil
}
