package services

import (
	"fmt"

	"groupbet/internal/models"

	"github.com/google/uuid"
)

// ballot aggregates the active votes on a wager in all three shapes
type ballot struct {
	outcomes     map[models.WagerOutcome]int
	correct      map[uuid.UUID]int // participation id -> correct votes
	totalVotes   map[uuid.UUID]int // participation id -> all correctness votes
	nominations  map[uint]int      // user id -> winner nominations
	winnerVoters int               // distinct voters who nominated at least one winner
}

// tally is the decided result of a resolution
type tally struct {
	outcome  models.WagerOutcome
	byTarget map[uuid.UUID]models.ParticipationStatus // set by prediction strategies
}

// resolutionStrategy captures how one resolution-method/bet-type combination
// authorizes direct resolution, folds votes into an outcome, and maps that
// outcome onto per-participant results.
type resolutionStrategy interface {
	authorize(w *models.Wager, actorID uint, assignment *models.ResolverAssignment) error
	tally(b ballot, parts []*models.Participation) tally
	apply(t tally, parts []*models.Participation) map[uuid.UUID]models.ParticipationStatus
}

// strategyFor selects the strategy for a wager
func strategyFor(w *models.Wager) resolutionStrategy {
	if w.Type == models.WagerTypePrediction {
		return predictionStrategy{}
	}
	return pluralityStrategy{}
}

// authorizeDirect holds the per-method direct-resolution rule shared by all
// strategies
func authorizeDirect(w *models.Wager, actorID uint, assignment *models.ResolverAssignment) error {
	switch w.ResolutionMethod {
	case models.ResolutionMethodSelf:
		if actorID != w.CreatorID {
			return fmt.Errorf("only the creator can resolve a SELF wager: %w", ErrUnauthorized)
		}
	case models.ResolutionMethodAssignedResolvers:
		if assignment == nil || !assignment.CanResolveIndependently {
			return fmt.Errorf("actor holds no independent resolver assignment: %w", ErrUnauthorized)
		}
	case models.ResolutionMethodParticipantVote:
		return fmt.Errorf("PARTICIPANT_VOTE wagers resolve by consensus only: %w", ErrUnauthorized)
	default:
		return fmt.Errorf("unknown resolution method %q: %w", w.ResolutionMethod, ErrInvalidState)
	}
	return nil
}

// pluralityStrategy resolves BINARY and MULTIPLE_CHOICE wagers: the outcome
// with the most votes wins, any tie (including zero votes) is a DRAW.
type pluralityStrategy struct{}

func (pluralityStrategy) authorize(w *models.Wager, actorID uint, a *models.ResolverAssignment) error {
	return authorizeDirect(w, actorID, a)
}

func (pluralityStrategy) tally(b ballot, _ []*models.Participation) tally {
	best := 0
	leaders := 0
	var winning models.WagerOutcome
	for outcome, count := range b.outcomes {
		switch {
		case count > best:
			best = count
			leaders = 1
			winning = outcome
		case count == best:
			leaders++
		}
	}
	if leaders != 1 {
		return tally{outcome: models.OutcomeDraw}
	}
	return tally{outcome: winning}
}

func (pluralityStrategy) apply(t tally, parts []*models.Participation) map[uuid.UUID]models.ParticipationStatus {
	results := make(map[uuid.UUID]models.ParticipationStatus, len(parts))
	for _, p := range parts {
		switch {
		case t.outcome == models.OutcomeDraw:
			results[p.ID] = models.ParticipationStatusDraw
		case p.ChosenOption != nil && *p.ChosenOption == t.outcome:
			results[p.ID] = models.ParticipationStatusWon
		default:
			results[p.ID] = models.ParticipationStatusLost
		}
	}
	return results
}

// predictionStrategy resolves PREDICTION wagers per participant: by winner
// nominations when any were cast, otherwise by correctness-vote percentage.
// The wager-level outcome is only a placeholder; the per-participant statuses
// are authoritative.
type predictionStrategy struct{}

func (predictionStrategy) authorize(w *models.Wager, actorID uint, a *models.ResolverAssignment) error {
	return authorizeDirect(w, actorID, a)
}

func (predictionStrategy) tally(b ballot, parts []*models.Participation) tally {
	byTarget := make(map[uuid.UUID]models.ParticipationStatus, len(parts))

	if b.winnerVoters > 0 {
		// Winner-selection mode: compare nominations against half the voters.
		// 2n == T is only reachable when T is even, which is exactly the
		// tie-is-possible condition.
		total := b.winnerVoters
		for _, p := range parts {
			n := b.nominations[p.UserID]
			switch {
			case 2*n > total:
				byTarget[p.ID] = models.ParticipationStatusWon
			case 2*n == total:
				byTarget[p.ID] = models.ParticipationStatusDraw
			default:
				byTarget[p.ID] = models.ParticipationStatusLost
			}
		}
	} else {
		// Correctness mode: percentage of voters who judged the prediction right
		for _, p := range parts {
			votes := b.totalVotes[p.ID]
			if votes == 0 {
				byTarget[p.ID] = models.ParticipationStatusDraw
				continue
			}
			correct := b.correct[p.ID]
			switch {
			case 2*correct > votes:
				byTarget[p.ID] = models.ParticipationStatusWon
			case 2*correct == votes:
				byTarget[p.ID] = models.ParticipationStatusDraw
			default:
				byTarget[p.ID] = models.ParticipationStatusLost
			}
		}
	}

	outcome := models.OutcomeDraw
	for _, status := range byTarget {
		if status == models.ParticipationStatusWon {
			outcome = models.OutcomeOption1
			break
		}
	}
	return tally{outcome: outcome, byTarget: byTarget}
}

func (predictionStrategy) apply(t tally, parts []*models.Participation) map[uuid.UUID]models.ParticipationStatus {
	results := make(map[uuid.UUID]models.ParticipationStatus, len(parts))
	for _, p := range parts {
		if status, ok := t.byTarget[p.ID]; ok {
			results[p.ID] = status
		} else {
			results[p.ID] = models.ParticipationStatusDraw
		}
	}
	return results
}
