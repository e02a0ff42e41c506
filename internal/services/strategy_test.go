package services

import (
	"testing"

	"groupbet/internal/models"

	"github.com/google/uuid"
)

func option(o models.WagerOutcome) *models.WagerOutcome {
	return &o
}

func TestPluralityTallySingleLeader(t *testing.T) {
	b := ballot{outcomes: map[models.WagerOutcome]int{
		models.OutcomeOption1: 2,
		models.OutcomeOption2: 1,
	}}

	result := pluralityStrategy{}.tally(b, nil)
	if result.outcome != models.OutcomeOption1 {
		t.Errorf("expected OPTION_1, got %s", result.outcome)
	}
}

func TestPluralityTallyTieIsDraw(t *testing.T) {
	b := ballot{outcomes: map[models.WagerOutcome]int{
		models.OutcomeOption1: 2,
		models.OutcomeOption2: 2,
		models.OutcomeOption3: 1,
	}}

	result := pluralityStrategy{}.tally(b, nil)
	if result.outcome != models.OutcomeDraw {
		t.Errorf("expected DRAW on tie, got %s", result.outcome)
	}
}

func TestPluralityTallyZeroVotesIsDraw(t *testing.T) {
	b := ballot{outcomes: map[models.WagerOutcome]int{}}

	result := pluralityStrategy{}.tally(b, nil)
	if result.outcome != models.OutcomeDraw {
		t.Errorf("expected DRAW with no votes, got %s", result.outcome)
	}
}

func TestPluralityApply(t *testing.T) {
	winner := &models.Participation{ID: uuid.New(), ChosenOption: option(models.OutcomeOption1)}
	loser := &models.Participation{ID: uuid.New(), ChosenOption: option(models.OutcomeOption2)}
	parts := []*models.Participation{winner, loser}

	results := pluralityStrategy{}.apply(tally{outcome: models.OutcomeOption1}, parts)
	if results[winner.ID] != models.ParticipationStatusWon {
		t.Errorf("expected WON, got %s", results[winner.ID])
	}
	if results[loser.ID] != models.ParticipationStatusLost {
		t.Errorf("expected LOST, got %s", results[loser.ID])
	}

	results = pluralityStrategy{}.apply(tally{outcome: models.OutcomeDraw}, parts)
	for _, p := range parts {
		if results[p.ID] != models.ParticipationStatusDraw {
			t.Errorf("expected DRAW for all on draw outcome, got %s", results[p.ID])
		}
	}
}

func TestPredictionTallyCorrectnessThresholds(t *testing.T) {
	cases := []struct {
		name    string
		correct int
		votes   int
		want    models.ParticipationStatus
	}{
		{"three of four", 3, 4, models.ParticipationStatusWon},
		{"two of four", 2, 4, models.ParticipationStatusDraw},
		{"one of four", 1, 4, models.ParticipationStatusLost},
		{"no votes", 0, 0, models.ParticipationStatusDraw},
		{"two of three", 2, 3, models.ParticipationStatusWon},
		{"one of three", 1, 3, models.ParticipationStatusLost},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &models.Participation{ID: uuid.New()}
			b := ballot{
				correct:    map[uuid.UUID]int{p.ID: tc.correct},
				totalVotes: map[uuid.UUID]int{p.ID: tc.votes},
			}

			result := predictionStrategy{}.tally(b, []*models.Participation{p})
			if got := result.byTarget[p.ID]; got != tc.want {
				t.Errorf("%d/%d correct: expected %s, got %s", tc.correct, tc.votes, tc.want, got)
			}
		})
	}
}

func TestPredictionTallyWinnerSelectionThresholds(t *testing.T) {
	// Four voters: 3 nominations is a strict majority, 2 is an exact split
	p1 := &models.Participation{ID: uuid.New(), UserID: 1}
	p2 := &models.Participation{ID: uuid.New(), UserID: 2}
	p3 := &models.Participation{ID: uuid.New(), UserID: 3}
	b := ballot{
		nominations:  map[uint]int{1: 3, 2: 2, 3: 1},
		winnerVoters: 4,
	}

	result := predictionStrategy{}.tally(b, []*models.Participation{p1, p2, p3})
	if result.byTarget[p1.ID] != models.ParticipationStatusWon {
		t.Errorf("3/4 nominations: expected WON, got %s", result.byTarget[p1.ID])
	}
	if result.byTarget[p2.ID] != models.ParticipationStatusDraw {
		t.Errorf("2/4 nominations: expected DRAW, got %s", result.byTarget[p2.ID])
	}
	if result.byTarget[p3.ID] != models.ParticipationStatusLost {
		t.Errorf("1/4 nominations: expected LOST, got %s", result.byTarget[p3.ID])
	}
	if result.outcome != models.OutcomeOption1 {
		t.Errorf("expected placeholder outcome OPTION_1 with a winner, got %s", result.outcome)
	}
}

func TestPredictionTallyWinnerSelectionOddVoters(t *testing.T) {
	// Three voters: an exact split is impossible, 2 nominations already wins
	p1 := &models.Participation{ID: uuid.New(), UserID: 1}
	p2 := &models.Participation{ID: uuid.New(), UserID: 2}
	b := ballot{
		nominations:  map[uint]int{1: 2, 2: 1},
		winnerVoters: 3,
	}

	result := predictionStrategy{}.tally(b, []*models.Participation{p1, p2})
	if result.byTarget[p1.ID] != models.ParticipationStatusWon {
		t.Errorf("2/3 nominations: expected WON, got %s", result.byTarget[p1.ID])
	}
	if result.byTarget[p2.ID] != models.ParticipationStatusLost {
		t.Errorf("1/3 nominations: expected LOST, got %s", result.byTarget[p2.ID])
	}
}

func TestPredictionTallyAllLoseIsDrawOutcome(t *testing.T) {
	p := &models.Participation{ID: uuid.New(), UserID: 1}
	b := ballot{
		correct:    map[uuid.UUID]int{p.ID: 0},
		totalVotes: map[uuid.UUID]int{p.ID: 2},
	}

	result := predictionStrategy{}.tally(b, []*models.Participation{p})
	if result.outcome != models.OutcomeDraw {
		t.Errorf("expected placeholder DRAW with no winners, got %s", result.outcome)
	}
}

func TestAuthorizeDirect(t *testing.T) {
	creator := uint(1)
	other := uint(2)

	selfWager := &models.Wager{CreatorID: creator, ResolutionMethod: models.ResolutionMethodSelf}
	if err := authorizeDirect(selfWager, creator, nil); err != nil {
		t.Errorf("creator should resolve a SELF wager: %v", err)
	}
	if err := authorizeDirect(selfWager, other, nil); err == nil {
		t.Error("non-creator should not resolve a SELF wager")
	}

	assigned := &models.Wager{CreatorID: creator, ResolutionMethod: models.ResolutionMethodAssignedResolvers}
	independent := &models.ResolverAssignment{ResolverID: other, CanResolveIndependently: true}
	voteOnly := &models.ResolverAssignment{ResolverID: other, CanResolveIndependently: false}
	if err := authorizeDirect(assigned, other, independent); err != nil {
		t.Errorf("independent resolver should resolve: %v", err)
	}
	if err := authorizeDirect(assigned, other, voteOnly); err == nil {
		t.Error("vote-only resolver should not resolve directly")
	}
	if err := authorizeDirect(assigned, creator, nil); err == nil {
		t.Error("creator without assignment should not resolve an ASSIGNED_RESOLVERS wager")
	}

	consensus := &models.Wager{CreatorID: creator, ResolutionMethod: models.ResolutionMethodParticipantVote}
	if err := authorizeDirect(consensus, creator, independent); err == nil {
		t.Error("PARTICIPANT_VOTE wagers must never resolve directly")
	}
}
