package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupbet/internal/clock"
	"groupbet/internal/database"
	"groupbet/internal/events"
	"groupbet/internal/models"
	"groupbet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      *WagerService
	repo     *repository.Repository
	recorder *events.Recorder
	clock    *clock.Fake
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	repo := repository.NewRepository(db)
	recorder := events.NewRecorder()
	clk := clock.NewFake(testEpoch)
	return &testEnv{
		svc:      NewWagerService(repo, NewCreditLedgerSettler(), recorder, clk),
		repo:     repo,
		recorder: recorder,
		clock:    clk,
	}
}

func (e *testEnv) createUser(t *testing.T, id uint, balance int64) {
	user := &models.User{ID: id, Username: "user" + uuid.NewString()[:8], Balance: decimal.NewFromInt(balance)}
	if err := e.repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
}

func (e *testEnv) balance(t *testing.T, id uint) decimal.Decimal {
	user, err := e.repo.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load user %d: %v", id, err)
	}
	return user.Balance
}

func (e *testEnv) createWager(t *testing.T, creatorID uint, wagerType models.WagerType, method models.ResolutionMethod) *models.Wager {
	req := &models.CreateWagerRequest{
		GroupID:          1,
		Title:            "test wager",
		Type:             string(wagerType),
		ResolutionMethod: string(method),
		Option1:          "Yes",
		Option2:          "No",
		BettingDeadline:  e.clock.Now().Add(48 * time.Hour).Format(time.RFC3339),
		ResolveDeadline:  e.clock.Now().Add(72 * time.Hour).Format(time.RFC3339),
	}
	wager, err := e.svc.CreateWager(context.Background(), creatorID, req)
	if err != nil {
		t.Fatalf("failed to create wager: %v", err)
	}
	return wager
}

func (e *testEnv) join(t *testing.T, wagerID uuid.UUID, userID uint, chosen string, stake string) *models.Participation {
	req := &models.JoinWagerRequest{Stake: stake}
	if chosen != "" {
		req.ChosenOption = &chosen
	}
	p, err := e.svc.JoinWager(context.Background(), wagerID, userID, req)
	if err != nil {
		t.Fatalf("user %d failed to join: %v", userID, err)
	}
	return p
}

func (e *testEnv) joinPrediction(t *testing.T, wagerID uuid.UUID, userID uint, predicted string, stake string) *models.Participation {
	req := &models.JoinWagerRequest{Stake: stake, PredictedValue: &predicted}
	p, err := e.svc.JoinWager(context.Background(), wagerID, userID, req)
	if err != nil {
		t.Fatalf("user %d failed to join: %v", userID, err)
	}
	return p
}

func strPtr(s string) *string { return &s }

func TestCreateWagerValidation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	ctx := context.Background()

	base := func() *models.CreateWagerRequest {
		return &models.CreateWagerRequest{
			GroupID:          1,
			Title:            "t",
			Type:             string(models.WagerTypeBinary),
			ResolutionMethod: string(models.ResolutionMethodSelf),
			Option1:          "Yes",
			Option2:          "No",
			BettingDeadline:  env.clock.Now().Add(time.Hour).Format(time.RFC3339),
			ResolveDeadline:  env.clock.Now().Add(2 * time.Hour).Format(time.RFC3339),
		}
	}

	if _, err := env.svc.CreateWager(ctx, 1, base()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req := base()
	req.Type = "COIN_FLIP"
	if _, err := env.svc.CreateWager(ctx, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unknown type: expected ErrInvalidState, got %v", err)
	}

	req = base()
	req.ResolutionMethod = "ORACLE"
	if _, err := env.svc.CreateWager(ctx, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unknown method: expected ErrInvalidState, got %v", err)
	}

	req = base()
	req.BettingDeadline = env.clock.Now().Add(-time.Hour).Format(time.RFC3339)
	if _, err := env.svc.CreateWager(ctx, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("past betting deadline: expected ErrInvalidState, got %v", err)
	}

	req = base()
	req.ResolveDeadline = env.clock.Now().Add(30 * time.Minute).Format(time.RFC3339)
	if _, err := env.svc.CreateWager(ctx, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("resolve before betting deadline: expected ErrInvalidState, got %v", err)
	}

	req = base()
	req.Option2 = ""
	if _, err := env.svc.CreateWager(ctx, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("single option: expected ErrInvalidState, got %v", err)
	}
}

func TestJoinWagerDebitsStake(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	env.join(t, wager.ID, 2, "OPTION_1", "250.00")

	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(750)) {
		t.Errorf("expected balance 750 after join, got %s", got)
	}
}

func TestJoinWagerRejectsInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 100)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	req := &models.JoinWagerRequest{ChosenOption: strPtr("OPTION_1"), Stake: "500"}
	_, err := env.svc.JoinWager(context.Background(), wager.ID, 2, req)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	// Failed join must not touch the balance
	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance 100 untouched, got %s", got)
	}
}

func TestJoinWagerRejectsAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	env.clock.Advance(49 * time.Hour)

	req := &models.JoinWagerRequest{ChosenOption: strPtr("OPTION_1"), Stake: "10"}
	_, err := env.svc.JoinWager(context.Background(), wager.ID, 2, req)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState past the deadline, got %v", err)
	}
}

func TestResolveSelfSettlesStakes(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	env.createUser(t, 3, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	env.join(t, wager.ID, 2, "OPTION_1", "100")
	env.join(t, wager.ID, 3, "OPTION_2", "50")

	resolved, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_1", strPtr("saw it happen"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != models.WagerStatusResolved {
		t.Errorf("expected RESOLVED, got %s", resolved.Status)
	}
	if resolved.Outcome == nil || *resolved.Outcome != models.OutcomeOption1 {
		t.Errorf("expected outcome OPTION_1, got %v", resolved.Outcome)
	}

	// Winner takes stake back plus the loser's pot
	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("winner: expected 1050, got %s", got)
	}
	if got := env.balance(t, 3); !got.Equal(decimal.NewFromInt(950)) {
		t.Errorf("loser: expected 950, got %s", got)
	}

	parts, err := env.repo.GetParticipations(context.Background(), wager.ID)
	if err != nil {
		t.Fatalf("failed to load participations: %v", err)
	}
	for _, p := range parts {
		want := models.ParticipationStatusWon
		if p.UserID == 3 {
			want = models.ParticipationStatusLost
		}
		if p.Status != want {
			t.Errorf("user %d: expected %s, got %s", p.UserID, want, p.Status)
		}
	}

	published := env.recorder.Named("wager.resolved")
	if len(published) != 1 {
		t.Fatalf("expected one resolved event, got %d", len(published))
	}
	event := published[0].(events.WagerResolved)
	if !event.PayoutDeltas[2].Equal(decimal.NewFromInt(50)) {
		t.Errorf("winner delta: expected 50, got %s", event.PayoutDeltas[2])
	}
	if !event.PayoutDeltas[3].Equal(decimal.NewFromInt(-50)) {
		t.Errorf("loser delta: expected -50, got %s", event.PayoutDeltas[3])
	}
}

func TestResolveProportionalSplit(t *testing.T) {
	env := newTestEnv(t)
	for id := uint(1); id <= 4; id++ {
		env.createUser(t, id, 1000)
	}
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	env.join(t, wager.ID, 2, "OPTION_1", "300") // 3/4 of the winning stake
	env.join(t, wager.ID, 3, "OPTION_1", "100")
	env.join(t, wager.ID, 4, "OPTION_2", "200")

	if _, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_1", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(1150)) {
		t.Errorf("large winner: expected 1150, got %s", got)
	}
	if got := env.balance(t, 3); !got.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("small winner: expected 1050, got %s", got)
	}
	if got := env.balance(t, 4); !got.Equal(decimal.NewFromInt(800)) {
		t.Errorf("loser: expected 800, got %s", got)
	}
}

func TestResolveDrawRefundsEveryone(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	env.createUser(t, 3, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	env.join(t, wager.ID, 2, "OPTION_1", "100")
	env.join(t, wager.ID, 3, "OPTION_2", "100")

	if _, err := env.svc.Resolve(context.Background(), wager.ID, 1, "DRAW", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	for _, id := range []uint{2, 3} {
		if got := env.balance(t, id); !got.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("user %d: expected full refund to 1000, got %s", id, got)
		}
	}
}

func TestResolveIsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	env.join(t, wager.ID, 2, "OPTION_1", "100")

	if _, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_1", nil); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	_, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_2", nil)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("second resolve: expected ErrInvalidState, got %v", err)
	}

	// No double settlement
	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000 after single settlement, got %s", got)
	}
	if n := len(env.recorder.Named("wager.resolved")); n != 1 {
		t.Errorf("expected exactly one resolved event, got %d", n)
	}
}

func TestResolveAuthorization(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	ctx := context.Background()

	selfWager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	if _, err := env.svc.Resolve(ctx, selfWager.ID, 2, "OPTION_1", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-creator on SELF: expected ErrUnauthorized, got %v", err)
	}

	consensus := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodParticipantVote)
	if _, err := env.svc.Resolve(ctx, consensus.ID, 1, "OPTION_1", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("direct resolve on PARTICIPANT_VOTE: expected ErrUnauthorized, got %v", err)
	}

	assigned := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodAssignedResolvers)
	if _, err := env.svc.Resolve(ctx, assigned.ID, 1, "OPTION_1", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("creator without assignment: expected ErrUnauthorized, got %v", err)
	}

	_, err := env.svc.AssignResolver(ctx, assigned.ID, 1, &models.AssignResolverRequest{
		ResolverID:              2,
		CanResolveIndependently: true,
	})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := env.svc.Resolve(ctx, assigned.ID, 2, "OPTION_1", nil); err != nil {
		t.Errorf("independent resolver should resolve: %v", err)
	}
}

func TestResolveRejectsUnknownOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	if _, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_3", nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("OPTION_3 on a binary wager: expected ErrInvalidState, got %v", err)
	}
}

func TestResolveRejectsPredictionWager(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	wager := env.createWager(t, 1, models.WagerTypePrediction, models.ResolutionMethodSelf)

	if _, err := env.svc.Resolve(context.Background(), wager.ID, 1, "OPTION_1", nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for direct outcome on PREDICTION, got %v", err)
	}
}

func TestResolveByWinners(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	env.createUser(t, 3, 1000)
	wager := env.createWager(t, 1, models.WagerTypePrediction, models.ResolutionMethodSelf)
	env.joinPrediction(t, wager.ID, 2, "42", "100")
	env.joinPrediction(t, wager.ID, 3, "wrong", "100")

	resolved, err := env.svc.ResolveByWinners(context.Background(), wager.ID, 1, []uint{2}, nil)
	if err != nil {
		t.Fatalf("resolve by winners failed: %v", err)
	}
	if resolved.Status != models.WagerStatusResolved {
		t.Errorf("expected RESOLVED, got %s", resolved.Status)
	}

	if got := env.balance(t, 2); !got.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("winner: expected 1100, got %s", got)
	}
	if got := env.balance(t, 3); !got.Equal(decimal.NewFromInt(900)) {
		t.Errorf("loser: expected 900, got %s", got)
	}
}

func TestResolveByWinnersValidation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	ctx := context.Background()

	wager := env.createWager(t, 1, models.WagerTypePrediction, models.ResolutionMethodSelf)
	env.joinPrediction(t, wager.ID, 2, "42", "100")

	if _, err := env.svc.ResolveByWinners(ctx, wager.ID, 1, nil, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("empty winner set: expected ErrInvalidState, got %v", err)
	}
	if _, err := env.svc.ResolveByWinners(ctx, wager.ID, 1, []uint{99}, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("non-participant winner: expected ErrInvalidState, got %v", err)
	}

	binary := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	if _, err := env.svc.ResolveByWinners(ctx, binary.ID, 1, []uint{2}, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("winner set on BINARY: expected ErrInvalidState, got %v", err)
	}
}

func TestCancelRefundsStakes(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	env.createUser(t, 3, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)
	env.join(t, wager.ID, 2, "OPTION_1", "100")
	env.join(t, wager.ID, 3, "OPTION_2", "200")
	ctx := context.Background()

	if err := env.svc.Cancel(ctx, wager.ID, 1, strPtr("event called off")); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	for _, id := range []uint{2, 3} {
		if got := env.balance(t, id); !got.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("user %d: expected refund to 1000, got %s", id, got)
		}
	}

	parts, err := env.repo.GetParticipations(ctx, wager.ID)
	if err != nil {
		t.Fatalf("failed to load participations: %v", err)
	}
	for _, p := range parts {
		if p.Status != models.ParticipationStatusRefunded {
			t.Errorf("user %d: expected REFUNDED, got %s", p.UserID, p.Status)
		}
	}

	published := env.recorder.Named("wager.cancelled")
	if len(published) != 1 {
		t.Fatalf("expected one cancelled event, got %d", len(published))
	}
	event := published[0].(events.WagerCancelled)
	if !event.RefundMap[3].Equal(decimal.NewFromInt(200)) {
		t.Errorf("refund map: expected 200 for user 3, got %s", event.RefundMap[3])
	}

	// Cancellation is terminal
	if err := env.svc.Cancel(ctx, wager.ID, 1, nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second cancel: expected ErrInvalidState, got %v", err)
	}
	if _, err := env.svc.Resolve(ctx, wager.ID, 1, "OPTION_1", nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("resolve after cancel: expected ErrInvalidState, got %v", err)
	}
}

func TestCancelIsCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	if err := env.svc.Cancel(context.Background(), wager.ID, 2, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAssignAndRevokeResolver(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	ctx := context.Background()
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodAssignedResolvers)

	req := &models.AssignResolverRequest{ResolverID: 2, CanResolveIndependently: true}
	if _, err := env.svc.AssignResolver(ctx, wager.ID, 2, req); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-creator assignment: expected ErrUnauthorized, got %v", err)
	}

	if _, err := env.svc.AssignResolver(ctx, wager.ID, 1, req); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := env.svc.AssignResolver(ctx, wager.ID, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate active assignment: expected ErrInvalidState, got %v", err)
	}

	if err := env.svc.RevokeResolver(ctx, wager.ID, 2, 2); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-creator revoke: expected ErrUnauthorized, got %v", err)
	}
	if err := env.svc.RevokeResolver(ctx, wager.ID, 1, 2); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := env.svc.RevokeResolver(ctx, wager.ID, 1, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoking twice: expected ErrNotFound, got %v", err)
	}

	// Revoked resolvers lose direct-resolution rights
	if _, err := env.svc.Resolve(ctx, wager.ID, 2, "OPTION_1", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("revoked resolver: expected ErrUnauthorized, got %v", err)
	}
}

func TestAssignResolverRequiresAssignedMethod(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	req := &models.AssignResolverRequest{ResolverID: 2}
	if _, err := env.svc.AssignResolver(context.Background(), wager.ID, 1, req); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for SELF wager, got %v", err)
	}
}

func TestCanResolve(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 1, 1000)
	env.createUser(t, 2, 1000)
	ctx := context.Background()
	wager := env.createWager(t, 1, models.WagerTypeBinary, models.ResolutionMethodSelf)

	if ok, err := env.svc.CanResolve(ctx, wager.ID, 1); err != nil || !ok {
		t.Errorf("creator on SELF: expected true, got %v (%v)", ok, err)
	}
	if ok, err := env.svc.CanResolve(ctx, wager.ID, 2); err != nil || ok {
		t.Errorf("stranger on SELF: expected false, got %v (%v)", ok, err)
	}

	if _, err := env.svc.Resolve(ctx, wager.ID, 1, "OPTION_1", nil); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ok, err := env.svc.CanResolve(ctx, wager.ID, 1); err != nil || ok {
		t.Errorf("terminal wager: expected false, got %v (%v)", ok, err)
	}
}

func TestGetWagerNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.GetWager(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
