package repository

import (
	"context"
	"errors"
	"time"

	"groupbet/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a single database transaction. The Repository
// passed to fn is bound to that transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// CreateWager creates a new wager
func (r *Repository) CreateWager(ctx context.Context, wager *models.Wager) error {
	return r.db.WithContext(ctx).Create(wager).Error
}

// GetWagerByID retrieves a wager by ID
func (r *Repository) GetWagerByID(ctx context.Context, wagerID uuid.UUID) (*models.Wager, error) {
	var wager models.Wager
	err := r.db.WithContext(ctx).Where("id = ?", wagerID).First(&wager).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// UpdateWagerIfStatus applies updates only while the wager still holds one of
// the expected statuses. Returns the number of rows changed so racing callers
// can tell whether they won the transition.
func (r *Repository) UpdateWagerIfStatus(
	ctx context.Context,
	wagerID uuid.UUID,
	expected []models.WagerStatus,
	updates map[string]interface{},
) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ? AND status IN ?", wagerID, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// StampReminderSent records a reminder as sent only if it was never sent,
// so a concurrent sweep cannot double-send
func (r *Repository) StampReminderSent(
	ctx context.Context,
	wagerID uuid.UUID,
	column string,
	at time.Time,
) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ? AND "+column+" IS NULL", wagerID).
		Update(column, at)
	return result.RowsAffected, result.Error
}

// GetExpiredOpenWagers retrieves OPEN wagers whose betting deadline has passed
func (r *Repository) GetExpiredOpenWagers(ctx context.Context, now time.Time) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("status = ? AND betting_deadline < ?", models.WagerStatusOpen, now).
		Order("betting_deadline ASC").
		Find(&wagers).Error
	if err != nil {
		return nil, err
	}
	return wagers, nil
}

// GetResolvableWagers retrieves non-terminal wagers whose resolve deadline has passed
func (r *Repository) GetResolvableWagers(ctx context.Context, now time.Time) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("status IN ? AND resolve_deadline < ?",
			[]models.WagerStatus{models.WagerStatusOpen, models.WagerStatusClosed}, now).
		Order("resolve_deadline ASC").
		Find(&wagers).Error
	if err != nil {
		return nil, err
	}
	return wagers, nil
}

// GetWagersWithBettingDeadlineUntil retrieves OPEN wagers whose betting
// deadline falls between now and the horizon and which may still need a reminder
func (r *Repository) GetWagersWithBettingDeadlineUntil(
	ctx context.Context,
	now, horizon time.Time,
) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("status = ? AND betting_deadline > ? AND betting_deadline <= ?",
			models.WagerStatusOpen, now, horizon).
		Where("betting_reminder_24h_sent_at IS NULL OR betting_reminder_1h_sent_at IS NULL").
		Find(&wagers).Error
	if err != nil {
		return nil, err
	}
	return wagers, nil
}

// GetWagersWithResolveDeadlineUntil retrieves non-terminal wagers whose
// resolve deadline falls between now and the horizon and which may still need
// a reminder
func (r *Repository) GetWagersWithResolveDeadlineUntil(
	ctx context.Context,
	now, horizon time.Time,
) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("status IN ? AND resolve_deadline > ? AND resolve_deadline <= ?",
			[]models.WagerStatus{models.WagerStatusOpen, models.WagerStatusClosed}, now, horizon).
		Where("resolve_reminder_24h_sent_at IS NULL OR resolve_reminder_1h_sent_at IS NULL").
		Find(&wagers).Error
	if err != nil {
		return nil, err
	}
	return wagers, nil
}

// CreateParticipation creates a new stake on a wager
func (r *Repository) CreateParticipation(ctx context.Context, p *models.Participation) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetParticipations retrieves all stakes on a wager
func (r *Repository) GetParticipations(ctx context.Context, wagerID uuid.UUID) ([]*models.Participation, error) {
	var parts []*models.Participation
	err := r.db.WithContext(ctx).
		Where("wager_id = ?", wagerID).
		Order("created_at ASC").
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// GetParticipationByID retrieves a single stake
func (r *Repository) GetParticipationByID(ctx context.Context, id uuid.UUID) (*models.Participation, error) {
	var p models.Participation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountParticipants counts stakes on a wager
func (r *Repository) CountParticipants(ctx context.Context, wagerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participation{}).
		Where("wager_id = ?", wagerID).
		Count(&count).Error
	return count, err
}

// UpdateParticipationStatus sets the terminal status of one stake
func (r *Repository) UpdateParticipationStatus(
	ctx context.Context,
	participationID uuid.UUID,
	status models.ParticipationStatus,
) error {
	return r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("id = ?", participationID).
		Update("status", status).Error
}

// CreateResolverAssignment creates a resolver assignment
func (r *Repository) CreateResolverAssignment(ctx context.Context, a *models.ResolverAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// GetActiveAssignments retrieves all active resolver assignments for a wager
func (r *Repository) GetActiveAssignments(ctx context.Context, wagerID uuid.UUID) ([]*models.ResolverAssignment, error) {
	var assignments []*models.ResolverAssignment
	err := r.db.WithContext(ctx).
		Where("wager_id = ? AND is_active = ?", wagerID, true).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// GetActiveAssignment retrieves one user's active assignment, or nil
func (r *Repository) GetActiveAssignment(
	ctx context.Context,
	wagerID uuid.UUID,
	userID uint,
) (*models.ResolverAssignment, error) {
	var a models.ResolverAssignment
	err := r.db.WithContext(ctx).
		Where("wager_id = ? AND resolver_id = ? AND is_active = ?", wagerID, userID, true).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeactivateAssignment soft-revokes an assignment, keeping history
func (r *Repository) DeactivateAssignment(
	ctx context.Context,
	wagerID uuid.UUID,
	resolverID uint,
	at time.Time,
) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ResolverAssignment{}).
		Where("wager_id = ? AND resolver_id = ? AND is_active = ?", wagerID, resolverID, true).
		Updates(map[string]interface{}{"is_active": false, "revoked_at": at})
	return result.RowsAffected, result.Error
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreditUser atomically adjusts a user's balance by delta (negative to debit)
func (r *Repository) CreditUser(ctx context.Context, userID uint, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

// DebitUser subtracts amount only while the balance covers it. Returns the
// number of rows changed so racing debits cannot overdraw the account.
func (r *Repository) DebitUser(ctx context.Context, userID uint, amount decimal.Decimal) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	return result.RowsAffected, result.Error
}
