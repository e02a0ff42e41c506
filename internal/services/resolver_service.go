package services

import (
	"context"
	"fmt"
	"log"

	"groupbet/internal/models"

	"github.com/google/uuid"
)

// AssignResolver grants a user resolution rights on an ASSIGNED_RESOLVERS
// wager. Creator only; a duplicate active assignment is rejected.
func (s *WagerService) AssignResolver(
	ctx context.Context,
	wagerID uuid.UUID,
	assignerID uint,
	req *models.AssignResolverRequest,
) (*models.ResolverAssignment, error) {
	wager, err := s.getWager(ctx, s.repo, wagerID)
	if err != nil {
		return nil, err
	}
	if wager.IsTerminal() {
		return nil, fmt.Errorf("wager is already %s: %w", wager.Status, ErrInvalidState)
	}
	if wager.ResolutionMethod != models.ResolutionMethodAssignedResolvers {
		return nil, fmt.Errorf("resolvers are only assigned on ASSIGNED_RESOLVERS wagers: %w", ErrInvalidState)
	}
	if assignerID != wager.CreatorID {
		return nil, fmt.Errorf("only the creator can assign resolvers: %w", ErrUnauthorized)
	}

	existing, err := s.repo.GetActiveAssignment(ctx, wagerID, req.ResolverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user %d is already an active resolver: %w", req.ResolverID, ErrInvalidState)
	}

	assignment := &models.ResolverAssignment{
		ID:                      uuid.New(),
		WagerID:                 wagerID,
		ResolverID:              req.ResolverID,
		AssignedBy:              assignerID,
		Reason:                  req.Reason,
		CanResolveIndependently: req.CanResolveIndependently,
		IsActive:                true,
	}
	if err := s.repo.CreateResolverAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	log.Printf("[Resolvers] Wager %s: user %d assigned by %d (independent=%v)",
		wagerID, req.ResolverID, assignerID, req.CanResolveIndependently)
	return assignment, nil
}

// RevokeResolver soft-deactivates a resolver assignment, keeping history.
// Creator only.
func (s *WagerService) RevokeResolver(
	ctx context.Context,
	wagerID uuid.UUID,
	revokerID uint,
	resolverID uint,
) error {
	wager, err := s.getWager(ctx, s.repo, wagerID)
	if err != nil {
		return err
	}
	if revokerID != wager.CreatorID {
		return fmt.Errorf("only the creator can revoke resolvers: %w", ErrUnauthorized)
	}

	rows, err := s.repo.DeactivateAssignment(ctx, wagerID, resolverID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke assignment: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d holds no active assignment: %w", resolverID, ErrNotFound)
	}

	log.Printf("[Resolvers] Wager %s: user %d revoked by %d", wagerID, resolverID, revokerID)
	return nil
}
