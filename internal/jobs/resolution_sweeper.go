package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"groupbet/internal/models"
	"groupbet/internal/services"
)

// ResolutionSweeper forces resolution of wagers past their resolve deadline.
// Wagers that need a human decision get an awaiting-manual event instead.
type ResolutionSweeper struct {
	wagerService *services.WagerService
	interval     time.Duration
	stopChan     chan struct{}
}

// NewResolutionSweeper creates a new process-resolvable-bets job
func NewResolutionSweeper(wagerService *services.WagerService, interval time.Duration) *ResolutionSweeper {
	return &ResolutionSweeper{
		wagerService: wagerService,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the resolution sweep loop
func (rs *ResolutionSweeper) Start() {
	log.Printf("[ResolutionSweeper] Starting process-resolvable-bets job (interval: %v)", rs.interval)

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rs.processResolvableBets()
		case <-rs.stopChan:
			log.Println("[ResolutionSweeper] Stopping process-resolvable-bets job")
			return
		}
	}
}

// Stop stops the resolution sweep loop
func (rs *ResolutionSweeper) Stop() {
	close(rs.stopChan)
}

// processResolvableBets dispatches every wager past its resolve deadline
func (rs *ResolutionSweeper) processResolvableBets() {
	ctx := context.Background()

	wagers, err := rs.wagerService.ResolvableWagers(ctx)
	if err != nil {
		log.Printf("[ResolutionSweeper] Error fetching resolvable wagers: %v", err)
		return
	}

	if len(wagers) == 0 {
		return
	}

	log.Printf("[ResolutionSweeper] Processing %d resolvable wagers", len(wagers))

	resolvedCount := 0
	for _, wager := range wagers {
		switch {
		case wager.Type == models.WagerTypePrediction,
			wager.ResolutionMethod == models.ResolutionMethodParticipantVote:
			// Forced resolution on whatever votes exist
			if _, err := rs.wagerService.ForceResolve(ctx, wager.ID); err != nil {
				if !errors.Is(err, services.ErrInvalidState) {
					log.Printf("[ResolutionSweeper] Error resolving wager %s: %v", wager.ID, err)
				}
				continue
			}
			resolvedCount++
		default:
			// SELF and ASSIGNED_RESOLVERS need a human to pick the outcome
			rs.wagerService.NotifyAwaitingManual(ctx, wager)
		}
	}

	if resolvedCount > 0 {
		log.Printf("[ResolutionSweeper] Force-resolved %d wagers", resolvedCount)
	}
}
