package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"groupbet/internal/services"
)

// BetCloser closes wagers whose betting deadline has passed
type BetCloser struct {
	wagerService *services.WagerService
	interval     time.Duration
	stopChan     chan struct{}
}

// NewBetCloser creates a new close-expired-bets job
func NewBetCloser(wagerService *services.WagerService, interval time.Duration) *BetCloser {
	return &BetCloser{
		wagerService: wagerService,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the close loop
func (bc *BetCloser) Start() {
	log.Printf("[BetCloser] Starting close-expired-bets job (interval: %v)", bc.interval)

	ticker := time.NewTicker(bc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.closeExpiredBets()
		case <-bc.stopChan:
			log.Println("[BetCloser] Stopping close-expired-bets job")
			return
		}
	}
}

// Stop stops the close loop
func (bc *BetCloser) Stop() {
	close(bc.stopChan)
}

// closeExpiredBets finds and closes all wagers past their betting deadline
func (bc *BetCloser) closeExpiredBets() {
	ctx := context.Background()

	wagers, err := bc.wagerService.ExpiredOpenWagers(ctx)
	if err != nil {
		log.Printf("[BetCloser] Error fetching expired wagers: %v", err)
		return
	}

	if len(wagers) == 0 {
		return
	}

	log.Printf("[BetCloser] Closing %d expired wagers", len(wagers))

	closedCount := 0
	for _, wager := range wagers {
		if err := bc.wagerService.CloseExpired(ctx, wager.ID); err != nil {
			// A racing manual close is expected, anything else is logged
			if !errors.Is(err, services.ErrInvalidState) {
				log.Printf("[BetCloser] Error closing wager %s: %v", wager.ID, err)
			}
			continue
		}
		closedCount++
	}

	if closedCount > 0 {
		log.Printf("[BetCloser] Closed %d wagers", closedCount)
	}
}
