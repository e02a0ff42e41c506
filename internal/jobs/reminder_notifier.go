package jobs

import (
	"context"
	"log"
	"time"

	"groupbet/internal/services"
)

// ReminderNotifier emits approaching-deadline reminders on a fixed delay.
// Two instances run in production: one for betting deadlines, one for
// resolution deadlines.
type ReminderNotifier struct {
	name     string
	sweep    func(ctx context.Context) (int, error)
	interval time.Duration
	stopChan chan struct{}
}

// NewBettingReminderNotifier creates the betting-deadline reminder job
func NewBettingReminderNotifier(wagerService *services.WagerService, interval time.Duration) *ReminderNotifier {
	return &ReminderNotifier{
		name:     "betting",
		sweep:    wagerService.SendBettingDeadlineReminders,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// NewResolutionReminderNotifier creates the resolution-deadline reminder job
func NewResolutionReminderNotifier(wagerService *services.WagerService, interval time.Duration) *ReminderNotifier {
	return &ReminderNotifier{
		name:     "resolution",
		sweep:    wagerService.SendResolutionDeadlineReminders,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the reminder loop
func (rn *ReminderNotifier) Start() {
	log.Printf("[ReminderNotifier] Starting %s-deadline reminder job (interval: %v)", rn.name, rn.interval)

	ticker := time.NewTicker(rn.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rn.sendReminders()
		case <-rn.stopChan:
			log.Printf("[ReminderNotifier] Stopping %s-deadline reminder job", rn.name)
			return
		}
	}
}

// Stop stops the reminder loop
func (rn *ReminderNotifier) Stop() {
	close(rn.stopChan)
}

func (rn *ReminderNotifier) sendReminders() {
	sent, err := rn.sweep(context.Background())
	if err != nil {
		log.Printf("[ReminderNotifier] Error sweeping %s reminders: %v", rn.name, err)
		return
	}
	if sent > 0 {
		log.Printf("[ReminderNotifier] Sent %d %s-deadline reminders", sent, rn.name)
	}
}
