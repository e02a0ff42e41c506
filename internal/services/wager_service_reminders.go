package services

import (
	"context"
	"log"
	"time"

	"groupbet/internal/events"
	"groupbet/internal/models"
)

// Reminder windows. Ranges are tolerant because the sweep cadence cannot hit
// an exact instant.
const (
	window24hLow  = 23*time.Hour + 45*time.Minute
	window24hHigh = 24*time.Hour + 15*time.Minute
	window1hLow   = 45 * time.Minute
	window1hHigh  = time.Hour + 15*time.Minute

	// Under this, the 24h reminder is suppressed to avoid back-to-back pings
	suppress24hUnder = 2 * time.Hour

	reminderHorizon = 25 * time.Hour
)

// SendBettingDeadlineReminders sweeps OPEN wagers approaching their betting
// deadline and emits 24h/1h reminders at most once each
func (s *WagerService) SendBettingDeadlineReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	wagers, err := s.repo.GetWagersWithBettingDeadlineUntil(ctx, now, now.Add(reminderHorizon))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, w := range wagers {
		sent += s.remindOne(ctx, w, w.BettingDeadline,
			w.BettingReminder24hSentAt, w.BettingReminder1hSentAt,
			"betting_reminder_24h_sent_at", "betting_reminder_1h_sent_at",
			func(hours int) events.Event {
				return events.BettingDeadlineApproaching{
					WagerID:        w.ID,
					GroupID:        w.GroupID,
					Deadline:       w.BettingDeadline,
					HoursRemaining: hours,
				}
			})
	}
	return sent, nil
}

// SendResolutionDeadlineReminders sweeps non-terminal wagers approaching
// their resolve deadline and emits 24h/1h reminders at most once each
func (s *WagerService) SendResolutionDeadlineReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	wagers, err := s.repo.GetWagersWithResolveDeadlineUntil(ctx, now, now.Add(reminderHorizon))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, w := range wagers {
		assignments, err := s.repo.GetActiveAssignments(ctx, w.ID)
		if err != nil {
			log.Printf("[Reminders] Failed to load resolvers for %s: %v", w.ID, err)
			continue
		}
		resolverIDs := make([]uint, 0, len(assignments))
		for _, a := range assignments {
			resolverIDs = append(resolverIDs, a.ResolverID)
		}

		sent += s.remindOne(ctx, w, w.ResolveDeadline,
			w.ResolveReminder24hSentAt, w.ResolveReminder1hSentAt,
			"resolve_reminder_24h_sent_at", "resolve_reminder_1h_sent_at",
			func(hours int) events.Event {
				return events.ResolutionDeadlineApproaching{
					WagerID:             w.ID,
					GroupID:             w.GroupID,
					ResolveDeadline:     w.ResolveDeadline,
					Method:              w.ResolutionMethod,
					CreatorID:           w.CreatorID,
					AssignedResolverIDs: resolverIDs,
					HoursRemaining:      hours,
				}
			})
	}
	return sent, nil
}

// remindOne evaluates both reminder windows for one wager. The stamp is
// written with a guarded update before the event goes out, so overlapping
// sweeps send each reminder at most once. Returns the number of reminders sent.
func (s *WagerService) remindOne(
	ctx context.Context,
	w *models.Wager,
	deadline time.Time,
	sent24, sent1 *time.Time,
	col24, col1 string,
	build func(hours int) events.Event,
) int {
	now := s.clock.Now()
	until := deadline.Sub(now)
	if until <= 0 {
		return 0
	}

	sent := 0

	// Fallback: deadline inside the next hour but no reminder ever recorded
	// (wager created too close to its deadline to hit either window)
	if sent24 == nil && sent1 == nil && until <= time.Hour {
		if s.stamp(ctx, w, col1, now) {
			s.publisher.Publish(ctx, build(1))
			sent++
		}
		return sent
	}

	if sent24 == nil {
		if until < suppress24hUnder {
			// Too close to the deadline for a useful 24h ping; mark it sent
			// so the sweep never retries it
			s.stamp(ctx, w, col24, now)
		} else if until >= window24hLow && until <= window24hHigh {
			if s.stamp(ctx, w, col24, now) {
				s.publisher.Publish(ctx, build(24))
				sent++
			}
		}
	}

	if sent1 == nil && until >= window1hLow && until <= window1hHigh {
		if s.stamp(ctx, w, col1, now) {
			s.publisher.Publish(ctx, build(1))
			sent++
		}
	}

	return sent
}

func (s *WagerService) stamp(ctx context.Context, w *models.Wager, column string, at time.Time) bool {
	rows, err := s.repo.StampReminderSent(ctx, w.ID, column, at)
	if err != nil {
		log.Printf("[Reminders] Failed to stamp %s on wager %s: %v", column, w.ID, err)
		return false
	}
	return rows > 0
}
