package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/store"
)

const (
	reminderInterval  = time.Minute
	reminderRetention = 30 * 24 * time.Hour
)

// Reminder nudges users whose day is not yet a success day. Each user gets
// at most one reminder per calendar day, sent on the first check at or after
// the configured hour.
type Reminder struct {
	sender    Sender
	push      *store.PushStore
	analytics *analytics.Service
	hour      int
	logger    *slog.Logger
}

func NewReminder(sender Sender, ps *store.PushStore, svc *analytics.Service, hour int, logger *slog.Logger) *Reminder {
	return &Reminder{
		sender:    sender,
		push:      ps,
		analytics: svc,
		hour:      hour,
		logger:    logger,
	}
}

// Run checks every minute until ctx is cancelled.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(reminderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Check(); err != nil {
				r.logger.Error("reminder check", "error", err)
			}
		}
	}
}

// Check sends any reminders due now and returns how many users were
// notified.
func (r *Reminder) Check() (int, error) {
	if r.analytics.Now().Hour() < r.hour {
		return 0, nil
	}
	today := r.analytics.Today()

	userIDs, err := r.push.ListUserIDs()
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, userID := range userIDs {
		sent, err := r.remind(userID, today)
		if err != nil {
			r.logger.Error("send reminder", "user_id", userID, "error", err)
			continue
		}
		if sent {
			notified++
		}
	}

	if _, err := r.push.CleanupReminders(today.Add(-reminderRetention)); err != nil {
		r.logger.Warn("cleanup reminders", "error", err)
	}
	return notified, nil
}

func (r *Reminder) remind(userID int64, today time.Time) (bool, error) {
	ds, err := r.analytics.Day(userID, today)
	if err != nil {
		return false, err
	}
	if ds.Success {
		return false, nil
	}

	// The record is claimed before sending so overlapping checks cannot
	// both notify; it is released again if nothing was delivered.
	first, err := r.push.RecordReminder(userID, today)
	if err != nil || !first {
		return false, err
	}

	delivered, err := r.send(userID, ds)
	if err != nil || delivered == 0 {
		if relErr := r.push.ReleaseReminder(userID, today); relErr != nil {
			r.logger.Warn("release reminder", "user_id", userID, "error", relErr)
		}
		return false, err
	}
	return true, nil
}

// send pushes the reminder to every subscription of userID and returns how
// many were accepted by the push service.
func (r *Reminder) send(userID int64, ds analytics.DaySuccess) (int, error) {
	subs, err := r.push.ListByUser(userID)
	if err != nil {
		return 0, err
	}

	payload := Payload{
		Title: "Keep your streak going",
		Body:  fmt.Sprintf("%d of %d habits done today", ds.Count, ds.Threshold),
		URL:   "/",
		Tag:   "daily-reminder",
	}
	delivered := 0
	for _, sub := range subs {
		err := r.sender.Send(&sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			if err := r.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				r.logger.Warn("delete expired subscription", "user_id", userID, "subscription_id", sub.ID, "error", err)
			}
		default:
			r.logger.Warn("push send", "user_id", userID, "subscription_id", sub.ID, "error", err)
		}
	}
	return delivered, nil
}
