package economy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
)

// Message keys sent by ToggleNotifications.
const (
	MessageNotificationsOn    = "notifications.on"
	MessageNotificationsOff   = "notifications.off"
	MessageNotificationsError = "notifications.error"
)

// ToggleNotifications flips a player's job notification flag and tells them
// the outcome. The account must already exist; an unknown player gets the
// error message and nothing is created. On a buffering backend the change is
// written through at once; if that write fails the flag is restored, so a
// failed toggle never changes the observable state. Failures are not retried.
func (s *Store) ToggleNotifications(ctx context.Context, id uuid.UUID) (bool, error) {
	exists, err := s.HasAccount(ctx, id)
	if err != nil {
		s.messenger.Notify(ctx, id, MessageNotificationsError)
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		s.messenger.Notify(ctx, id, MessageNotificationsError)
		return false, fmt.Errorf("%w: %s", common.ErrAccountNotFound, model.UniqueRef(id))
	}
	account := &Account{store: s, ref: model.UniqueRef(id)}

	current, err := account.JobNotifications(ctx)
	if err != nil {
		s.messenger.Notify(ctx, id, MessageNotificationsError)
		return false, fmt.Errorf("failed to read notification state: %w", err)
	}

	next := !current
	if err := s.backend.SetJobNotificationState(ctx, account.ID(), next); err != nil {
		s.messenger.Notify(ctx, id, MessageNotificationsError)
		return current, fmt.Errorf("failed to store notification state: %w", err)
	}

	if s.save != nil {
		if err := s.save.flushNow(ctx); err != nil {
			if rerr := s.backend.SetJobNotificationState(ctx, account.ID(), current); rerr != nil {
				slog.Error("Failed to restore notification state", "account", account.ID(), "error", rerr)
			}
			s.messenger.Notify(ctx, id, MessageNotificationsError)
			return current, fmt.Errorf("failed to save notification state: %w", err)
		}
	}

	if next {
		s.messenger.Notify(ctx, id, MessageNotificationsOn)
	} else {
		s.messenger.Notify(ctx, id, MessageNotificationsOff)
	}
	return next, nil
}
