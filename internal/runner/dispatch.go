package runner

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mergeq/internal/config"
	"mergeq/internal/logging"
	"mergeq/internal/notifications"
	"mergeq/internal/pullrequest"
)

// notificationSettings returns the section that governs action. NoOp has
// none.
func notificationSettings(n config.Notifier, action Action) *config.Notification {
	switch action {
	case Merge:
		return n.Merge
	case Update:
		return n.Update
	case Drop:
		return n.Pop
	default:
		return nil
	}
}

// buildNotification renders the message for action, or reports false when
// the action's notification is absent or disabled.
func buildNotification(n config.Notifier, action Action, item pullrequest.PullRequest) (notifications.Notification, bool) {
	settings := notificationSettings(n, action)
	if settings == nil || !settings.Enabled {
		return notifications.Notification{}, false
	}

	title := strings.TrimSpace(settings.Title)
	if title == "" {
		title = cases.Title(language.English).String("mergeq: " + strings.ToLower(action.String()))
	}
	body := strings.TrimSpace(settings.Message)
	if body == "" {
		body = "Notification for " + action.String()
	}
	if item.URL != "" {
		body += "\n" + item.URL
	}

	return notifications.Notification{
		Title:   title,
		Body:    body,
		Icon:    strings.TrimSpace(settings.Icon),
		Timeout: notifications.DefaultTimeout,
	}, true
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, action Action, item pullrequest.PullRequest) {
	note, ok := buildNotification(r.cfg.Notifier, action, item)
	if !ok {
		return
	}
	if err := r.notifier.Notify(ctx, note); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("agent shutting down, notification skipped")
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String(logging.FieldAction, action.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that notify-send or osascript works in this session"),
			logging.String(logging.FieldImpact, "the queue decision was applied without a desktop notification"),
		)
	}
}
