package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/queue"
)

// Alert kinds. The kind names the trigger that produced the alert and is
// carried through delivery for observability.
const (
	KindDue      = "due"
	KindPreAlert = "prealert"
	KindFollowUp = "followup"
	KindDigest   = "digest"
	KindLocation = "location"
	KindTest     = "test"
)

// ErrNotEnabled is returned when the target user has notifications turned
// off. Callers treat it as a no-op rather than a failure.
var ErrNotEnabled = errors.New("notifications not enabled for user")

// Alert is one notification to present to a user. Tag gives the alert a
// replace-by-tag identity: a later alert with the same tag supersedes the
// earlier one instead of stacking next to it.
type Alert struct {
	Kind    string
	UserID  uuid.UUID
	TaskID  *uuid.UUID
	Title   string
	Body    string
	Tag     string
	Actions []queue.ActionButton
}

// Gateway dispatches alerts to a user's notification channels.
type Gateway interface {
	Notify(ctx context.Context, alert Alert) error
}

// SettingsSource resolves per-user notification settings.
type SettingsSource interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
}

// Channel is one delivery path for an alert (push queue, in-app feed).
type Channel interface {
	Deliver(ctx context.Context, alert Alert) error
}

// AlertGateway fans one alert out to every configured channel. The push
// channel is tried with action buttons first and retried without them if
// the first attempt fails, keeping the tag so the degraded alert still
// replaces any earlier one. The in-app channel always receives the alert.
type AlertGateway struct {
	settings SettingsSource
	push     Channel
	inApp    Channel
	logger   *zap.Logger
}

var _ Gateway = (*AlertGateway)(nil)

// NewAlertGateway creates a gateway. push and inApp may each be nil, in
// which case that path is skipped.
func NewAlertGateway(settings SettingsSource, push, inApp Channel, logger *zap.Logger) *AlertGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertGateway{
		settings: settings,
		push:     push,
		inApp:    inApp,
		logger:   logger,
	}
}

// Notify delivers the alert to the user's channels. Returns ErrNotEnabled
// if the user has notifications turned off.
func (g *AlertGateway) Notify(ctx context.Context, alert Alert) error {
	enabled, err := g.enabled(ctx, alert.UserID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrNotEnabled
	}

	if g.push != nil {
		if err := g.push.Deliver(ctx, alert); err != nil && len(alert.Actions) > 0 {
			// Some delivery targets reject alerts carrying actions.
			// Retry the same alert stripped down to title and body.
			g.logger.Warn("actionable_alert_failed_falling_back",
				zap.String("kind", alert.Kind),
				zap.String("tag", alert.Tag),
				zap.Error(err))
			basic := alert
			basic.Actions = nil
			err = g.push.Deliver(ctx, basic)
			if err != nil {
				g.logger.Error("push_delivery_failed",
					zap.String("kind", alert.Kind),
					zap.String("tag", alert.Tag),
					zap.Error(err))
			}
		} else if err != nil {
			g.logger.Error("push_delivery_failed",
				zap.String("kind", alert.Kind),
				zap.String("tag", alert.Tag),
				zap.Error(err))
		}
	}

	if g.inApp != nil {
		if err := g.inApp.Deliver(ctx, alert); err != nil {
			g.logger.Warn("in_app_delivery_failed",
				zap.String("kind", alert.Kind),
				zap.Error(err))
		}
	}

	return nil
}

func (g *AlertGateway) enabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	if g.settings == nil {
		return true, nil
	}
	s, err := g.settings.GetSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}
	return s.NotificationsEnabled, nil
}
