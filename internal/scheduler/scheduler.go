package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/notify"
	"github.com/taskping/taskping/internal/queue"
	"github.com/taskping/taskping/internal/timeist"
)

// Trigger windows around a reminder instant. An instant fires while
// now is between instant-dueWindowFuture and instant+dueWindowPast,
// weighted toward "just became due" so a missed poll cycle is caught up.
const (
	dueWindowPast   = 120 * time.Second
	dueWindowFuture = 60 * time.Second

	preAlertWindowPast   = 60 * time.Second
	preAlertWindowFuture = 60 * time.Second
)

// TaskSource supplies the scheduler's task snapshot each poll. The
// snapshot must contain every non-completed task; the scheduler never
// mutates it.
type TaskSource interface {
	LiveTasks(ctx context.Context) ([]*models.Task, error)
}

// SettingsSource resolves per-user scheduling preferences: digest hour,
// follow-up knobs and the daily summary switch. Without one the
// scheduler falls back to its Config values for every user.
type SettingsSource interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
}

// SourceFunc adapts a function to TaskSource.
type SourceFunc func(ctx context.Context) ([]*models.Task, error)

func (f SourceFunc) LiveTasks(ctx context.Context) ([]*models.Task, error) { return f(ctx) }

// Config holds the scheduler's timing knobs.
type Config struct {
	// PollInterval is the scan cadence.
	PollInterval time.Duration
	// DedupRetention is how long fired keys are kept before sweeping.
	DedupRetention time.Duration
	// GCInterval is the sweep cadence for fired keys.
	GCInterval time.Duration
	// PreAlertLead is how far ahead of a meeting or call the pre-alert
	// fires.
	PreAlertLead time.Duration
	// FollowUpDelay is how long after a missed reminder the follow-up
	// nudge fires; FollowUpWindow is the width of its trigger window.
	FollowUpDelay  time.Duration
	FollowUpWindow time.Duration
	// DigestHour is the civil hour (IST) of the end-of-day digest.
	DigestHour int
}

// DefaultConfig returns the production timing knobs.
func DefaultConfig() Config {
	return Config{
		PollInterval:   15 * time.Second,
		DedupRetention: time.Hour,
		GCInterval:     time.Hour,
		PreAlertLead:   15 * time.Minute,
		FollowUpDelay:  time.Duration(models.DefaultFollowUpDelayMinutes) * time.Minute,
		FollowUpWindow: time.Duration(models.DefaultFollowUpWindowMinutes) * time.Minute,
		DigestHour:     models.DefaultDigestHour,
	}
}

// Scheduler scans the task snapshot on a fixed interval and fires due,
// pre-alert, follow-up and end-of-day digest alerts through the gateway,
// each at most once per (task, kind, instant).
type Scheduler struct {
	cfg      Config
	source   TaskSource
	settings SettingsSource
	gateway  notify.Gateway
	logger   *zap.Logger
	keys     *FiredKeys
	clock    func() time.Time

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	digestFired map[uuid.UUID]string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the scheduler's time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithSettings attaches a per-user settings source. Users keep the
// Config defaults for anything their settings row does not override.
func WithSettings(settings SettingsSource) Option {
	return func(s *Scheduler) { s.settings = settings }
}

func New(cfg Config, source TaskSource, gateway notify.Gateway, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cfg:         cfg,
		source:      source,
		gateway:     gateway,
		logger:      logger,
		keys:        NewFiredKeys(),
		clock:       time.Now,
		digestFired: make(map[uuid.UUID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins polling. The first scan runs immediately, then every
// PollInterval. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.pollLoop(ctx)
	go s.gcLoop(ctx)
	s.logger.Info("scheduler_started",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Int("digest_hour", s.cfg.DigestHour))
}

// Stop halts polling and waits for an in-flight scan to finish. Safe to
// call repeatedly and before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler_stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

func (s *Scheduler) gcLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock()
			if n := s.keys.Sweep(now.Add(-s.cfg.DedupRetention)); n > 0 {
				s.logger.Debug("fired_keys_swept", zap.Int("count", n))
			}
			today := timeist.CivilDate(now)
			s.mu.Lock()
			for id, date := range s.digestFired {
				if date != today {
					delete(s.digestFired, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// userPrefs are the per-user knobs resolved from UserSettings, with the
// Config values as fallback.
type userPrefs struct {
	digestHour     int
	digestEnabled  bool
	followUpDelay  time.Duration
	followUpWindow time.Duration
}

// prefsCache memoizes settings lookups within one poll so a user with
// many tasks costs one query.
type prefsCache map[uuid.UUID]userPrefs

func (s *Scheduler) resolvePrefs(ctx context.Context, cache prefsCache, userID uuid.UUID) userPrefs {
	if p, ok := cache[userID]; ok {
		return p
	}
	p := userPrefs{
		digestHour:     s.cfg.DigestHour,
		digestEnabled:  true,
		followUpDelay:  s.cfg.FollowUpDelay,
		followUpWindow: s.cfg.FollowUpWindow,
	}
	if s.settings != nil {
		settings, err := s.settings.GetSettings(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("settings_lookup_failed_using_defaults",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		case settings != nil:
			p.digestEnabled = settings.DailySummaryEnabled
			if settings.DigestHour >= 0 && settings.DigestHour <= 23 {
				p.digestHour = settings.DigestHour
			}
			if settings.FollowUpDelayMinutes > 0 {
				p.followUpDelay = time.Duration(settings.FollowUpDelayMinutes) * time.Minute
			}
			if settings.FollowUpWindowMinutes > 0 {
				p.followUpWindow = time.Duration(settings.FollowUpWindowMinutes) * time.Minute
			}
		}
	}
	cache[userID] = p
	return p
}

// PollOnce runs a single scan: due reminders, pre-alerts, follow-ups and
// the end-of-day digest. A failure evaluating one task never prevents
// reminders on other tasks from firing.
func (s *Scheduler) PollOnce(ctx context.Context) {
	now := s.clock()
	tasks, err := s.source.LiveTasks(ctx)
	if err != nil {
		s.logger.Error("task_snapshot_failed", zap.Error(err))
		return
	}

	prefs := make(prefsCache)
	for _, task := range tasks {
		s.evaluateTask(ctx, task, now, prefs)
	}
	s.checkDigest(ctx, tasks, now, prefs)
}

func (s *Scheduler) evaluateTask(ctx context.Context, task *models.Task, now time.Time, prefs prefsCache) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task_evaluation_panic",
				zap.String("task_id", task.ID.String()),
				zap.Any("panic", r))
		}
	}()

	instants := s.resolveInstants(task, now)

	if task.IsLive() {
		for _, instant := range instants {
			delta := instant.Sub(now)
			if delta >= -dueWindowPast && delta <= dueWindowFuture {
				s.fire(ctx, firedKey(task.ID, notify.KindDue, instant), now, dueAlert(task))
			}
		}

		if task.TaskType.NeedsPreAlert() {
			for _, instant := range instants {
				delta := instant.Add(-s.cfg.PreAlertLead).Sub(now)
				if delta >= -preAlertWindowPast && delta <= preAlertWindowFuture {
					s.fire(ctx, firedKey(task.ID, notify.KindPreAlert, instant), now, preAlert(task, s.cfg.PreAlertLead))
				}
			}
		}
	}

	// Follow-up applies to any non-completed task with a missed reminder,
	// using the owner's configured delay and window.
	if task.Status != models.TaskStatusCompleted {
		p := s.resolvePrefs(ctx, prefs, task.UserID)
		for _, instant := range instants {
			elapsed := now.Sub(instant)
			if elapsed >= p.followUpDelay && elapsed < p.followUpDelay+p.followUpWindow {
				s.fire(ctx, firedKey(task.ID, notify.KindFollowUp, instant), now, followUpAlert(task))
			}
		}
	}
}

// checkDigest fires one end-of-day digest per user per civil day, at
// each user's configured IST hour, covering non-completed tasks anchored
// to today. Users who turned the daily summary off are skipped.
func (s *Scheduler) checkDigest(ctx context.Context, tasks []*models.Task, now time.Time, prefs prefsCache) {
	istHour := timeist.ToIST(now).Hour()
	today := timeist.CivilDate(now)

	pending := make(map[uuid.UUID][]*models.Task)
	for _, task := range tasks {
		if task.Status == models.TaskStatusCompleted {
			continue
		}
		anchored := (task.StartDate != nil && *task.StartDate == today) ||
			(task.EndDate != nil && *task.EndDate == today)
		if anchored {
			pending[task.UserID] = append(pending[task.UserID], task)
		}
	}

	for userID, userTasks := range pending {
		p := s.resolvePrefs(ctx, prefs, userID)
		if !p.digestEnabled || istHour != p.digestHour {
			continue
		}

		s.mu.Lock()
		fired := s.digestFired[userID] == today
		if !fired {
			s.digestFired[userID] = today
		}
		s.mu.Unlock()
		if fired {
			continue
		}

		err := s.gateway.Notify(ctx, digestAlert(userID, userTasks))
		switch {
		case errors.Is(err, notify.ErrNotEnabled):
			// Release the date so enabling notifications later the same
			// day still yields a digest.
			s.mu.Lock()
			delete(s.digestFired, userID)
			s.mu.Unlock()
		case err != nil:
			s.logger.Error("digest_dispatch_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
}

// fire marks the dedup key and dispatches the alert. The key is inserted
// before dispatch so an overlapping poll cannot fire the same alert, and
// released again if the user has notifications disabled so enabling them
// later does not silently lose in-window reminders.
func (s *Scheduler) fire(ctx context.Context, key string, now time.Time, alert notify.Alert) {
	if !s.keys.MarkOnce(key, now) {
		return
	}
	err := s.gateway.Notify(ctx, alert)
	switch {
	case errors.Is(err, notify.ErrNotEnabled):
		s.keys.Unmark(key)
	case err != nil:
		s.logger.Error("alert_dispatch_failed",
			zap.String("key", key),
			zap.String("kind", alert.Kind),
			zap.Error(err))
	default:
		s.logger.Info("alert_fired",
			zap.String("kind", alert.Kind),
			zap.String("key", key))
	}
}

// resolveInstants turns the task's reminder entries into absolute
// instants. RFC 3339 entries are taken as-is; legacy clock strings are
// anchored on the task's start date, falling back to the end date, then
// to today. Unparseable entries are skipped.
func (s *Scheduler) resolveInstants(task *models.Task, now time.Time) []time.Time {
	if len(task.ReminderTimes) == 0 {
		return nil
	}
	anchor := ""
	if task.StartDate != nil {
		anchor = *task.StartDate
	} else if task.EndDate != nil {
		anchor = *task.EndDate
	}

	instants := make([]time.Time, 0, len(task.ReminderTimes))
	for _, entry := range task.ReminderTimes {
		if t, err := time.Parse(time.RFC3339, entry); err == nil {
			instants = append(instants, t)
			continue
		}
		t, err := timeist.ParseClockTime(entry, anchor, now)
		if err != nil {
			s.logger.Debug("unparseable_reminder_skipped",
				zap.String("task_id", task.ID.String()),
				zap.String("entry", entry))
			continue
		}
		instants = append(instants, t)
	}
	return instants
}

func firedKey(taskID uuid.UUID, kind string, instant time.Time) string {
	return fmt.Sprintf("%s:%s:%d", taskID, kind, instant.Unix())
}

func taskActions() []queue.ActionButton {
	return []queue.ActionButton{
		{ID: "snooze30", Label: "⏰ 30 min"},
		{ID: "snooze120", Label: "⏰ 2 hours"},
		{ID: "complete", Label: "✅ Done"},
	}
}

func dueAlert(task *models.Task) notify.Alert {
	body := "Task reminder"
	if task.EndDate != nil {
		body = "Due: " + *task.EndDate
	}
	taskID := task.ID
	return notify.Alert{
		Kind:    notify.KindDue,
		UserID:  task.UserID,
		TaskID:  &taskID,
		Title:   fmt.Sprintf("%s %s", task.Priority.Glyph(), task.Title),
		Body:    body,
		Tag:     task.ID.String(),
		Actions: taskActions(),
	}
}

func preAlert(task *models.Task, lead time.Duration) notify.Alert {
	taskID := task.ID
	return notify.Alert{
		Kind:    notify.KindPreAlert,
		UserID:  task.UserID,
		TaskID:  &taskID,
		Title:   fmt.Sprintf("⏰ %s in %d minutes", task.Title, int(lead.Minutes())),
		Body:    "Get ready for your upcoming meeting/call",
		Tag:     task.ID.String(),
		Actions: taskActions(),
	}
}

func followUpAlert(task *models.Task) notify.Alert {
	taskID := task.ID
	return notify.Alert{
		Kind:    notify.KindFollowUp,
		UserID:  task.UserID,
		TaskID:  &taskID,
		Title:   fmt.Sprintf("⏰ Follow-up: %s", task.Title),
		Body:    "This task is still pending. Need to complete it?",
		Tag:     task.ID.String(),
		Actions: taskActions(),
	}
}

func digestAlert(userID uuid.UUID, tasks []*models.Task) notify.Alert {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	plural := ""
	if len(tasks) > 1 {
		plural = "s"
	}
	return notify.Alert{
		Kind:   notify.KindDigest,
		UserID: userID,
		Title:  "📋 End of Day Review",
		Body:   fmt.Sprintf("You have %d task%s pending today: %s", len(tasks), plural, strings.Join(titles, ", ")),
		Tag:    "eod-review",
	}
}
