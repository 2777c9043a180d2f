package geofence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/geo"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/notify"
)

// PermissionState mirrors a client's location permission.
type PermissionState string

const (
	PermissionPrompt  PermissionState = "prompt"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// Position is one location fix reported by a client.
type Position struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy float64   `json:"accuracy,omitempty"`
	At       time.Time `json:"at"`
}

// Config holds the monitor's acquisition constraints. Both values are
// echoed to clients so their position watch uses the same limits.
type Config struct {
	// StalenessMax is the oldest fix the monitor will evaluate.
	StalenessMax time.Duration
	// AcquireTimeout is how long clients should wait for a fix.
	AcquireTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		StalenessMax:   30 * time.Second,
		AcquireTimeout: 30 * time.Second,
	}
}

// Monitor evaluates reported positions against the reporting user's own
// geofenced tasks and fires one arrival alert per fence entry. A fence
// re-arms only after that user's position moves beyond twice its radius,
// so lingering at the boundary cannot re-fire it. Fences, armed state,
// permission and last fix are all scoped per user; one user's device
// never triggers or disables another user's fences.
type Monitor struct {
	cfg     Config
	gateway notify.Gateway
	logger  *zap.Logger
	clock   func() time.Time

	mu         sync.Mutex
	watching   bool
	fences     map[uuid.UUID][]*models.Task
	notified   map[string]struct{}
	permission map[uuid.UUID]PermissionState
	last       map[uuid.UUID]*Position
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the monitor's time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) { m.clock = clock }
}

func NewMonitor(cfg Config, gateway notify.Gateway, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		cfg:        cfg,
		gateway:    gateway,
		logger:     logger,
		clock:      time.Now,
		fences:     make(map[uuid.UUID][]*models.Task),
		notified:   make(map[string]struct{}),
		permission: make(map[uuid.UUID]PermissionState),
		last:       make(map[uuid.UUID]*Position),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the monitor's acquisition constraints.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Start begins watching the given task set. Returns false if the set
// carries no live geofenced task. Starting an already-watching monitor
// just refreshes the fences.
func (m *Monitor) Start(tasks []*models.Task) bool {
	fenced := geofenced(tasks)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fenced) == 0 {
		return false
	}
	m.fences = fencesByOwner(fenced)
	if !m.watching {
		m.watching = true
		m.logger.Info("geofence_watch_started", zap.Int("fences", len(fenced)))
	}
	return true
}

// Stop halts watching and clears all armed state so every fence re-arms.
// Safe to call repeatedly and before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.watching {
		return
	}
	m.watching = false
	m.notified = make(map[string]struct{})
	m.last = make(map[uuid.UUID]*Position)
	m.logger.Info("geofence_watch_stopped")
}

// IsWatching reports whether positions are currently evaluated.
func (m *Monitor) IsWatching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watching
}

// Permission returns the last reported permission state for the user.
func (m *Monitor) Permission(userID uuid.UUID) PermissionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.permission[userID]; ok {
		return p
	}
	return PermissionPrompt
}

// LastPosition returns the user's most recent accepted fix, or nil.
func (m *Monitor) LastPosition(userID uuid.UUID) *Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.last[userID]
	if !ok {
		return nil
	}
	p := *pos
	return &p
}

// ErrNotWatching is returned for positions reported while the watch is
// stopped.
var ErrNotWatching = errors.New("geofence monitor not watching")

// ErrStalePosition is returned for fixes older than StalenessMax.
var ErrStalePosition = errors.New("position fix too old")

// OnPosition evaluates one reported fix against the reporting user's
// geofenced tasks only. A fresh fix also records the user's permission as
// granted, since a device cannot produce one without location access.
func (m *Monitor) OnPosition(ctx context.Context, userID uuid.UUID, pos Position) error {
	now := m.clock()
	if pos.At.IsZero() {
		pos.At = now
	}

	m.mu.Lock()
	if !m.watching {
		m.mu.Unlock()
		return ErrNotWatching
	}
	if m.cfg.StalenessMax > 0 && now.Sub(pos.At) > m.cfg.StalenessMax {
		m.mu.Unlock()
		return ErrStalePosition
	}
	m.permission[userID] = PermissionGranted
	m.last[userID] = &pos
	tasks := m.fences[userID]
	m.mu.Unlock()

	for _, task := range tasks {
		m.evaluate(ctx, task, pos)
	}
	return nil
}

func (m *Monitor) evaluate(ctx context.Context, task *models.Task, pos Position) {
	loc := task.Location
	distance := geo.Distance(pos.Lat, pos.Lng, loc.Lat, loc.Lng)
	key := fenceKey(task)

	if distance <= loc.RadiusMeters {
		m.mu.Lock()
		_, seen := m.notified[key]
		if !seen {
			m.notified[key] = struct{}{}
		}
		m.mu.Unlock()
		if seen {
			return
		}

		alert := arrivalAlert(task)
		if err := m.gateway.Notify(ctx, alert); err != nil && !errors.Is(err, notify.ErrNotEnabled) {
			m.logger.Error("arrival_dispatch_failed",
				zap.String("task_id", task.ID.String()),
				zap.Error(err))
		}
		m.logger.Info("geofence_entered",
			zap.String("task_id", task.ID.String()),
			zap.Float64("distance_m", distance))
		return
	}

	// Re-arm only after the user has clearly left the area.
	if distance > loc.RadiusMeters*2 {
		m.mu.Lock()
		delete(m.notified, key)
		m.mu.Unlock()
	}
}

// Reconcile updates the fence set from a fresh task snapshot and starts
// or stops the watch to match. A snapshot with geofenced tasks starts the
// watch; an empty one stops it.
func (m *Monitor) Reconcile(tasks []*models.Task) {
	fenced := geofenced(tasks)
	m.mu.Lock()
	watching := m.watching
	m.mu.Unlock()

	switch {
	case len(fenced) > 0 && !watching:
		m.Start(tasks)
	case len(fenced) == 0 && watching:
		m.Stop()
	default:
		m.mu.Lock()
		m.fences = fencesByOwner(fenced)
		m.mu.Unlock()
	}
}

// ReportPermissionDenied records that the user's client refused location
// access. The user's fences disarm and their fixes stop arriving, but the
// watch keeps running for everyone else.
func (m *Monitor) ReportPermissionDenied(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission[userID] = PermissionDenied
	delete(m.last, userID)
	for _, task := range m.fences[userID] {
		delete(m.notified, fenceKey(task))
	}
	m.logger.Info("geofence_permission_denied", zap.String("user_id", userID.String()))
}

// ResetPermission returns the user's permission state to prompt so their
// client can try again.
func (m *Monitor) ResetPermission(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.permission[userID] == PermissionDenied {
		m.permission[userID] = PermissionPrompt
	}
}

func geofenced(tasks []*models.Task) []*models.Task {
	var out []*models.Task
	for _, t := range tasks {
		if t.HasGeofence() {
			out = append(out, t)
		}
	}
	return out
}

func fencesByOwner(fenced []*models.Task) map[uuid.UUID][]*models.Task {
	byOwner := make(map[uuid.UUID][]*models.Task, len(fenced))
	for _, t := range fenced {
		byOwner[t.UserID] = append(byOwner[t.UserID], t)
	}
	return byOwner
}

func fenceKey(task *models.Task) string {
	return fmt.Sprintf("%s:%.6f:%.6f", task.ID, task.Location.Lat, task.Location.Lng)
}

func arrivalAlert(task *models.Task) notify.Alert {
	taskID := task.ID
	return notify.Alert{
		Kind:   notify.KindLocation,
		UserID: task.UserID,
		TaskID: &taskID,
		Title:  fmt.Sprintf("📍 %s", task.Title),
		Body:   fmt.Sprintf("You've arrived at %s", task.Location.Name),
		Tag:    fmt.Sprintf("location-%s", task.ID),
	}
}
