package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/queue"
)

type stubSettings struct {
	enabled bool
	err     error
}

func (s *stubSettings) GetSettings(_ context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	settings := models.DefaultSettings(userID)
	settings.NotificationsEnabled = s.enabled
	return settings, nil
}

type recordingChannel struct {
	delivered []Alert
	failOn    func(Alert) error
}

func (c *recordingChannel) Deliver(_ context.Context, alert Alert) error {
	if c.failOn != nil {
		if err := c.failOn(alert); err != nil {
			return err
		}
	}
	c.delivered = append(c.delivered, alert)
	return nil
}

func testAlert(userID uuid.UUID) Alert {
	taskID := uuid.New()
	return Alert{
		Kind:   KindDue,
		UserID: userID,
		TaskID: &taskID,
		Title:  "🔴 Pay rent",
		Body:   "Due: 2025-01-31",
		Tag:    taskID.String(),
		Actions: []queue.ActionButton{
			{ID: "complete", Label: "Complete"},
			{ID: "snooze30", Label: "Snooze 30m"},
		},
	}
}

func TestAlertGateway_NotifyDisabled(t *testing.T) {
	t.Parallel()

	push := &recordingChannel{}
	gw := NewAlertGateway(&stubSettings{enabled: false}, push, nil, nil)

	err := gw.Notify(context.Background(), testAlert(uuid.New()))
	if !errors.Is(err, ErrNotEnabled) {
		t.Fatalf("expected ErrNotEnabled, got %v", err)
	}
	if len(push.delivered) != 0 {
		t.Errorf("expected no deliveries, got %d", len(push.delivered))
	}
}

func TestAlertGateway_NotifyFansOut(t *testing.T) {
	t.Parallel()

	push := &recordingChannel{}
	inApp := &recordingChannel{}
	gw := NewAlertGateway(&stubSettings{enabled: true}, push, inApp, nil)

	alert := testAlert(uuid.New())
	if err := gw.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(push.delivered) != 1 {
		t.Fatalf("push deliveries = %d, want 1", len(push.delivered))
	}
	if len(inApp.delivered) != 1 {
		t.Fatalf("in-app deliveries = %d, want 1", len(inApp.delivered))
	}
	if len(push.delivered[0].Actions) != 2 {
		t.Errorf("push alert lost its actions")
	}
}

func TestAlertGateway_ActionableFallback(t *testing.T) {
	t.Parallel()

	// Reject alerts that carry actions, accept plain ones.
	push := &recordingChannel{
		failOn: func(a Alert) error {
			if len(a.Actions) > 0 {
				return errors.New("actions not supported")
			}
			return nil
		},
	}
	gw := NewAlertGateway(&stubSettings{enabled: true}, push, nil, nil)

	alert := testAlert(uuid.New())
	if err := gw.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(push.delivered) != 1 {
		t.Fatalf("push deliveries = %d, want 1 on fallback", len(push.delivered))
	}
	got := push.delivered[0]
	if len(got.Actions) != 0 {
		t.Errorf("fallback alert still carries actions")
	}
	if got.Tag != alert.Tag {
		t.Errorf("fallback changed tag: got %q want %q", got.Tag, alert.Tag)
	}
	if got.Title != alert.Title || got.Body != alert.Body {
		t.Errorf("fallback changed content")
	}
}

func TestAlertGateway_SettingsError(t *testing.T) {
	t.Parallel()

	push := &recordingChannel{}
	gw := NewAlertGateway(&stubSettings{err: errors.New("db down")}, push, nil, nil)

	if err := gw.Notify(context.Background(), testAlert(uuid.New())); err == nil {
		t.Fatal("expected error when settings lookup fails")
	}
	if len(push.delivered) != 0 {
		t.Errorf("expected no deliveries, got %d", len(push.delivered))
	}
}

func TestToastChannel_SubscribeAndDrop(t *testing.T) {
	t.Parallel()

	toast := NewToastChannel()
	feed, cancel := toast.Subscribe()
	defer cancel()

	alert := testAlert(uuid.New())
	if err := toast.Deliver(context.Background(), alert); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	select {
	case got := <-feed:
		if got.Tag != alert.Tag {
			t.Errorf("got tag %q, want %q", got.Tag, alert.Tag)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert received on feed")
	}

	// A full buffer must not block delivery.
	for i := 0; i < 100; i++ {
		if err := toast.Deliver(context.Background(), alert); err != nil {
			t.Fatalf("Deliver %d: %v", i, err)
		}
	}

	cancel()
	cancel() // second cancel is a no-op
}

type stubQueue struct {
	jobs []*queue.Job
	err  error
}

func (q *stubQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (q *stubQueue) Close() error                      { return nil }
func (q *stubQueue) HealthCheck(context.Context) error { return nil }

func TestQueueChannel_DeliverSetsDeadline(t *testing.T) {
	t.Parallel()

	q := &stubQueue{}
	ch := NewQueueChannel(q, 5*time.Minute)

	alert := testAlert(uuid.New())
	if err := ch.Deliver(context.Background(), alert); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(q.jobs))
	}
	job := q.jobs[0]
	if job.Kind != KindDue || job.Title != alert.Title || job.Tag != alert.Tag {
		t.Errorf("job payload mismatch: %+v", job)
	}
	if job.NotAfter == nil {
		t.Fatal("expected NotAfter deadline")
	}
	if remaining := time.Until(*job.NotAfter); remaining > 5*time.Minute || remaining < 4*time.Minute {
		t.Errorf("deadline %v away, want about 5m", remaining)
	}
}

func TestQueueChannel_NoTTL(t *testing.T) {
	t.Parallel()

	q := &stubQueue{}
	ch := NewQueueChannel(q, 0)
	if err := ch.Deliver(context.Background(), testAlert(uuid.New())); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if q.jobs[0].NotAfter != nil {
		t.Error("expected no deadline when ttl is zero")
	}
}
