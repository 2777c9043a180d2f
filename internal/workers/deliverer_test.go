package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/queue"
	"github.com/taskping/taskping/internal/services/push"
)

type fakeMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}
func (m *fakeMessage) GetJob() *queue.Job { return m.job }

type fakeSender struct {
	sent     []*push.Message
	failWith map[string]error
}

func (s *fakeSender) Send(_ context.Context, msg *push.Message) error {
	if err, ok := s.failWith[msg.Token]; ok {
		return err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeSubRepo struct {
	subs    []*models.PushSubscription
	deleted []string
}

func (r *fakeSubRepo) Create(_ context.Context, sub *models.PushSubscription) error {
	r.subs = append(r.subs, sub)
	return nil
}

func (r *fakeSubRepo) GetByUserID(_ context.Context, userID uuid.UUID) ([]*models.PushSubscription, error) {
	var out []*models.PushSubscription
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) DeleteByToken(_ context.Context, token string) error {
	r.deleted = append(r.deleted, token)
	return nil
}

type fakeQueue struct {
	enqueued []*queue.Job
}

func (q *fakeQueue) Enqueue(_ context.Context, job *queue.Job) error {
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (q *fakeQueue) Close() error                      { return nil }
func (q *fakeQueue) HealthCheck(context.Context) error { return nil }

func subscription(userID uuid.UUID, token string) *models.PushSubscription {
	return &models.PushSubscription{ID: uuid.New(), UserID: userID, Token: token, Platform: "web"}
}

func deliveryJob(userID uuid.UUID) *queue.Job {
	taskID := uuid.New()
	return queue.NewNotificationJob(userID, &taskID, "due", "🔴 Pay rent", "Task reminder", taskID.String(), nil)
}

func TestProcessJob_DeliversToAllSubscriptions(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sender := &fakeSender{}
	subRepo := &fakeSubRepo{subs: []*models.PushSubscription{
		subscription(userID, "token-a"),
		subscription(userID, "token-b"),
	}}
	d := NewNotificationDeliverer(sender, subRepo, &fakeQueue{}, zap.NewNop())

	msg := &fakeMessage{job: deliveryJob(userID)}
	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Errorf("Expected 2 deliveries, got %d", len(sender.sent))
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}
	if sender.sent[0].Title != "🔴 Pay rent" {
		t.Errorf("Unexpected title: %s", sender.sent[0].Title)
	}
}

func TestProcessJob_PrunesGoneTokens(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sender := &fakeSender{failWith: map[string]error{
		"token-gone": fmt.Errorf("push endpoint: %w", push.ErrTokenGone),
	}}
	subRepo := &fakeSubRepo{subs: []*models.PushSubscription{
		subscription(userID, "token-gone"),
		subscription(userID, "token-live"),
	}}
	d := NewNotificationDeliverer(sender, subRepo, &fakeQueue{}, zap.NewNop())

	msg := &fakeMessage{job: deliveryJob(userID)}
	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}

	if len(subRepo.deleted) != 1 || subRepo.deleted[0] != "token-gone" {
		t.Errorf("Expected gone token pruned, got %v", subRepo.deleted)
	}
	if len(sender.sent) != 1 {
		t.Errorf("Expected 1 successful delivery, got %d", len(sender.sent))
	}
	if !msg.acked {
		t.Error("Expected message to be acked")
	}
}

func TestProcessJob_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sender := &fakeSender{failWith: map[string]error{
		"token-a": fmt.Errorf("push endpoint returned status 502"),
	}}
	subRepo := &fakeSubRepo{subs: []*models.PushSubscription{subscription(userID, "token-a")}}
	jobQueue := &fakeQueue{}
	d := NewNotificationDeliverer(sender, subRepo, jobQueue, zap.NewNop())

	msg := &fakeMessage{job: deliveryJob(userID)}
	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("Expected retry to be scheduled, got error: %v", err)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 re-enqueued job, got %d", len(jobQueue.enqueued))
	}
	retry := jobQueue.enqueued[0]
	if retry.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", retry.RetryCount)
	}
	if retry.NotBefore == nil || !retry.NotBefore.After(time.Now()) {
		t.Error("Expected NotBefore to push the retry into the future")
	}
	if !msg.acked {
		t.Error("Expected original message to be acked before re-enqueue")
	}
}

func TestProcessJob_DeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sender := &fakeSender{failWith: map[string]error{
		"token-a": fmt.Errorf("push endpoint returned status 502"),
	}}
	subRepo := &fakeSubRepo{subs: []*models.PushSubscription{subscription(userID, "token-a")}}
	d := NewNotificationDeliverer(sender, subRepo, &fakeQueue{}, zap.NewNop())

	job := deliveryJob(userID)
	job.RetryCount = job.MaxRetries
	msg := &fakeMessage{job: job}

	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("Expected permanent failure error")
	}
	if !msg.nacked || msg.requeue {
		t.Error("Expected message nacked without requeue")
	}
}

func TestProcessJob_DropsExpiredJob(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := NewNotificationDeliverer(sender, &fakeSubRepo{}, &fakeQueue{}, zap.NewNop())

	job := deliveryJob(uuid.New())
	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	msg := &fakeMessage{job: job}

	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("Expected no delivery for expired job")
	}
	if !msg.acked {
		t.Error("Expected expired job to be acked off the queue")
	}
}

func TestProcessJob_UnknownType(t *testing.T) {
	t.Parallel()

	d := NewNotificationDeliverer(&fakeSender{}, &fakeSubRepo{}, &fakeQueue{}, zap.NewNop())

	job := deliveryJob(uuid.New())
	job.Type = "tag_analysis"
	msg := &fakeMessage{job: job}

	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("Expected error for unknown job type")
	}
	if !msg.nacked || msg.requeue {
		t.Error("Expected unknown job nacked to the DLQ")
	}
}
