package notify

import (
	"context"
	"sync"
	"time"

	"github.com/taskping/taskping/internal/queue"
)

// QueueChannel delivers alerts by enqueueing a delivery job for the push
// worker. Alerts expire after ttl; a reminder delivered late is noise.
type QueueChannel struct {
	queue queue.JobQueue
	ttl   time.Duration
}

var _ Channel = (*QueueChannel)(nil)

// NewQueueChannel wraps q as an alert channel. ttl bounds how long a
// queued alert stays deliverable; zero means no expiration.
func NewQueueChannel(q queue.JobQueue, ttl time.Duration) *QueueChannel {
	return &QueueChannel{queue: q, ttl: ttl}
}

func (c *QueueChannel) Deliver(ctx context.Context, alert Alert) error {
	job := queue.NewNotificationJob(alert.UserID, alert.TaskID, alert.Kind, alert.Title, alert.Body, alert.Tag, alert.Actions)
	if c.ttl > 0 {
		deadline := time.Now().Add(c.ttl)
		job.NotAfter = &deadline
	}
	return c.queue.Enqueue(ctx, job)
}

// ToastChannel is an in-process alert feed. Subscribers receive every
// delivered alert on a buffered channel; a subscriber that falls behind
// drops alerts rather than blocking delivery.
type ToastChannel struct {
	mu   sync.RWMutex
	subs map[chan Alert]struct{}
}

var _ Channel = (*ToastChannel)(nil)

func NewToastChannel() *ToastChannel {
	return &ToastChannel{subs: make(map[chan Alert]struct{})}
}

// Subscribe returns a feed of delivered alerts and a cancel function.
func (c *ToastChannel) Subscribe() (<-chan Alert, func()) {
	ch := make(chan Alert, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()
	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *ToastChannel) Deliver(_ context.Context, alert Alert) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for ch := range c.subs {
		select {
		case ch <- alert:
		default:
		}
	}
	return nil
}
