package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/database"
	logpkg "github.com/taskping/taskping/internal/logger"
	"github.com/taskping/taskping/internal/queue"
	"github.com/taskping/taskping/internal/services/push"
)

// NotificationDeliverer consumes delivery jobs and fans each alert out to
// the user's registered push subscriptions. Tokens the push service
// reports as gone are pruned so they stop consuming delivery attempts.
type NotificationDeliverer struct {
	sender   push.Sender
	subRepo  database.SubscriptionRepositoryInterface
	jobQueue queue.JobQueue
	logger   *zap.Logger
}

// NewNotificationDeliverer creates a new deliverer.
func NewNotificationDeliverer(sender push.Sender, subRepo database.SubscriptionRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *NotificationDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDeliverer{
		sender:   sender,
		subRepo:  subRepo,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessJob handles one queued message end to end, including ack/nack.
func (d *NotificationDeliverer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeNotification {
		if nackErr := msg.Nack(false); nackErr != nil {
			d.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if job.IsExpired() {
		d.logger.Info("dropping_expired_job",
			zap.String("job_id", job.ID.String()),
			zap.String("kind", job.Kind),
			zap.Timep("not_after", job.NotAfter),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired job: %w", ackErr)
		}
		return nil
	}

	if !job.ShouldProcess() {
		// Arrived ahead of its NotBefore; push it back through the
		// delayed exchange rather than spinning on it.
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack early job: %w", ackErr)
		}
		if err := d.jobQueue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("failed to re-enqueue early job: %w", err)
		}
		return nil
	}

	if err := d.deliver(ctx, job); err != nil {
		return d.handleDeliveryError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// deliver sends the alert to every registered subscription. A job with no
// subscriptions succeeds trivially; enabling notifications without
// registering a device is a valid state.
func (d *NotificationDeliverer) deliver(ctx context.Context, job *queue.Job) error {
	subs, err := d.subRepo.GetByUserID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}

	if len(subs) == 0 {
		d.logger.Debug("no_push_subscriptions_for_user",
			zap.String("user_id", job.UserID.String()),
			zap.String("kind", job.Kind),
		)
		return nil
	}

	data := map[string]string{"kind": job.Kind}
	if job.TaskID != nil {
		data["task_id"] = job.TaskID.String()
	}

	var delivered int
	var lastErr error
	for _, sub := range subs {
		err := d.sender.Send(ctx, &push.Message{
			Token:   sub.Token,
			Title:   job.Title,
			Body:    job.Body,
			Tag:     job.Tag,
			Actions: job.Actions,
			Data:    data,
		})
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, push.ErrTokenGone):
			d.logger.Info("pruning_gone_push_token",
				zap.String("user_id", sub.UserID.String()),
				zap.String("token", logpkg.SanitizePushToken(sub.Token)),
			)
			if delErr := d.subRepo.DeleteByToken(ctx, sub.Token); delErr != nil {
				d.logger.Warn("failed_to_prune_push_token", zap.Error(delErr))
			}
		default:
			lastErr = err
			d.logger.Warn("push_delivery_attempt_failed",
				zap.Error(err),
				zap.String("token", logpkg.SanitizePushToken(sub.Token)),
			)
		}
	}

	if delivered == 0 && lastErr != nil {
		return fmt.Errorf("all delivery attempts failed: %w", lastErr)
	}

	d.logger.Info("notification_delivered",
		zap.String("job_id", job.ID.String()),
		zap.String("kind", job.Kind),
		zap.Int("targets", delivered),
	)
	return nil
}

// handleDeliveryError retries transient failures with a delayed
// re-enqueue, and dead-letters the job once retries are exhausted.
func (d *NotificationDeliverer) handleDeliveryError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if !job.CanRetry() {
		d.logger.Error("delivery_retries_exhausted",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			d.logger.Warn("failed_to_nack_exhausted_job", zap.Error(nackErr))
		}
		return fmt.Errorf("delivery failed permanently: %w", err)
	}

	job.IncrementRetry()
	retryDelay := time.Duration(job.RetryCount) * 30 * time.Second
	notBefore := time.Now().Add(retryDelay)
	job.NotBefore = &notBefore

	if ackErr := msg.Ack(); ackErr != nil {
		d.logger.Warn("failed_to_ack_before_retry", zap.Error(ackErr))
	}
	if enqueueErr := d.jobQueue.Enqueue(ctx, job); enqueueErr != nil {
		return fmt.Errorf("failed to re-enqueue for retry: %w", enqueueErr)
	}

	d.logger.Warn("delivery_failed_scheduling_retry",
		zap.Error(err),
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Duration("retry_delay", retryDelay),
	)
	return nil
}
