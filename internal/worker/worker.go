// Package worker drains the Redis job queue and delivers email and Slack messages.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helicone-dashboard/backend/internal/models"
	"github.com/helicone-dashboard/backend/internal/notify"
	"github.com/helicone-dashboard/backend/pkg/queue"
)

// JobQueue is the subset of the queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

// SlackPoster posts one Slack message.
type SlackPoster interface {
	Post(ctx context.Context, channel, text string) error
}

// DeliveryLog records email delivery attempts.
type DeliveryLog interface {
	Record(ctx context.Context, el *models.EmailLog) error
}

// NotificationProcessor processes email and Slack jobs.
type NotificationProcessor struct {
	queue   JobQueue
	mailer  Mailer
	slack   SlackPoster
	log     DeliveryLog
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewNotificationProcessor creates a processor. log may be nil.
func NewNotificationProcessor(q JobQueue, mailer Mailer, slack SlackPoster, log DeliveryLog, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		queue:   q,
		mailer:  mailer,
		slack:   slack,
		log:     log,
		logger:  logger,
		backoff: queue.RetryBackoff,
		now:     time.Now,
	}
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sendEmail(ctx, job, payload)
	case queue.JobTypeSlack:
		var payload queue.SlackPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := p.slack.Post(ctx, payload.Channel, payload.Text); err != nil {
			return err
		}
		p.logger.Info("slack message delivered", zap.String("job_id", job.ID), zap.String("channel", payload.Channel))
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *NotificationProcessor) sendEmail(ctx context.Context, job *queue.Job, payload queue.EmailPayload) error {
	sendErr := p.mailer.Send(ctx, notify.Message{
		To:       payload.RecipientEmail,
		Subject:  payload.Subject,
		BodyHTML: payload.BodyHTML,
	})

	entry := &models.EmailLog{
		JobID:          job.ID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Attempt:        job.Attempt,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		sentAt := p.now().UTC()
		entry.Status = models.EmailLogStatusSent
		entry.SentAt = &sentAt
	}
	if p.log != nil {
		if err := p.log.Record(ctx, entry); err != nil {
			p.logger.Warn("record email log failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if sendErr != nil {
		return sendErr
	}
	p.logger.Info("email delivered", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if errors.Is(err, notify.ErrNotConfigured) {
				continue
			}
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
