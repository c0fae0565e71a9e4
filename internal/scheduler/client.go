package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"agencydesk_backend/platform/config"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRebuild schedules a thread rebuild for one owner. A rebuild
// already queued for the same owner is not enqueued again.
func (c *Client) EnqueueRebuild(ctx context.Context, ownerID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewThreadRebuildTask(ThreadRebuildPayload{OwnerID: ownerID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(5*time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueReply hands a reply_now decision to the reply engine.
func (c *Client) EnqueueReply(ctx context.Context, threadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSendReplyTask(DealActionPayload{ThreadID: threadID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	return err
}

// EnqueueFollowUp hands a follow_up decision to the follow-up engine.
func (c *Client) EnqueueFollowUp(ctx context.Context, threadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewFollowUpTask(DealActionPayload{ThreadID: threadID.String()})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(3))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
