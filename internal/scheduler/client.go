package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"despacho_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const dispatchQueue = "default"

type Client struct {
	client *asynq.Client
	queue  string
}

// Dispatcher enqueues outbound messages for delivery.
type Dispatcher interface {
	EnqueueDispatch(ctx context.Context, payload FunnelDispatchPayload) error
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  dispatchQueue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDispatch hands one outbound message to the delivery worker.
// Messages are due the moment the engine emits them, so no ProcessAt.
func (c *Client) EnqueueDispatch(ctx context.Context, payload FunnelDispatchPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewFunnelDispatchTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
