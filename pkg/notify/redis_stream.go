package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultStreamMaxLen int64 = 10000

// RedisStreamConfig configures RedisStreamNotifier.
type RedisStreamConfig struct {
	Addr     string
	Password string
	Stream   string
	MaxLen   int64
}

// RedisStreamNotifier appends events to a Redis stream for an external mailer.
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamNotifier(cfg RedisStreamConfig) (*RedisStreamNotifier, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("notification stream required")
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &RedisStreamNotifier{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

func (n *RedisStreamNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: true,
		Values: map[string]any{
			"kind":          string(ev.Kind),
			"submission_id": ev.Submission.ID,
			"payload":       string(payload),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", n.stream, err)
	}
	return nil
}

func (n *RedisStreamNotifier) Close() error {
	return n.client.Close()
}
