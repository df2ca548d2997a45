package documents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a Channel over three keys sharing a prefix:
// <prefix>:docs (hash id -> JSON), <prefix>:order (sorted set scored by
// server time) and <prefix>:changes (pub/sub notifications).
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedis wraps a client. prefix namespaces the keys.
func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, logger: logger}
}

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url, prefix string, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		// Keep the client: the monitor decides when to subscribe.
		logger.Warn("redis not reachable", zap.Error(err))
	}
	return NewRedis(client, prefix, logger), nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) docsKey() string    { return r.prefix + ":docs" }
func (r *Redis) orderKey() string   { return r.prefix + ":order" }
func (r *Redis) changesKey() string { return r.prefix + ":changes" }

// Append stores the document stamped with the Redis server clock and
// notifies subscribers.
func (r *Redis) Append(ctx context.Context, f Fields) (string, error) {
	now, err := r.client.Time(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("server time: %w", err)
	}
	ts := now.UTC()
	id := uuid.NewString()
	data, err := json.Marshal(chat.Message{
		ID:        id,
		Text:      f.Text,
		User:      f.User,
		UserEmail: f.UserEmail,
		CreatedAt: &ts,
		ImageURL:  f.ImageURL,
		IsImage:   f.IsImage,
	})
	if err != nil {
		return "", err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.docsKey(), id, string(data))
		pipe.ZAdd(ctx, r.orderKey(), redis.Z{Score: float64(ts.UnixMicro()), Member: id})
		pipe.Publish(ctx, r.changesKey(), id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}
	return id, nil
}

// Subscribe listens on the changes channel and re-reads the full ordered
// list after every notification.
func (r *Redis) Subscribe(ctx context.Context, onSnapshot func([]chat.Message), onError func(error)) func() {
	sub, ctx := newSubscription(ctx, onSnapshot, onError)
	go r.watch(ctx, sub)
	return sub.unsubscribe
}

func (r *Redis) watch(ctx context.Context, sub *subscription) {
	ps := r.client.Subscribe(ctx, r.changesKey())
	defer func() { _ = ps.Close() }()

	// Wait for the subscription confirmation before the first read.
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			sub.fail(fmt.Errorf("subscribe changes: %w", err))
		}
		return
	}
	if !r.deliver(ctx, sub) {
		return
	}
	for {
		if _, err := ps.ReceiveMessage(ctx); err != nil {
			if ctx.Err() == nil {
				sub.fail(fmt.Errorf("change feed: %w", err))
			}
			return
		}
		if !r.deliver(ctx, sub) {
			return
		}
	}
}

func (r *Redis) deliver(ctx context.Context, sub *subscription) bool {
	msgs, err := r.snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sub.fail(err)
		}
		return false
	}
	sub.snapshot(msgs)
	return true
}

func (r *Redis) snapshot(ctx context.Context) ([]chat.Message, error) {
	ids, err := r.client.ZRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read order: %w", err)
	}
	out := make([]chat.Message, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := r.client.HMGet(ctx, r.docsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read docs: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			r.logger.Warn("message missing from hash", zap.String("id", ids[i]))
			continue
		}
		var m chat.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			r.logger.Warn("skipping undecodable message", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	sortByCreatedAt(out)
	return out, nil
}

