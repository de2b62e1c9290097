package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix prefixes every channel name.
const DefaultChannelPrefix = "vidchat:jobs"

// RedisNotifier publishes transitions on two channels: one per video and
// one carrying every video.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Option configures a RedisNotifier.
type Option func(*RedisNotifier) error

// WithChannelPrefix replaces DefaultChannelPrefix.
func WithChannelPrefix(prefix string) Option {
	return func(n *RedisNotifier) error {
		if prefix == "" {
			return core.Errorf(core.KindInput, "redis notifier", "channel prefix is empty")
		}
		n.prefix = prefix
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *RedisNotifier) error {
		n.logger = logger
		return nil
	}
}

// NewRedisNotifier connects to redisURL, e.g. redis://localhost:6379/0.
func NewRedisNotifier(ctx context.Context, redisURL string, opts ...Option) (*RedisNotifier, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	n, err := NewRedisNotifierFromClient(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return n, nil
}

// NewRedisNotifierFromClient wraps an existing client. Close closes it.
func NewRedisNotifierFromClient(client *redis.Client, opts ...Option) (*RedisNotifier, error) {
	n := &RedisNotifier{
		client: client,
		prefix: DefaultChannelPrefix,
		logger: slog.Default().With("component", "redis-events"),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Channel returns the channel of videoID.
func (n *RedisNotifier) Channel(videoID core.VideoID) string {
	return n.prefix + ":" + string(videoID)
}

// AllChannel returns the channel carrying every video.
func (n *RedisNotifier) AllChannel() string {
	return n.prefix
}

// Notify publishes job on its video channel and on the shared channel.
func (n *RedisNotifier) Notify(ctx context.Context, job *core.VideoJob) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	pipe := n.client.Pipeline()
	pipe.Publish(ctx, n.Channel(job.VideoID), data)
	pipe.Publish(ctx, n.AllChannel(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return core.NewError(core.KindNetwork, "publish job event", err)
	}
	return nil
}

// Subscribe streams the events of videoID until ctx ends. An empty videoID
// follows every video. The channel is closed when the subscription ends.
func (n *RedisNotifier) Subscribe(ctx context.Context, videoID core.VideoID) (<-chan Event, error) {
	channel := n.AllChannel()
	if videoID != "" {
		channel = n.Channel(videoID)
	}
	pubsub := n.client.Subscribe(ctx, channel)
	// Wait for the confirmation so no event published after return is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, core.NewError(core.KindNetwork, "subscribe job events", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := Decode([]byte(msg.Payload))
				if err != nil {
					n.logger.Warn("dropping malformed event", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the redis client.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
