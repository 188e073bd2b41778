package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/danmuck/rsvpctl/internal/clock"
	"github.com/danmuck/rsvpctl/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultKeyPrefix   = "rsvpctl:mailbox:"
	DefaultPollTimeout = 2 * time.Second
)

// RedisConfig configures the Redis list substrate.
type RedisConfig struct {
	URL         string
	KeyPrefix   string
	PollTimeout time.Duration
	Backoff     BackoffConfig
	Clock       clock.Clock
}

func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:         url,
		KeyPrefix:   DefaultKeyPrefix,
		PollTimeout: DefaultPollTimeout,
		Backoff:     DefaultBackoff(),
		Clock:       clock.Real(),
	}
}

// Redis stores one list per address. Send pushes on the left; consumers pop
// from the right, so each address is a FIFO queue shared across processes.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	log    zerolog.Logger
}

var _ Mailbox = (*Redis)(nil)

// OpenRedis parses cfg.URL and pings the server before returning.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("mailbox: redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("mailbox: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mailbox: redis ping failed: %w", err)
	}
	return NewRedis(client, cfg), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Redis{
		client: client,
		cfg:    cfg,
		log:    logging.Component("mailbox.redis"),
	}
}

func (r *Redis) key(address string) string {
	return r.cfg.KeyPrefix + address
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Send(ctx context.Context, dest string, env Envelope) error {
	if err := checkAddress(dest); err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("mailbox: marshal envelope: %w", err)
	}
	if err := r.client.LPush(ctx, r.key(dest), raw).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("mailbox: push to %s: %w", dest, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, address string) (<-chan Envelope, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	out := make(chan Envelope)
	go r.consume(ctx, address, out)
	return out, nil
}

func (r *Redis) consume(ctx context.Context, address string, out chan<- Envelope) {
	defer close(out)
	key := r.key(address)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := r.client.BRPop(ctx, r.cfg.PollTimeout, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			attempt = 0
			continue
		case errors.Is(err, redis.ErrClosed):
			return
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			attempt++
			delay := NextBackoffDelay(r.cfg.Backoff, attempt, rng)
			r.log.Warn().Err(err).Str("address", address).Int("attempt", attempt).Dur("retry_in", delay).Msg("mailbox pop failed")
			select {
			case <-r.cfg.Clock.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}
		attempt = 0
		if len(res) != 2 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			r.log.Warn().Err(err).Str("address", address).Msg("dropping undecodable envelope")
			continue
		}
		select {
		case out <- env:
		case <-ctx.Done():
			r.requeue(key, res[1])
			return
		}
	}
}

// requeue returns an undelivered envelope to the consuming end of the list.
func (r *Redis) requeue(key, raw string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.client.RPush(ctx, key, raw).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("requeue failed")
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
