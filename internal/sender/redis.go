package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"ondo/internal/collector"
	"ondo/internal/config"
	"ondo/internal/logger"
	"ondo/internal/network"
)

// RedisSender stores the latest snapshot under a key and publishes every
// snapshot on a channel, so dashboards can either poll or subscribe.
type RedisSender struct {
	client  *redis.Client
	key     string
	channel string
	cfg     config.RedisConfig

	mu     sync.RWMutex
	closed bool
}

// NewRedisSender creates a Redis sender. The proxy is used when configured.
func NewRedisSender(cfg config.RedisConfig, socksCfg config.SOCKSConfig) (*RedisSender, error) {
	if cfg.Key == "" && cfg.Channel == "" {
		return nil, fmt.Errorf("redis sender needs a Key or a Channel")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	dial, err := network.DialContext(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dialer: %w", err)
	}
	if dial != nil {
		opts.Dialer = dial
	}

	log := logger.WithComponent("redis-sender")
	log.Info().
		Str("address", cfg.Address).
		Str("key", cfg.Key).
		Str("channel", cfg.Channel).
		Dur("ttl", cfg.TTL).
		Bool("proxy", dial != nil).
		Msg("RedisSender initialized")

	return &RedisSender{
		client:  redis.NewClient(opts),
		key:     cfg.Key,
		channel: cfg.Channel,
		cfg:     cfg,
	}, nil
}

// Send writes the snapshot with SET (EX ttl) and PUBLISH in one transaction.
func (s *RedisSender) Send(ctx context.Context, snap *collector.Snapshot) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if s.key != "" {
			pipe.Set(ctx, s.key, data, s.cfg.TTL)
		}
		if s.channel != "" {
			pipe.Publish(ctx, s.channel, data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write to %s failed: %w", s.cfg.Address, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
