package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-connect-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// Options resolves client options. REDIS_URL wins over the discrete host settings.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	if url := strings.TrimSpace(cfg.URL); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}

// NewRedis returns a pinged client shared by the job-board cache, rate limiting and the realtime bus.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
