package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetAnalysis caches an analyzer result keyed by the md5 of the
// instructor file contents, so a re-analysis of an unchanged file skips
// the collaborator entirely.
func (c *Client) SetAnalysis(ctx context.Context, fileHash string, result interface{}, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf("analysis:%s", fileHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set analysis cache: %w", err)
	}

	logger.Debug("Analysis cached", zap.String("file_hash", fileHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetAnalysis(ctx context.Context, fileHash string, result interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("analysis:%s", fileHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get analysis cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	logger.Debug("Analysis cache hit", zap.String("file_hash", fileHash))
	return true, nil
}

// InvalidateAnalyses drops all cached analyzer results. Called after a
// new upload rewrites the instructor data directory.
func (c *Client) InvalidateAnalyses(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "analysis:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Analysis cache invalidated")
	return nil
}
