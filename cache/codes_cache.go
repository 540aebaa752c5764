package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"loraset/logger"
)

const codesKeyPrefix = "loraset:codes:"

// CodesCache 在 Redis 中缓存音频编码，未变化的文件无需重新编码
type CodesCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodesCache 创建编码缓存，ttl 为 0 时永不过期
func NewCodesCache(client *redis.Client, ttl time.Duration) *CodesCache {
	return &CodesCache{client: client, ttl: ttl}
}

// RedisKey 将文件标识哈希为定长的 Redis 键
func RedisKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return codesKeyPrefix + hex.EncodeToString(sum[:])
}

// GetCodes 获取缓存的音频编码，最多重试2次
func (c *CodesCache) GetCodes(ctx context.Context, key string) (string, bool, error) {
	rk := RedisKey(key)
	retryDelay := 100 * time.Millisecond
	const maxRetries = 2

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		codes, err := c.client.Get(ctx, rk).Result()
		if err == nil {
			return codes, true, nil
		}
		if errors.Is(err, redis.Nil) {
			logger.Debug("编码缓存不存在", logger.String("key", rk))
			return "", false, nil
		}
		lastErr = err
		if attempt < maxRetries-1 {
			logger.Warn("获取编码缓存失败，准备重试",
				logger.String("key", rk),
				logger.Int("attempt", attempt+1),
				logger.ErrorField(err))
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}
	}
	return "", false, lastErr
}

// SetCodes 设置音频编码缓存
func (c *CodesCache) SetCodes(ctx context.Context, key, codes string) error {
	rk := RedisKey(key)
	if err := c.client.Set(ctx, rk, codes, c.ttl).Err(); err != nil {
		logger.Error("设置编码缓存失败",
			logger.String("key", rk),
			logger.Int("size", len(codes)),
			logger.ErrorField(err))
		return err
	}
	logger.Debug("编码缓存设置成功",
		logger.String("key", rk),
		logger.Duration("ttl", c.ttl))
	return nil
}

// Purge 删除所有编码缓存，返回删除数量
func (c *CodesCache) Purge(ctx context.Context) (int, error) {
	var n int
	iter := c.client.Scan(ctx, 0, codesKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}

// Count 返回编码缓存数量
func (c *CodesCache) Count(ctx context.Context) (int, error) {
	var n int
	iter := c.client.Scan(ctx, 0, codesKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}
