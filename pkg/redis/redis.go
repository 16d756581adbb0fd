package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"class-portal/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单与登录/注册限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "portal:token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 按用户吊销 ──

const userRevokedPrefix = "portal:token:user-revoked:"

// RevokeUserTokens 使该用户在此刻及之前签发的全部 Token 失效
// ttl 应不短于 Token 的最长有效期
func (c *Client) RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, userRevokedPrefix+userID, time.Now().Unix(), ttl).Err()
}

// UserTokensRevokedAt 查询用户 Token 的吊销时刻，未吊销时 ok 为 false
func (c *Client) UserTokensRevokedAt(ctx context.Context, userID string) (at time.Time, ok bool, err error) {
	sec, err := c.rdb.Get(ctx, userRevokedPrefix+userID).Int64()
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}

// ── 滑动窗口限流 ──

const rateLimitPrefix = "portal:ratelimit:"

// CheckRateLimit 基于有序集合的滑动窗口限流
// 返回 true 表示本次请求被允许
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := rateLimitPrefix + key
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("限流检查失败: %w", err)
	}

	return count.Val() < int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
