package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"roadmap_tutor/config"
)

// Redis 可选的 Redis 客户端，未配置 redis.addr 时为 nil
var Redis *redis.Client

// InitRedisWithConfig 根据配置创建 Redis 客户端；addr 为空时直接返回
func InitRedisWithConfig(cfg *config.Config) error {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	Redis = client
	return nil
}
