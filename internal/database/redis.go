package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/65160020/swapup-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Typing/presence broadcast and rate limiting will be disabled.", err)
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// CheckRateLimit counts requests per user/IP within a rolling window.
func CheckRateLimit(key string, limit int, duration time.Duration) (bool, error) {
	rkey := fmt.Sprintf("rate_limit:%s", key)
	count, err := Redis.Incr(Ctx, rkey).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		Redis.Expire(Ctx, rkey, duration)
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}
