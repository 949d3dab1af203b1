package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := getEnv("REDIS_PASSWORD", "")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

// ReminderGuard is the reminder de-duplication claim. SETNX with a 24h TTL on
// a day-bucketed key is atomic, so two concurrent scheduler runs cannot both
// win the claim for the same (payment, reminder type, day).
type ReminderGuard struct {
	rdb *redis.Client
}

func NewReminderGuard(rdb *redis.Client) *ReminderGuard {
	return &ReminderGuard{rdb: rdb}
}

func (g *ReminderGuard) Claim(ctx context.Context, paymentID int, reminderType string, day time.Time) (bool, error) {
	key := fmt.Sprintf("reminder:%d:%s:%s", paymentID, reminderType, day.Format("2006-01-02"))
	ok, err := g.rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder key: %w", err)
	}
	return ok, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
