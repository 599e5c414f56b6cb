package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates a Redis client. Callers decide whether a failed ping is fatal.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NotificationChannel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// Publisher fans notifications out to other processes over Redis pub/sub.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, NotificationChannel(userID), payload).Err()
}
