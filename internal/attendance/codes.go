package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrUnavailable = errors.New("attendance_codes_unavailable")

// CodeStore keeps the single live check-in code of each class.
type CodeStore interface {
	Put(ctx context.Context, classID, code string, ttl time.Duration) error
	Get(ctx context.Context, classID string) (string, bool, error)
}

type RedisCodes struct {
	client *redis.Client
}

func NewRedisCodes(client *redis.Client) *RedisCodes {
	return &RedisCodes{client: client}
}

func (c *RedisCodes) Put(ctx context.Context, classID, code string, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	return c.client.Set(ctx, codeKey(classID), code, ttl).Err()
}

func (c *RedisCodes) Get(ctx context.Context, classID string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, ErrUnavailable
	}
	value, err := c.client.Get(ctx, codeKey(classID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func codeKey(classID string) string {
	return fmt.Sprintf("attendance_code:%s", classID)
}
