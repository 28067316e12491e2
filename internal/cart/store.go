package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps carts as JSON documents that expire after TTL of inactivity.
// Concurrent writers to the same cart resolve last-write-wins.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s RedisStore) key(id uuid.UUID) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:"
	}
	return prefix + id.String()
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Get loads a cart and refreshes its expiry.
func (s RedisStore) Get(ctx context.Context, id uuid.UUID) (Cart, error) {
	if s.Client == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	data, err := s.Client.GetEx(ctx, s.key(id), s.ttl()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return c, nil
}

// Save writes the cart and resets its expiry.
func (s RedisStore) Save(ctx context.Context, c Cart) error {
	if s.Client == nil {
		return errors.New("cart store not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Client.Set(ctx, s.key(c.ID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
