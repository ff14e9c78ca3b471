package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockNotHeld is returned when releasing a lock owned by someone else or already expired
var ErrLockNotHeld = errors.New("lock not held")

// releaseLockScript deletes the lock only if the caller still owns it
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(sessionID string) string { return "cart:" + sessionID }

func wishlistKey(userID string) string { return "wishlist:" + userID }

func idempotencyKey(key string) string { return "idempotency:" + key }

func lockKey(key string) string { return "lock:" + key }

// LoadCart reads the cart snapshot of a session. A missing snapshot is an empty cart.
func (c *Client) LoadCart(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var items []models.CartLine
	found, err := c.getJSON(ctx, cartKey(sessionID), &items)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if !found || items == nil {
		return []models.CartLine{}, nil
	}
	return items, nil
}

// SaveCart overwrites the cart snapshot of a session
func (c *Client) SaveCart(ctx context.Context, sessionID string, items []models.CartLine) error {
	if err := c.setJSON(ctx, cartKey(sessionID), items); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// DeleteCart removes the cart snapshot of a session
func (c *Client) DeleteCart(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, cartKey(sessionID)).Err()
}

// LoadWishlist reads the local wishlist mirror of a user
func (c *Client) LoadWishlist(ctx context.Context, userID string) ([]models.Product, error) {
	var items []models.Product
	found, err := c.getJSON(ctx, wishlistKey(userID), &items)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	if !found || items == nil {
		return []models.Product{}, nil
	}
	return items, nil
}

// SaveWishlist overwrites the local wishlist mirror of a user
func (c *Client) SaveWishlist(ctx context.Context, userID string, items []models.Product) error {
	if err := c.setJSON(ctx, wishlistKey(userID), items); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}

// DeleteWishlist removes the local wishlist mirror of a user
func (c *Client) DeleteWishlist(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, wishlistKey(userID)).Err()
}

// GetIdempotencyKey returns the value stored under key, if any
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// AcquireLock acquires a distributed lock and returns its owner token.
// The token is empty when the lock is already held.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	ok, err := c.rdb.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock releases a distributed lock owned by token
func (c *Client) ReleaseLock(ctx context.Context, key, token string) error {
	n, err := releaseLockScript.Run(ctx, c.rdb, []string{lockKey(key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("corrupt snapshot at %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, 0).Err()
}
