package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/ordershop/pkg/config"
	"github.com/example/ordershop/pkg/models"
	"github.com/example/ordershop/pkg/orders"
	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "session:"
	cartKeyPrefix    = "cart:"
	userKeyPrefix    = "user:"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg)
}

func NewRedisRepositoryWithClient(client *redis.Client, cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the value at key into dest. A missing key is reported as
// orders.ErrNotFound.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s: %w", key, orders.ErrNotFound)
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

type sessionData struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// SessionStore resolves opaque session ids written by the login service into
// the identity of the signed in user.
type SessionStore struct {
	redis *RedisRepository
	ttl   time.Duration
}

func NewSessionStore(r *RedisRepository, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: r, ttl: ttl}
}

// Lookup returns orders.ErrUnauthenticated for unknown, expired or
// malformed sessions.
func (s *SessionStore) Lookup(ctx context.Context, sid string) (models.Identity, error) {
	if sid == "" {
		return models.Identity{}, orders.ErrUnauthenticated
	}

	var data sessionData
	if err := s.redis.GetJSON(ctx, sessionKeyPrefix+sid, &data); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return models.Identity{}, orders.ErrUnauthenticated
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return models.Identity{}, fmt.Errorf("%w: malformed session", orders.ErrUnauthenticated)
		}
		return models.Identity{}, orders.Persistence("lookup session", err)
	}
	if data.UserID == "" {
		return models.Identity{}, orders.ErrUnauthenticated
	}

	return models.Identity{ID: data.UserID, Role: data.Role}, nil
}

// Create stores a session for identity. Only diagnostics and tests create
// sessions here; the login flow lives elsewhere.
func (s *SessionStore) Create(ctx context.Context, sid string, identity models.Identity) error {
	return s.redis.SetJSON(ctx, sessionKeyPrefix+sid, sessionData{UserID: identity.ID, Role: identity.Role}, s.ttl)
}

// CartStore clears the cart kept by the cart service under cart:<userId>.
type CartStore struct {
	redis *RedisRepository
}

func NewCartStore(r *RedisRepository) *CartStore {
	return &CartStore{redis: r}
}

// DeleteCartForUser succeeds when the user has no cart.
func (c *CartStore) DeleteCartForUser(ctx context.Context, userID string) error {
	if err := c.redis.client.Del(ctx, cartKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("delete cart for user %s: %w", userID, err)
	}
	return nil
}

// UserCache holds the profile fields orders snapshot.
type UserCache struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (r *RedisRepository) CacheUser(ctx context.Context, user *models.User) error {
	return r.SetJSON(ctx, userKeyPrefix+user.ID, &UserCache{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	}, r.config.UserTTL)
}

func (r *RedisRepository) GetUserCache(ctx context.Context, userID string) (*models.User, error) {
	var cached UserCache
	if err := r.GetJSON(ctx, userKeyPrefix+userID, &cached); err != nil {
		return nil, err
	}
	return &models.User{
		ID:        cached.ID,
		FirstName: cached.FirstName,
		LastName:  cached.LastName,
		Email:     cached.Email,
		Role:      cached.Role,
	}, nil
}
