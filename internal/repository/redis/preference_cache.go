package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/core/port"
)

const defaultPreferencePrefix = "pref"

type cachedPreference struct {
	UserID                 string    `json:"user_id"`
	EnableContextBasedAuth bool      `json:"enable_context_based_auth"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// PreferenceCache stores user preferences as JSON strings with a TTL.
type PreferenceCache struct {
	client *red.Client
	prefix string
}

// NewPreferenceCache wires a Redis client into a preference cache.
func NewPreferenceCache(client *red.Client, keyPrefix string) *PreferenceCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPreferencePrefix
	}
	return &PreferenceCache{client: client, prefix: prefix}
}

// GetPreference returns the cached preference, or false on a miss.
func (c *PreferenceCache) GetPreference(ctx context.Context, userID string) (*domain.UserPreference, bool, error) {
	key := c.key(userID)
	if key == "" {
		return nil, false, errors.New("user id must not be empty")
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get preference: %w", err)
	}

	var cached cachedPreference
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("decode cached preference: %w", err)
	}

	return &domain.UserPreference{
		UserID:                 cached.UserID,
		EnableContextBasedAuth: cached.EnableContextBasedAuth,
		UpdatedAt:              cached.UpdatedAt,
	}, true, nil
}

// SetPreference caches the preference for ttl.
func (c *PreferenceCache) SetPreference(ctx context.Context, pref domain.UserPreference, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	key := c.key(pref.UserID)
	if key == "" {
		return errors.New("user id must not be empty")
	}

	payload, err := json.Marshal(cachedPreference{
		UserID:                 pref.UserID,
		EnableContextBasedAuth: pref.EnableContextBasedAuth,
		UpdatedAt:              pref.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set preference: %w", err)
	}
	return nil
}

// DeletePreference evicts the cached preference.
func (c *PreferenceCache) DeletePreference(ctx context.Context, userID string) error {
	key := c.key(userID)
	if key == "" {
		return errors.New("user id must not be empty")
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del preference: %w", err)
	}
	return nil
}

func (c *PreferenceCache) key(userID string) string {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

var _ port.PreferenceCache = (*PreferenceCache)(nil)
