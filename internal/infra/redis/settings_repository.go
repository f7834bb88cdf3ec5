package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"completion-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SettingsLoader fetches block settings from a backing store (e.g., Postgres).
type SettingsLoader interface {
	LoadSettings(ctx context.Context, blockID string) (domain.Settings, error)
}

// SettingsRepository caches normalized block settings as JSON strings in Redis
// (SET block:{blockID}:settings) and falls back to a loader on cache miss.
type SettingsRepository struct {
	client *redis.Client
	loader SettingsLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewSettingsRepository(client *redis.Client, loader SettingsLoader, ttl time.Duration) *SettingsRepository {
	return &SettingsRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SettingsRepository) GetSettings(ctx context.Context, blockID string) (domain.Settings, error) {
	if settings, ok := r.cached(ctx, blockID); ok {
		return settings, nil
	}

	result, err, _ := r.sf.Do(blockID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if settings, ok := r.cached(ctx, blockID); ok {
			return settings, nil
		}

		settings, err := r.loader.LoadSettings(ctx, blockID)
		if err != nil {
			return domain.Settings{}, err
		}
		settings, err = settings.Normalize()
		if err != nil {
			return domain.Settings{}, err
		}

		if ttl := r.ttlWithJitter(); ttl > 0 {
			if data, err := json.Marshal(settings); err == nil {
				_ = r.client.Set(ctx, r.key(blockID), data, ttl).Err()
			}
		}
		return settings, nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return result.(domain.Settings), nil
}

func (r *SettingsRepository) cached(ctx context.Context, blockID string) (domain.Settings, bool) {
	data, err := r.client.Get(ctx, r.key(blockID)).Bytes()
	if err != nil {
		return domain.Settings{}, false
	}
	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.Settings{}, false
	}
	return settings, true
}

func (r *SettingsRepository) key(blockID string) string {
	return "block:" + blockID + ":settings"
}

func (r *SettingsRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
