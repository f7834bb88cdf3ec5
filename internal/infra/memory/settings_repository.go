package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"completion-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// SettingsLoader fetches block settings from a backing store (e.g., Postgres).
type SettingsLoader interface {
	LoadSettings(ctx context.Context, blockID string) (domain.Settings, error)
}

// SettingsRepository caches block settings with TTL to avoid repeated store hits.
type SettingsRepository struct {
	loader SettingsLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSettings
}

type cachedSettings struct {
	settings  domain.Settings
	expiresAt time.Time
}

func NewSettingsRepository(loader SettingsLoader, ttl time.Duration) *SettingsRepository {
	return &SettingsRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSettings),
	}
}

func (r *SettingsRepository) GetSettings(ctx context.Context, blockID string) (domain.Settings, error) {
	if settings, ok := r.cached(blockID); ok {
		return settings, nil
	}

	result, err, _ := r.sf.Do(blockID, func() (interface{}, error) {
		if settings, ok := r.cached(blockID); ok {
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
			r.mu.Lock()
			r.cache[blockID] = cachedSettings{
				settings:  settings,
				expiresAt: r.clock().Add(ttl),
			}
			r.mu.Unlock()
		}
		return settings, nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	return result.(domain.Settings), nil
}

func (r *SettingsRepository) cached(blockID string) (domain.Settings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[blockID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Settings{}, false
	}
	return entry.settings, true
}

func (r *SettingsRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSettingsLoader is backed by an in-memory map (config-seeded blocks, tests).
type StaticSettingsLoader struct {
	blocks map[string]domain.Settings
}

func NewStaticSettingsLoader(blocks map[string]domain.Settings) *StaticSettingsLoader {
	return &StaticSettingsLoader{blocks: blocks}
}

func (l *StaticSettingsLoader) LoadSettings(_ context.Context, blockID string) (domain.Settings, error) {
	if settings, ok := l.blocks[blockID]; ok {
		settings.BlockID = blockID
		return settings, nil
	}
	return domain.Settings{}, domain.ErrBlockNotFound
}
