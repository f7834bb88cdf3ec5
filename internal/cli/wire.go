package cli

import (
	"context"
	"log"
	"time"

	"completion-service/internal/app"
	"completion-service/internal/config"
	"completion-service/internal/infra/memory"
	pgstore "completion-service/internal/infra/postgres"
	redisstore "completion-service/internal/infra/redis"
	sqlitestore "completion-service/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// runtime holds the wired service and everything that must be closed with it.
type runtime struct {
	service *app.BlockService
	hub     *app.Hub
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildRuntime picks stores from config: Postgres, then Redis, then SQLite,
// then memory for learner fields; settings come from Postgres or the static
// block list and are cached in Redis or in process.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{hub: app.NewHub()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
	}

	var loader memory.SettingsLoader
	if pool != nil {
		loader = pgstore.NewSettingsLoader(pool)
	} else {
		blocks, err := cfg.BlockSettings()
		if err != nil {
			rt.Close()
			return nil, err
		}
		loader = memory.NewStaticSettingsLoader(blocks)
	}

	settingsTTL := config.TTLDuration(cfg.Settings.TTL, 10*time.Minute)
	var settings app.SettingsRepository
	if redisClient != nil {
		settings = redisstore.NewSettingsRepository(redisClient, loader, settingsTTL)
	} else {
		settings = memory.NewSettingsRepository(loader, settingsTTL)
	}

	var fields app.FieldStore
	switch {
	case pool != nil:
		fields = pgstore.NewFieldStore(pool)
	case redisClient != nil:
		fields = redisstore.NewFieldStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0))
	case cfg.SQLite.Path != "":
		store, err := sqlitestore.NewFieldStore(cfg.SQLite.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		fields = store
	default:
		log.Printf("no store configured, learner state is kept in memory")
		fields = memory.NewFieldStore()
	}

	publishers := app.MultiPublisher{}
	if pool != nil {
		publishers = append(publishers, pgstore.NewEventLog(pool))
	}
	if redisClient != nil {
		publishers = append(publishers, redisstore.NewEventStream(redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen))
	}
	publishers = append(publishers, rt.hub)

	rt.service = app.NewBlockService(fields, settings, publishers,
		app.WithServiceRescorePolicy(app.AllowRescore(cfg.AllowRescore())),
		app.WithAssets(app.Assets{
			UncheckedURL: cfg.Assets.UncheckedURL,
			CheckedURL:   cfg.Assets.CheckedURL,
		}),
	)
	return rt, nil
}
