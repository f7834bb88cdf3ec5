package redis

import (
	"context"
	"testing"
	"time"

	"completion-service/internal/domain"
	"completion-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSettingsRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	weight := 2.5
	loader := &countingLoader{
		SettingsLoader: memory.NewStaticSettingsLoader(map[string]domain.Settings{
			"block-1": {DisplayName: "Watch the lecture", Align: "CENTER", Weight: &weight},
		}),
	}
	repo := NewSettingsRepository(newClient(mr), loader, time.Minute)

	settings, err := repo.GetSettings(context.Background(), "block-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.Align != domain.AlignCenter || settings.EffectiveWeight() != 2.5 {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("block:block-1:settings") {
		t.Fatalf("expected settings cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetSettings(context.Background(), "block-1")
	if err != nil {
		t.Fatalf("get cached settings: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.DisplayName != "Watch the lecture" || cached.Weight == nil || *cached.Weight != 2.5 {
		t.Fatalf("cached settings lost fields: %+v", cached)
	}
}

type countingLoader struct {
	memory.SettingsLoader
	calls int
}

func (l *countingLoader) LoadSettings(ctx context.Context, blockID string) (domain.Settings, error) {
	l.calls++
	return l.SettingsLoader.LoadSettings(ctx, blockID)
}
