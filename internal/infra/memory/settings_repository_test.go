package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"completion-service/internal/domain"
)

func TestSettingsRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		SettingsLoader: NewStaticSettingsLoader(map[string]domain.Settings{
			"block-1": {DisplayName: "Read chapter 1", Align: "Right"},
		}),
	}
	repo := NewSettingsRepository(loader, time.Minute)

	settings, err := repo.GetSettings(context.Background(), "block-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.Align != domain.AlignRight {
		t.Fatalf("expected normalized align right, got %q", settings.Align)
	}
	if settings.BlockID != "block-1" {
		t.Fatalf("expected block id to be filled, got %q", settings.BlockID)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetSettings(context.Background(), "block-1"); err != nil {
		t.Fatalf("get settings 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestSettingsRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		SettingsLoader: NewStaticSettingsLoader(map[string]domain.Settings{"block-1": {}}),
	}
	repo := NewSettingsRepository(loader, time.Minute)
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetSettings(context.Background(), "block-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetSettings(context.Background(), "block-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestSettingsRepositoryRejectsInvalid(t *testing.T) {
	weight := -1.0
	repo := NewSettingsRepository(NewStaticSettingsLoader(map[string]domain.Settings{
		"bad-align":  {Align: "top"},
		"bad-weight": {Weight: &weight},
	}), time.Minute)

	for _, id := range []string{"bad-align", "bad-weight"} {
		if _, err := repo.GetSettings(context.Background(), id); !errors.Is(err, domain.ErrInvalidSettings) {
			t.Fatalf("%s: expected invalid settings, got %v", id, err)
		}
	}
	if _, err := repo.GetSettings(context.Background(), "missing"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Fatalf("expected block not found, got %v", err)
	}
}

type countingLoader struct {
	SettingsLoader
	calls int
}

func (l *countingLoader) LoadSettings(ctx context.Context, blockID string) (domain.Settings, error) {
	l.calls++
	return l.SettingsLoader.LoadSettings(ctx, blockID)
}
