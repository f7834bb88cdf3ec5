package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"completion-service/internal/domain"
)

func TestLoadParsesBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  stream_max_len: 500
grading:
  allow_rescore: false
blocks:
  - id: chapter-1
    display_name: Read chapter 1
    align: Right
    weight: 0.5
    due: "2024-12-01T00:00:00Z"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.StreamMaxLen != 500 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.AllowRescore() {
		t.Fatalf("expected rescore disabled")
	}

	blocks, err := cfg.BlockSettings()
	if err != nil {
		t.Fatalf("block settings: %v", err)
	}
	b, ok := blocks["chapter-1"]
	if !ok {
		t.Fatalf("expected chapter-1, got %v", blocks)
	}
	if b.Align != domain.AlignRight || b.EffectiveWeight() != 0.5 || b.Due == nil || b.Start != nil {
		t.Fatalf("unexpected block settings %+v", b)
	}
}

func TestBlockSettingsDefaultsToWorkbench(t *testing.T) {
	var cfg Config
	if !cfg.AllowRescore() {
		t.Fatalf("expected rescore allowed by default")
	}
	blocks, err := cfg.BlockSettings()
	if err != nil {
		t.Fatalf("block settings: %v", err)
	}
	if len(blocks) != 3 || blocks["done-center"].Align != domain.AlignCenter {
		t.Fatalf("expected workbench blocks, got %v", blocks)
	}
	if blocks["done-left"].DisplayName != domain.DefaultDisplayName {
		t.Fatalf("expected default display name")
	}
}

func TestBlockSettingsRejectsBadAlign(t *testing.T) {
	cfg := Config{Blocks: []Block{{ID: "x", Align: "diagonal"}}}
	if _, err := cfg.BlockSettings(); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
	if got := TTLDuration("30s", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %v", got)
	}
}
