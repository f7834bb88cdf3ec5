package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"completion-service/internal/domain"
)

func TestFieldStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	key := domain.BlockKey{BlockID: "block-1", LearnerID: "u1"}

	store, err := NewFieldStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SaveFields(ctx, key, map[string]string{
		"done":  "true",
		"score": `{"rawEarned":1,"rawPossible":1}`,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveFields(ctx, key, map[string]string{"done": "false"}); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewFieldStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	fields, err := reopened.LoadFields(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(fields) != 1 || fields["done"] != "false" {
		t.Fatalf("expected only done=false, got %v", fields)
	}

	other, err := reopened.LoadFields(ctx, domain.BlockKey{BlockID: "block-1", LearnerID: "u2"})
	if err != nil {
		t.Fatalf("load other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no fields for another learner, got %v", other)
	}
}

func TestFieldStoreCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := NewFieldStore(path)
	if err != nil {
		t.Fatalf("open nested path: %v", err)
	}
	defer store.Close()

	key := domain.BlockKey{BlockID: "block-1", LearnerID: "u1"}
	if err := store.SaveFields(context.Background(), key, map[string]string{"done": "true"}); err != nil {
		t.Fatalf("save: %v", err)
	}
}
