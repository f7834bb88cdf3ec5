package redis

import (
	"context"
	"testing"
	"time"

	"completion-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFieldStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewFieldStore(newClient(mr), 0)
	ctx := context.Background()
	key := domain.BlockKey{BlockID: "block-1", LearnerID: "u1"}

	fields, err := store.LoadFields(ctx, key)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}

	if err := store.SaveFields(ctx, key, map[string]string{
		"done":  "true",
		"score": `{"rawEarned":1,"rawPossible":1}`,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("block:block-1:learner:u1:fields", "done"); got != "true" {
		t.Fatalf("expected done=true in redis, got %q", got)
	}

	// a later save without score must drop the stale field
	if err := store.SaveFields(ctx, key, map[string]string{"done": "false"}); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	fields, err = store.LoadFields(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := fields["score"]; ok || fields["done"] != "false" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestFieldStoreTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewFieldStore(newClient(mr), time.Hour)
	key := domain.BlockKey{BlockID: "block-1", LearnerID: "u1"}
	if err := store.SaveFields(context.Background(), key, map[string]string{"done": "true"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("block:block-1:learner:u1:fields"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
