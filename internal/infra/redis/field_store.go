package redis

import (
	"context"
	"time"

	"completion-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// FieldStore keeps learner fields in one hash per (block, learner):
//
//	HSET block:{blockID}:learner:{learnerID}:fields {field} {value}
//
// A zero ttl keeps the hash forever.
type FieldStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFieldStore(client *redis.Client, ttl time.Duration) *FieldStore {
	return &FieldStore{client: client, ttl: ttl}
}

func (s *FieldStore) LoadFields(ctx context.Context, key domain.BlockKey) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// SaveFields replaces the hash atomically so removed fields do not linger.
func (s *FieldStore) SaveFields(ctx context.Context, key domain.BlockKey, fields map[string]string) error {
	hashKey := s.key(key)
	values := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		values[name] = value
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, hashKey)
	if len(values) > 0 {
		pipe.HSet(ctx, hashKey, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, hashKey, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *FieldStore) key(key domain.BlockKey) string {
	return "block:" + key.BlockID + ":learner:" + key.LearnerID + ":fields"
}
