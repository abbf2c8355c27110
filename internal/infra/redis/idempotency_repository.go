package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/redis/go-redis/v9"
)

const (
	responsePrefix = "idempotency:"
	lockPrefix     = "idempotency-lock:"

	fieldStatus = "status"
	fieldBody   = "body"
)

// IdempotencyRepository guarda cada resposta como um hash {status, body}
// com TTL, e usa uma chave separada como trava de requisição em andamento.
type IdempotencyRepository struct {
	client redis.Cmdable
}

func NewIdempotencyRepository(client redis.Cmdable) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*gateway.CachedResponse, error) {
	fields, err := r.client.HGetAll(ctx, responsePrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil // cache miss
	}

	status, err := strconv.Atoi(fields[fieldStatus])
	if err != nil {
		return nil, fmt.Errorf("corrupted idempotency entry %s: %w", key, err)
	}
	return &gateway.CachedResponse{StatusCode: status, Body: []byte(fields[fieldBody])}, nil
}

// Save grava status e corpo junto com o TTL numa única transação MULTI/EXEC.
func (r *IdempotencyRepository) Save(ctx context.Context, key string, response gateway.CachedResponse, ttl time.Duration) error {
	redisKey := responsePrefix + key
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey, fieldStatus, response.StatusCode, fieldBody, string(response.Body))
		pipe.Expire(ctx, redisKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return nil
}

// Lock usa SET NX: só a primeira requisição com a chave processa.
func (r *IdempotencyRepository) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to lock idempotency key: %w", err)
	}
	return ok, nil
}

func (r *IdempotencyRepository) Unlock(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, lockPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to unlock idempotency key: %w", err)
	}
	return nil
}
