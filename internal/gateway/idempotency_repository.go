package gateway

import (
	"context"
	"time"
)

// CachedResponse é a resposta HTTP guardada para uma Idempotency-Key.
type CachedResponse struct {
	StatusCode int
	Body       []byte
}

type IdempotencyRepository interface {
	// Get retorna a resposta guardada, ou nil se não existir.
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error

	// Lock marca a chave como em processamento. false se outra requisição já a segura.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
