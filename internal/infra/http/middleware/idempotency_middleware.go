package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderIdempotencyHit = "X-Idempotency-Hit"

	inFlightTTL = 30 * time.Second
)

// capturedResponse copia o que o handler escreve para poder gravar depois.
// Só o primeiro WriteHeader conta, como no http.ResponseWriter.
type capturedResponse struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturedResponse) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturedResponse) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *capturedResponse) cacheable() bool {
	return c.status != 0 && c.status < http.StatusInternalServerError
}

// scopedKey amarra a chave do cliente ao método e rota: a mesma chave em
// /credit e /debit são operações diferentes.
func scopedKey(r *http.Request) string {
	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" {
		return ""
	}
	return r.Method + ":" + r.URL.Path + ":" + key
}

func replay(w http.ResponseWriter, cached *gateway.CachedResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderIdempotencyHit, "true")
	w.WriteHeader(cached.StatusCode)
	if _, err := w.Write(cached.Body); err != nil {
		log.Error().Err(err).Msg("Falha ao escrever resposta cacheada")
	}
}

// Idempotency devolve a resposta gravada quando o cliente repete a
// Idempotency-Key. 5xx não é gravado, o cliente pode tentar de novo.
// Com o Redis fora do ar a requisição segue sem proteção (fail open).
func Idempotency(store gateway.IdempotencyRepository, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scopedKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			cached, err := store.Get(ctx, key)
			if err != nil {
				log.Error().Err(err).Str("key", key).Msg("Falha ao buscar chave de idempotência")
				metrics.IdempotencyRequests.WithLabelValues("bypass").Inc()
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				log.Info().Str("key", key).Msg("Idempotency cache hit")
				metrics.IdempotencyRequests.WithLabelValues("replayed").Inc()
				replay(w, cached)
				return
			}

			acquired, err := store.Lock(ctx, key, inFlightTTL)
			switch {
			case err != nil:
				log.Error().Err(err).Str("key", key).Msg("Falha ao travar chave de idempotência")
			case !acquired:
				metrics.IdempotencyRequests.WithLabelValues("in_flight").Inc()
				writeConflict(w)
				return
			default:
				defer func() {
					if err := store.Unlock(ctx, key); err != nil {
						log.Error().Err(err).Str("key", key).Msg("Falha ao liberar chave de idempotência")
					}
				}()
			}

			captured := &capturedResponse{ResponseWriter: w}
			next.ServeHTTP(captured, r)
			if !captured.cacheable() {
				return
			}

			resp := gateway.CachedResponse{StatusCode: captured.status, Body: captured.body.Bytes()}
			if err := store.Save(ctx, key, resp, ttl); err != nil {
				log.Error().Err(err).Str("key", key).Msg("Falha ao salvar chave de idempotência")
				return
			}
			metrics.IdempotencyRequests.WithLabelValues("stored").Inc()
		})
	}
}

func writeConflict(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_, _ = w.Write([]byte(`{"error":"request with this idempotency key is in progress"}`))
}
