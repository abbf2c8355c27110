// Package bank consulta o processador de pagamentos sobre uma referência.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"golang.org/x/time/rate"
)

type verifyResponse struct {
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	TrackingCode string    `json:"tracking_code"`
	ProcessedAt  time.Time `json:"processed_at"`
	Message      string    `json:"message"`
}

// Verifier implementa gateway.PaymentVerifier via GET {base}/payments/{reference}.
// Qualquer resposta que não seja 200 é tratada como indisponibilidade (retentável).
type Verifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewVerifier(baseURL, apiKey string, rps float64, burst int) *Verifier {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &Verifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (v *Verifier) Verify(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/payments/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: gateway answered %d: %s", domain.ErrGateway, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid gateway payload: %v", domain.ErrGateway, err)
	}

	return &domain.VerificationResult{
		Status:       normalizeStatus(out.Status),
		Amount:       out.Amount,
		TrackingCode: out.TrackingCode,
		ProcessedAt:  out.ProcessedAt,
		Message:      out.Message,
	}, nil
}

// normalizeStatus traduz os nomes que os processadores usam. Desconhecido vira pending.
func normalizeStatus(s string) domain.VerificationStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded", "success", "paid", "completed", "approved":
		return domain.VerificationSucceeded
	case "failed", "declined", "rejected", "cancelled", "canceled", "expired":
		return domain.VerificationFailed
	default:
		return domain.VerificationPending
	}
}
