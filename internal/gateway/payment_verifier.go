package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
)

// PaymentVerifier consulta o banco/processador sobre uma referência.
// Erro de transporte ou timeout deve ser tratado como retentável pelo chamador.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*domain.VerificationResult, error)
}
