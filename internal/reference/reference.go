// Package reference gera números de rastreio e referências legíveis que
// servem de chave de idempotência entre tentativas.
package reference

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindPayment          Kind = "PAY"
	KindWalletDeposit    Kind = "WLDEP"
	KindWalletWithdrawal Kind = "WLWDR"
	KindWithdrawal       Kind = "WDR"
	KindWalletCharge     Kind = "WCH"
)

// namespace fixo para as referências derivadas
var namespace = uuid.MustParse("6f1c3b0e-4a8d-5c1e-9b7a-2d4e6f8a0c12")

// Generator produz referências únicas. É seguro para uso concorrente.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// New gera KIND-<ULID>. ULIDs são ordenáveis e monotônicos dentro do mesmo milissegundo.
func (g *Generator) New(kind Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return fmt.Sprintf("%s-%s", kind, id.String())
}

// TrackingNumber gera um número de rastreio numérico de 16 dígitos:
// 10 dígitos de segundos Unix + 6 aleatórios.
func (g *Generator) TrackingNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to read random tracking suffix: %w", err)
	}
	return fmt.Sprintf("%010d%06d", g.now().Unix()%10_000_000_000, n.Int64()), nil
}

// Derive devolve sempre a mesma referência para as mesmas partes.
// Usado quando uma operação repetida precisa cair no mesmo lançamento.
func Derive(kind Kind, parts ...string) string {
	id := uuid.NewSHA1(namespace, []byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s-%s", kind, strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")))
}

// HasKind verifica se a referência foi gerada para o tipo informado.
func HasKind(ref string, kind Kind) bool {
	return strings.HasPrefix(ref, string(kind)+"-")
}

// Prefixos de referência externa das faturas de recarga de carteira.
const (
	WalletChargePrefix      = "WALLET_CHARGE_"
	WalletChargeShortPrefix = string(KindWalletCharge) + "-"
)

// IsWalletCharge diz se a referência externa marca uma recarga de carteira.
func IsWalletCharge(externalRef string) bool {
	return strings.HasPrefix(externalRef, WalletChargePrefix) ||
		strings.HasPrefix(externalRef, WalletChargeShortPrefix)
}
