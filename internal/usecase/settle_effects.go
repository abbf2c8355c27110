package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// EffectFailure é um efeito que não foi aplicado. O pagamento continua válido;
// a reconciliação usa o registro de auditoria para repetir.
type EffectFailure struct {
	Effect domain.Effect
	Err    error
}

// EffectRunner executa os efeitos pós-pagamento, cada um por conta própria:
// a falha de um não impede os outros nem desfaz a confirmação.
type EffectRunner struct {
	invoiceRepository gateway.InvoiceRepository
	revenueRepository gateway.RevenueRepository
	stockAdjuster     gateway.StockAdjuster
	auditRepository   gateway.AuditRepository
	commissionRate    decimal.Decimal
}

func NewEffectRunner(
	invoiceRepo gateway.InvoiceRepository,
	revenueRepo gateway.RevenueRepository,
	stock gateway.StockAdjuster,
	audit gateway.AuditRepository,
	commissionRate decimal.Decimal,
) *EffectRunner {
	return &EffectRunner{
		invoiceRepository: invoiceRepo,
		revenueRepository: revenueRepo,
		stockAdjuster:     stock,
		auditRepository:   audit,
		commissionRate:    commissionRate,
	}
}

func (r *EffectRunner) Run(ctx context.Context, effects []domain.Effect) []EffectFailure {
	var failures []EffectFailure
	for _, effect := range effects {
		if err := r.runOne(ctx, effect); err != nil {
			failures = append(failures, EffectFailure{Effect: effect, Err: err})
			r.recordFailure(ctx, effect, err)
			continue
		}
		metrics.Effects.WithLabelValues(string(effect.Kind), "applied").Inc()
	}
	return failures
}

func (r *EffectRunner) runOne(ctx context.Context, effect domain.Effect) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in effect %s: %v", effect.Key(), p)
		}
	}()

	switch effect.Kind {
	case domain.EffectSellerRevenue:
		return r.accrueRevenue(ctx, effect)
	case domain.EffectStockReduction:
		return r.stockAdjuster.ReduceStock(ctx, domain.StockReduction{
			Key:       effect.Key(),
			ProductID: effect.ProductID,
			VariantID: effect.VariantID,
			Quantity:  effect.Quantity,
		})
	default:
		return fmt.Errorf("%w: unknown effect kind %q", domain.ErrValidation, effect.Kind)
	}
}

func (r *EffectRunner) accrueRevenue(ctx context.Context, effect domain.Effect) error {
	invoice, err := r.invoiceRepository.GetByID(ctx, effect.InvoiceID)
	if err != nil {
		return fmt.Errorf("falha ao carregar fatura %s: %w", effect.InvoiceID, err)
	}
	if !invoice.IsPaid() {
		return fmt.Errorf("%w: invoice %s is %s", domain.ErrConflict, invoice.ID, invoice.Status)
	}

	shares := SellerShares(invoice, r.commissionRate)
	if len(shares) == 0 {
		return nil
	}
	inserted, err := r.revenueRepository.Accrue(ctx, shares)
	if err != nil {
		return fmt.Errorf("falha ao registrar receita da fatura %s: %w", invoice.ID, err)
	}
	if inserted < len(shares) {
		log.Info().Str("invoice_id", invoice.ID).Int("skipped", len(shares)-inserted).Msg("Receita já registrada para parte dos itens")
	}
	return nil
}

func (r *EffectRunner) recordFailure(ctx context.Context, effect domain.Effect, err error) {
	metrics.Effects.WithLabelValues(string(effect.Kind), "failed").Inc()
	log.Error().
		Err(err).
		Str("invoice_id", effect.InvoiceID).
		Str("effect", effect.Key()).
		Msg("Efeito pós-pagamento falhou")

	if r.auditRepository == nil {
		return
	}
	auditErr := r.auditRepository.Save(ctx, gateway.SettlementAudit{
		Event:      "effect.failed",
		InvoiceID:  effect.InvoiceID,
		Reference:  effect.Key(),
		Status:     string(effect.Kind),
		Error:      err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	if auditErr != nil {
		log.Error().Err(auditErr).Str("invoice_id", effect.InvoiceID).Msg("Falha ao gravar auditoria do efeito")
	}
}

// SellerShares calcula a parte de cada vendedor: LineTotal × (1 − comissão),
// arredondado para o centavo mais próximo.
func SellerShares(invoice *domain.Invoice, commissionRate decimal.Decimal) []domain.SellerRevenue {
	keep := decimal.NewFromInt(1).Sub(commissionRate)
	shares := make([]domain.SellerRevenue, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		if item.SellerID == "" {
			continue
		}
		amount := decimal.NewFromInt(item.LineTotal()).Mul(keep).Round(0).IntPart()
		if amount <= 0 {
			continue
		}
		shares = append(shares, domain.SellerRevenue{
			InvoiceID: invoice.ID,
			ItemID:    item.ID,
			SellerID:  item.SellerID,
			Currency:  invoice.Currency,
			Amount:    amount,
		})
	}
	return shares
}

// dispatchPaidEffects monta e entrega os efeitos de uma fatura recém paga.
// Erro de entrega só é logado: a fatura já está paga.
func dispatchPaidEffects(ctx context.Context, dispatcher gateway.EffectDispatcher, invoice *domain.Invoice) []domain.Effect {
	effects := domain.EffectsForPaidInvoice(invoice)
	if len(effects) == 0 || dispatcher == nil {
		return effects
	}
	if err := dispatcher.Dispatch(ctx, effects); err != nil {
		for _, e := range effects {
			metrics.Effects.WithLabelValues(string(e.Kind), "dispatch_failed").Inc()
		}
		log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Falha ao despachar efeitos pós-pagamento")
	}
	return effects
}

// InlineDispatcher roda os efeitos numa goroutine do próprio processo,
// com contexto novo (a requisição HTTP pode terminar antes).
type InlineDispatcher struct {
	runner  *EffectRunner
	delay   time.Duration
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewInlineDispatcher(runner *EffectRunner, delay, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineDispatcher{runner: runner, delay: delay, timeout: timeout}
}

func (d *InlineDispatcher) Dispatch(_ context.Context, effects []domain.Effect) error {
	if len(effects) == 0 {
		return nil
	}
	batch := append([]domain.Effect(nil), effects...)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.delay > 0 {
			time.Sleep(d.delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.runner.Run(ctx, batch)
	}()
	return nil
}

// Wait bloqueia até todos os lotes despachados terminarem (shutdown e testes).
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
