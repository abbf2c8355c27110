package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/metrics"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/rs/zerolog/log"
)

const settlementExchange = "settlement_events"

// ConfirmPaymentInput chega do webhook/poll do gateway.
type ConfirmPaymentInput struct {
	InvoiceID string
	Reference string
	Audit     domain.AuditMetadata
}

// PaymentResult descreve o estado depois da confirmação.
type PaymentResult struct {
	InvoiceID         string
	Reference         string
	TransactionStatus domain.TransactionStatus
	InvoiceStatus     domain.InvoiceStatus
	Amount            int64
	TrackingCode      string
	AlreadyProcessed  bool
	WalletCredit      *domain.WalletTransaction
	Effects           []domain.Effect
}

// ConfirmPaymentUseCase é o orquestrador da saga de confirmação: uma transição
// autoritativa (transação + fatura) e depois efeitos que podem falhar sozinhos.
type ConfirmPaymentUseCase struct {
	invoiceRepository  gateway.InvoiceRepository
	transactionManager gateway.TransactionManager
	verifier           gateway.PaymentVerifier
	ledger             *WalletLedger
	dispatcher         gateway.EffectDispatcher
	eventPublisher     gateway.EventPublisher
	verifyTimeout      time.Duration
}

func NewConfirmPayment(
	invoiceRepo gateway.InvoiceRepository,
	txManager gateway.TransactionManager,
	verifier gateway.PaymentVerifier,
	ledger *WalletLedger,
	dispatcher gateway.EffectDispatcher,
	publisher gateway.EventPublisher,
	verifyTimeout time.Duration,
) *ConfirmPaymentUseCase {
	if verifyTimeout <= 0 {
		verifyTimeout = 15 * time.Second
	}
	return &ConfirmPaymentUseCase{
		invoiceRepository:  invoiceRepo,
		transactionManager: txManager,
		verifier:           verifier,
		ledger:             ledger,
		dispatcher:         dispatcher,
		eventPublisher:     publisher,
		verifyTimeout:      verifyTimeout,
	}
}

func (u *ConfirmPaymentUseCase) Execute(ctx context.Context, input ConfirmPaymentInput) (*PaymentResult, error) {
	if input.InvoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrValidation)
	}
	if input.Reference == "" {
		return nil, domain.ErrMissingReference
	}

	// Leitura sem trava: nenhum lock fica preso durante a chamada ao gateway.
	invoice, err := u.invoiceRepository.GetByID(ctx, input.InvoiceID)
	if err != nil {
		return nil, u.reject(fmt.Errorf("falha ao carregar fatura %s: %w", input.InvoiceID, err))
	}
	tx, err := invoice.FindTransaction(input.Reference)
	if err != nil {
		return nil, u.reject(err)
	}
	if !tx.Method.IsGateway() {
		return nil, u.reject(fmt.Errorf("%w: %s is a %s transaction", domain.ErrWrongMethod, tx.Reference, tx.Method))
	}
	if tx.IsTerminal() {
		metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		return resultFrom(invoice, tx, true), nil
	}

	verification, err := u.verify(ctx, input.Reference)
	if err != nil {
		metrics.PaymentConfirmations.WithLabelValues("retryable").Inc()
		return nil, err
	}

	var (
		changed      bool
		walletCredit *domain.WalletTransaction
		committed    *domain.Invoice
	)
	err = u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		invoiceRepoTx := u.invoiceRepository.WithTx(gateway.TxFromContext(contextWithTx))

		// Lock na fatura (SELECT ... FOR UPDATE): confirmações da mesma fatura serializam aqui
		locked, err := invoiceRepoTx.GetByIDForUpdate(contextWithTx, input.InvoiceID)
		if err != nil {
			return fmt.Errorf("falha ao travar fatura %s: %w", input.InvoiceID, err)
		}

		// changed=false: outra confirmação chegou primeiro, nada a fazer
		changed, err = locked.UpdateTransaction(input.Reference, *verification, input.Audit)
		if err != nil {
			return err
		}
		committed = locked
		if !changed {
			return nil
		}
		if err := locked.CheckInvariants(); err != nil {
			return err
		}
		if err := invoiceRepoTx.Save(contextWithTx, locked); err != nil {
			return fmt.Errorf("falha ao salvar fatura %s: %w", locked.ID, err)
		}

		// Recarga de carteira: crédito síncrono na mesma transação (fatura travada antes da carteira)
		lockedTx, _ := locked.FindTransaction(input.Reference)
		if locked.IsWalletCharge() && lockedTx.Status == domain.TransactionSucceeded {
			credit, err := u.creditWalletCharge(contextWithTx, locked, lockedTx, input.Audit)
			if err != nil {
				return err
			}
			walletCredit = credit
		}
		return nil
	})
	if err != nil {
		return nil, u.reject(err)
	}

	committedTx, _ := committed.FindTransaction(input.Reference)
	if !changed {
		metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		return resultFrom(committed, committedTx, true), nil
	}

	result := resultFrom(committed, committedTx, false)
	result.WalletCredit = walletCredit
	publishPayment(ctx, u.eventPublisher, committed, committedTx, input.Audit)

	if committedTx.Status != domain.TransactionSucceeded {
		metrics.PaymentConfirmations.WithLabelValues("failed").Inc()
		return result, nil
	}

	// Depois do commit: relê a fatura e dispara os efeitos fora da trava
	current, err := u.invoiceRepository.GetByID(ctx, input.InvoiceID)
	if err != nil {
		log.Warn().Err(err).Str("invoice_id", input.InvoiceID).Msg("Falha ao reler fatura após commit, usando estado confirmado")
		current = committed
	}
	result.InvoiceStatus = current.Status
	if current.IsPaid() {
		metrics.PaymentConfirmations.WithLabelValues("paid").Inc()
		result.Effects = dispatchPaidEffects(ctx, u.dispatcher, current)
	} else {
		metrics.PaymentConfirmations.WithLabelValues("succeeded").Inc()
	}

	log.Info().
		Str("invoice_id", input.InvoiceID).
		Str("reference", input.Reference).
		Str("invoice_status", string(result.InvoiceStatus)).
		Int("effects", len(result.Effects)).
		Msg("Pagamento confirmado")
	return result, nil
}

// verify chama o gateway com timeout. Timeout e erro de transporte são retentáveis:
// nunca marcamos a transação como falha sem resposta do gateway.
func (u *ConfirmPaymentUseCase) verify(ctx context.Context, ref string) (*domain.VerificationResult, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, u.verifyTimeout)
	defer cancel()

	started := time.Now()
	result, err := u.verifier.Verify(verifyCtx, ref)
	metrics.GatewayVerifyDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrGateway) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: verify %s: %v", domain.ErrGateway, ref, err)
	}
	if result == nil || result.Status == domain.VerificationPending || result.Status == "" {
		return nil, fmt.Errorf("%w: payment %s not settled yet", domain.ErrGateway, ref)
	}
	return result, nil
}

func (u *ConfirmPaymentUseCase) creditWalletCharge(ctx context.Context, invoice *domain.Invoice, tx *domain.Transaction, audit domain.AuditMetadata) (*domain.WalletTransaction, error) {
	invoiceID, txID := invoice.ID, tx.ID
	var processedAt time.Time
	if tx.ProcessedAt != nil {
		processedAt = *tx.ProcessedAt
	}

	out, err := u.ledger.Credit(ctx, LedgerEntryInput{
		UserID:               invoice.UserID,
		Currency:             invoice.Currency,
		Amount:               tx.Amount,
		Reference:            reference.Derive(reference.KindWalletDeposit, invoice.ID, tx.Reference),
		Description:          "Wallet charge " + invoice.ExternalReference,
		Metadata:             "INVOICE:" + invoice.ID,
		InvoiceID:            &invoiceID,
		PaymentTransactionID: &txID,
		Status:               domain.WalletTxSucceeded,
		Timestamp:            processedAt,
		Audit:                audit,
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao creditar recarga da fatura %s: %w", invoice.ID, err)
	}
	return out.Transaction, nil
}

// publishPayment publica o resultado depois do commit.
func publishPayment(ctx context.Context, publisher gateway.EventPublisher, invoice *domain.Invoice, tx *domain.Transaction, audit domain.AuditMetadata) {
	if publisher == nil {
		return
	}
	routingKey := "payment.confirmed"
	if tx.Status == domain.TransactionFailed {
		routingKey = "payment.failed"
	}
	event := SettlementEvent{
		Event:     routingKey,
		InvoiceID: invoice.ID,
		Reference: tx.Reference,
		Amount:    tx.Amount,
		Status:    string(invoice.Status),
		ActorID:   audit.ActorID,
		IPAddress: audit.IPAddress,
		At:        audit.At(),
	}
	if err := publisher.Publish(ctx, settlementExchange, routingKey, event); err != nil {
		// Apenas logamos o erro, o pagamento já está confirmado
		log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Falha ao publicar evento de pagamento")
	}
}

func (u *ConfirmPaymentUseCase) reject(err error) error {
	if domain.IsRetryable(err) {
		metrics.PaymentConfirmations.WithLabelValues("retryable").Inc()
	} else {
		metrics.PaymentConfirmations.WithLabelValues("rejected").Inc()
	}
	return err
}

func resultFrom(invoice *domain.Invoice, tx *domain.Transaction, already bool) *PaymentResult {
	return &PaymentResult{
		InvoiceID:         invoice.ID,
		Reference:         tx.Reference,
		TransactionStatus: tx.Status,
		InvoiceStatus:     invoice.Status,
		Amount:            tx.Amount,
		TrackingCode:      tx.TrackingCode,
		AlreadyProcessed:  already,
	}
}

// SettlementEvent é o corpo publicado no exchange de liquidação.
type SettlementEvent struct {
	Event     string    `json:"event"`
	InvoiceID string    `json:"invoice_id,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	ActorID   string    `json:"actor_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	At        time.Time `json:"occurred_at"`
}
