package domain

import "time"

type PaymentMethod string

const (
	MethodOnlineGateway PaymentMethod = "online_gateway"
	MethodBankTransfer  PaymentMethod = "bank_transfer"
	MethodWallet        PaymentMethod = "wallet"
)

// IsGateway diz se a transação é confirmada pelo banco/processador.
// Uma referência de débito em carteira nunca pode confirmar pagamento bancário.
func (m PaymentMethod) IsGateway() bool {
	return m == MethodOnlineGateway || m == MethodBankTransfer
}

func (m PaymentMethod) Valid() bool {
	return m.IsGateway() || m == MethodWallet
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction é uma tentativa de pagamento de uma fatura.
type Transaction struct {
	ID           string
	InvoiceID    string
	Reference    string
	Method       PaymentMethod
	Status       TransactionStatus
	Amount       int64
	TrackingCode string
	Message      string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UpdaterID    string
}

func NewPendingTransaction(id, reference string, method PaymentMethod, amount int64, audit AuditMetadata) *Transaction {
	now := audit.At()
	return &Transaction{
		ID:        id,
		Reference: reference,
		Method:    method,
		Status:    TransactionPending,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
		UpdaterID: audit.ActorID,
	}
}

func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionSucceeded || t.Status == TransactionFailed
}

func (t *Transaction) markSucceeded(result VerificationResult, audit AuditMetadata) {
	processedAt := result.ProcessedAt
	if processedAt.IsZero() {
		processedAt = audit.At()
	}
	t.Status = TransactionSucceeded
	if result.Amount > 0 {
		t.Amount = result.Amount
	}
	t.TrackingCode = result.TrackingCode
	t.Message = result.Message
	t.ProcessedAt = &processedAt
	t.UpdatedAt = audit.At()
	t.UpdaterID = audit.ActorID
}

func (t *Transaction) markFailed(message string, audit AuditMetadata) {
	now := audit.At()
	t.Status = TransactionFailed
	t.Message = message
	t.ProcessedAt = &now
	t.UpdatedAt = now
	t.UpdaterID = audit.ActorID
}

type VerificationStatus string

const (
	VerificationSucceeded VerificationStatus = "succeeded"
	VerificationFailed    VerificationStatus = "failed"
	VerificationPending   VerificationStatus = "pending"
)

// VerificationResult é a resposta do banco/processador para uma referência.
type VerificationResult struct {
	Status       VerificationStatus
	Amount       int64
	TrackingCode string
	ProcessedAt  time.Time
	Message      string
}
