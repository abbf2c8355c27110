package domain

import (
	"time"
)

// WalletAccount é a carteira interna do usuário (uma por usuário).
// O saldo é derivado dos lançamentos: só muda via Credit/Debit.
type WalletAccount struct {
	ID        string
	UserID    string
	Currency  string
	Balance   int64
	IsLocked  bool
	Version   int32 // controle de concorrência otimista no UPDATE
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSufficientFunds valida se a carteira pode pagar antes mesmo de tocar no DB
func (w *WalletAccount) HasSufficientFunds(amount int64) bool {
	return w.Balance >= amount
}

func (w *WalletAccount) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.IsLocked {
		return ErrWalletLocked
	}
	if !w.HasSufficientFunds(amount) {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	return nil
}

func (w *WalletAccount) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.Balance += amount
	return nil
}

type LedgerDirection string

const (
	DirectionCredit LedgerDirection = "credit"
	DirectionDebit  LedgerDirection = "debit"
)

type WalletTransactionStatus string

const (
	WalletTxSucceeded WalletTransactionStatus = "succeeded"
	WalletTxPending   WalletTransactionStatus = "pending"
	WalletTxFailed    WalletTransactionStatus = "failed"
)

// WalletTransaction é um lançamento imutável da carteira.
// InvoiceID e PaymentTransactionID servem só para rastreio, não são donos.
type WalletTransaction struct {
	ID                   string
	WalletID             string
	Reference            string
	Amount               int64
	Direction            LedgerDirection
	BalanceAfter         int64
	Description          string
	Metadata             string
	InvoiceID            *string
	PaymentTransactionID *string
	Status               WalletTransactionStatus
	ActorID              string
	CreatedAt            time.Time
}

// Signed devolve o valor com sinal (débito negativo).
func (t *WalletTransaction) Signed() int64 {
	if t.Direction == DirectionDebit {
		return -t.Amount
	}
	return t.Amount
}
