package domain

import (
	"fmt"
	"time"
)

type WithdrawalType string

const (
	WithdrawalWallet        WithdrawalType = "wallet"
	WithdrawalSellerRevenue WithdrawalType = "seller_revenue"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalProcessed WithdrawalStatus = "processed"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// PayoutDestination é para onde o dinheiro sai.
type PayoutDestination struct {
	BankName      string
	AccountHolder string
	AccountNumber string
}

// WithdrawalRequest só anda para frente: nada ressuscita um pedido
// cancelado, rejeitado ou processado.
type WithdrawalRequest struct {
	ID                  string
	Type                WithdrawalType
	Status              WithdrawalStatus
	Amount              int64
	Currency            string
	Destination         PayoutDestination
	UserID              string
	SellerID            string
	WalletTransactionID *string
	Reason              string
	ProcessedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	UpdaterID           string
}

func NewWithdrawalRequest(id string, kind WithdrawalType, ownerID string, amount int64, currency string, dest PayoutDestination, audit AuditMetadata) (*WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		return nil, ErrMissingCurrency
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if dest.AccountNumber == "" {
		return nil, fmt.Errorf("%w: payout account is required", ErrValidation)
	}

	now := audit.At()
	req := &WithdrawalRequest{
		ID:          id,
		Type:        kind,
		Status:      WithdrawalPending,
		Amount:      amount,
		Currency:    currency,
		Destination: dest,
		CreatedAt:   now,
		UpdatedAt:   now,
		UpdaterID:   audit.ActorID,
	}
	switch kind {
	case WithdrawalWallet:
		req.UserID = ownerID
	case WithdrawalSellerRevenue:
		req.SellerID = ownerID
	default:
		return nil, fmt.Errorf("%w: unknown withdrawal type %q", ErrValidation, kind)
	}
	return req, nil
}

func (r *WithdrawalRequest) IsTerminal() bool {
	switch r.Status {
	case WithdrawalRejected, WithdrawalProcessed, WithdrawalCancelled:
		return true
	}
	return false
}

func (r *WithdrawalRequest) Approve(audit AuditMetadata) error {
	if r.Status != WithdrawalPending {
		return r.transitionError(WithdrawalApproved)
	}
	r.Status = WithdrawalApproved
	r.touch(audit)
	return nil
}

func (r *WithdrawalRequest) Reject(reason string, audit AuditMetadata) error {
	if r.Status != WithdrawalPending && r.Status != WithdrawalApproved {
		return r.transitionError(WithdrawalRejected)
	}
	r.Status = WithdrawalRejected
	r.Reason = reason
	r.touch(audit)
	return nil
}

func (r *WithdrawalRequest) Cancel(reason string, audit AuditMetadata) error {
	if r.IsTerminal() {
		return r.transitionError(WithdrawalCancelled)
	}
	r.Status = WithdrawalCancelled
	r.Reason = reason
	r.touch(audit)
	return nil
}

// CanProcess: só pedido aprovado pode ser processado.
func (r *WithdrawalRequest) CanProcess() error {
	if r.Status != WithdrawalApproved {
		return r.transitionError(WithdrawalProcessed)
	}
	return nil
}

// MarkProcessed fecha o pedido, vinculando o lançamento de carteira quando houver.
func (r *WithdrawalRequest) MarkProcessed(walletTxID *string, audit AuditMetadata) error {
	if err := r.CanProcess(); err != nil {
		return err
	}
	now := audit.At()
	r.Status = WithdrawalProcessed
	r.WalletTransactionID = walletTxID
	r.ProcessedAt = &now
	r.touch(audit)
	return nil
}

func (r *WithdrawalRequest) OwnerID() string {
	if r.Type == WithdrawalSellerRevenue {
		return r.SellerID
	}
	return r.UserID
}

func (r *WithdrawalRequest) transitionError(to WithdrawalStatus) error {
	return fmt.Errorf("%w: withdrawal %s is %s, cannot become %s", ErrInvalidTransition, r.ID, r.Status, to)
}

func (r *WithdrawalRequest) touch(audit AuditMetadata) {
	r.UpdatedAt = audit.At()
	r.UpdaterID = audit.ActorID
}
