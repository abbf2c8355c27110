package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testAudit = domain.AuditMetadata{
	ActorID:   "gateway-webhook",
	Timestamp: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	IPAddress: "10.0.0.1",
}

type harness struct {
	store       *memStore
	uow         *fakeUow
	invoices    *memInvoiceRepo
	wallets     *memWalletRepo
	withdrawals *memWithdrawalRepo
	revenue     *memRevenueRepo
	stock       *memStock
	audit       *memAudit
	verifier    *MockVerifier
	dispatcher  *recordingDispatcher
	ledger      *WalletLedger
	generator   *reference.Generator
}

func newHarness() *harness {
	store := newMemStore()
	h := &harness{
		store:       store,
		uow:         &fakeUow{store: store},
		invoices:    &memInvoiceRepo{s: store},
		wallets:     &memWalletRepo{s: store},
		withdrawals: &memWithdrawalRepo{s: store},
		revenue:     &memRevenueRepo{s: store},
		stock:       newMemStock(),
		audit:       &memAudit{},
		verifier:    &MockVerifier{},
		dispatcher:  &recordingDispatcher{},
		generator:   reference.NewGenerator(),
	}
	h.ledger = NewWalletLedger(h.wallets, h.uow)
	return h
}

func (h *harness) confirmPayment() *ConfirmPaymentUseCase {
	return NewConfirmPayment(h.invoices, h.uow, h.verifier, h.ledger, h.dispatcher, nil, time.Second)
}

func (h *harness) effectRunner() *EffectRunner {
	return NewEffectRunner(h.invoices, h.revenue, h.stock, h.audit, decimal.RequireFromString("0.10"))
}

// seedInvoice grava a fatura e, se ref não for vazio, uma transação pendente do valor total.
func (h *harness) seedInvoice(t *testing.T, inv *domain.Invoice, ref string, method domain.PaymentMethod) {
	t.Helper()
	if ref != "" {
		tx := domain.NewPendingTransaction("tx-"+ref, ref, method, inv.GrandTotal, testAudit)
		require.NoError(t, inv.AddTransaction(tx, testAudit))
	}
	require.NoError(t, h.invoices.Create(context.Background(), inv))
}

func (h *harness) seedWallet(t *testing.T, userID string, balance int64) {
	t.Helper()
	require.NoError(t, h.wallets.CreateIfMissing(context.Background(), &domain.WalletAccount{
		ID:       "wallet-" + userID,
		UserID:   userID,
		Currency: "NGN",
	}))
	h.store.wallets[userID].Balance = balance
}

func (h *harness) storedInvoice(t *testing.T, id string) *domain.Invoice {
	t.Helper()
	inv, err := h.invoices.GetByID(context.Background(), id)
	require.NoError(t, err)
	return inv
}

func (h *harness) balance(t *testing.T, userID string) int64 {
	t.Helper()
	w, err := h.wallets.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

// marketplaceInvoice: 2×30000 do seller-1 e 1×40000 do seller-2, total 100000.
func marketplaceInvoice(t *testing.T, id string) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice(id, "buyer-1", "NGN", "ORDER-"+id, []domain.InvoiceItem{
		{ID: id + "-item-1", ProductID: "prod-1", SellerID: "seller-1", Quantity: 2, UnitPrice: 30000},
		{ID: id + "-item-2", ProductID: "prod-2", SellerID: "seller-2", Quantity: 1, UnitPrice: 40000},
	}, testAudit)
	require.NoError(t, err)
	return inv
}

func walletChargeInvoice(t *testing.T, id string, amount int64) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice(id, "buyer-1", "NGN", "WCH-"+id, []domain.InvoiceItem{
		{ID: id + "-item-1", Quantity: 1, UnitPrice: amount},
	}, testAudit)
	require.NoError(t, err)
	return inv
}

func succeeded(amount int64) *domain.VerificationResult {
	return &domain.VerificationResult{
		Status:       domain.VerificationSucceeded,
		Amount:       amount,
		TrackingCode: "TRK-0001",
		ProcessedAt:  testAudit.Timestamp.Add(time.Minute),
	}
}
