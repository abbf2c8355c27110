package usecase

import (
	"context"
	"testing"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	h := newHarness()
	uc := NewCreateInvoice(h.invoices, h.uow, h.generator)

	t.Run("computes grand total", func(t *testing.T) {
		out, err := uc.Execute(context.Background(), CreateInvoiceInput{
			UserID:   "buyer-1",
			Currency: "NGN",
			Items: []CreateInvoiceItemInput{
				{ProductID: "prod-1", SellerID: "seller-1", Quantity: 2, UnitPrice: 30000},
				{ProductID: "prod-2", SellerID: "seller-2", Quantity: 1, UnitPrice: 45000, Discount: 5000},
			},
			Audit: testAudit,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(100000), out.GrandTotal)
		assert.Equal(t, string(domain.InvoiceDraft), out.Status)
		assert.Len(t, out.Items, 2)
		assert.Equal(t, int64(40000), out.Items[1].LineTotal)
	})

	t.Run("wallet charge gets generated reference", func(t *testing.T) {
		out, err := uc.Execute(context.Background(), CreateInvoiceInput{
			UserID:       "buyer-1",
			Currency:     "NGN",
			WalletCharge: true,
			ChargeAmount: 25000,
			Audit:        testAudit,
		})
		require.NoError(t, err)
		assert.True(t, reference.HasKind(out.ExternalReference, reference.KindWalletCharge))
		assert.Equal(t, int64(25000), out.GrandTotal)
		assert.True(t, h.storedInvoice(t, out.ID).IsWalletCharge())
	})

	t.Run("client cannot forge a wallet charge", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), CreateInvoiceInput{
			UserID:            "buyer-1",
			Currency:          "NGN",
			ExternalReference: domain.WalletChargePrefix + "123",
			Items:             []CreateInvoiceItemInput{{ProductID: "p", Quantity: 1, UnitPrice: 100}},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("needs items", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), CreateInvoiceInput{UserID: "buyer-1", Currency: "NGN"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestStartPayment(t *testing.T) {
	h := newHarness()
	h.seedInvoice(t, marketplaceInvoice(t, "inv-1"), "", "")
	uc := NewStartPayment(h.invoices, h.uow, h.generator)

	_, err := uc.Execute(context.Background(), StartPaymentInput{InvoiceID: "inv-1", Method: domain.MethodWallet})
	assert.ErrorIs(t, err, domain.ErrWrongMethod)

	_, err = uc.Execute(context.Background(), StartPaymentInput{InvoiceID: "inv-1", Method: domain.MethodOnlineGateway, Amount: 100001})
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := uc.Execute(context.Background(), StartPaymentInput{InvoiceID: "inv-1", Method: domain.MethodOnlineGateway, Audit: testAudit})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), out.Amount)
	assert.True(t, reference.HasKind(out.Reference, reference.KindPayment))
	assert.Equal(t, string(domain.InvoicePending), out.InvoiceStatus)

	// a nova referência é confirmável pelo gateway
	h.verifier.On("Verify", mock.Anything, out.Reference).Return(succeeded(100000), nil)
	result, err := h.confirmPayment().Execute(context.Background(), ConfirmPaymentInput{InvoiceID: "inv-1", Reference: out.Reference, Audit: testAudit})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, result.InvoiceStatus)

	_, err = uc.Execute(context.Background(), StartPaymentInput{InvoiceID: "inv-1", Method: domain.MethodOnlineGateway, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancelInvoice(t *testing.T) {
	h := newHarness()
	h.seedInvoice(t, marketplaceInvoice(t, "inv-open"), "PAY-1", domain.MethodOnlineGateway)
	paidInvoice(t, h, "inv-paid")
	uc := NewCancelInvoice(h.invoices, h.uow, nil)

	out, err := uc.Execute(context.Background(), CancelInvoiceInput{InvoiceID: "inv-open", Reason: "out of stock", Audit: testAudit})
	require.NoError(t, err)
	assert.Equal(t, string(domain.InvoiceCancelled), out.Status)
	assert.Equal(t, "out of stock", out.CancelReason)

	_, err = uc.Execute(context.Background(), CancelInvoiceInput{InvoiceID: "inv-paid", Reason: "changed mind", Audit: testAudit})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.InvoicePaid, h.storedInvoice(t, "inv-paid").Status)
}

func TestGetInvoice(t *testing.T) {
	h := newHarness()
	paidInvoice(t, h, "inv-1")
	require.NoError(t, h.audit.Save(context.Background(), auditEntry("inv-1", "payment.confirmed")))
	require.NoError(t, h.audit.Save(context.Background(), auditEntry("inv-2", "payment.confirmed")))

	uc := NewGetInvoice(h.invoices, h.audit)
	out, err := uc.Execute(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), out.PaidAmount)
	assert.Len(t, out.Transactions, 1)

	trail, err := uc.AuditTrail(context.Background(), "inv-1", 0)
	require.NoError(t, err)
	assert.Len(t, trail, 1)

	_, err = uc.Execute(context.Background(), "inv-404")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	empty, err := NewGetInvoice(h.invoices, nil).AuditTrail(context.Background(), "inv-1", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
