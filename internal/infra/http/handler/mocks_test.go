package handler

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/stretchr/testify/mock"
)

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Execute(ctx context.Context, input usecase.ConfirmPaymentInput) (*usecase.PaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PaymentResult), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Credit(ctx context.Context, input usecase.LedgerEntryInput) (*usecase.LedgerEntryOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.LedgerEntryOutput), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, input usecase.LedgerEntryInput) (*usecase.LedgerEntryOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.LedgerEntryOutput), args.Error(1)
}

type MockWithdrawals struct {
	mock.Mock
}

func (m *MockWithdrawals) result(args mock.Arguments) (*usecase.WithdrawalOutput, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.WithdrawalOutput), args.Error(1)
}

func (m *MockWithdrawals) Create(ctx context.Context, input usecase.CreateWithdrawalInput) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, input))
}

func (m *MockWithdrawals) Get(ctx context.Context, id string) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockWithdrawals) Approve(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, input))
}

func (m *MockWithdrawals) Reject(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, input))
}

func (m *MockWithdrawals) Cancel(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, input))
}

func (m *MockWithdrawals) Process(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error) {
	return m.result(m.Called(ctx, input))
}

type MockInvoiceCreator struct {
	mock.Mock
}

func (m *MockInvoiceCreator) Execute(ctx context.Context, input usecase.CreateInvoiceInput) (*usecase.InvoiceOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.InvoiceOutput), args.Error(1)
}

type MockInvoiceReader struct {
	mock.Mock
}

func (m *MockInvoiceReader) Execute(ctx context.Context, id string) (*usecase.InvoiceOutput, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.InvoiceOutput), args.Error(1)
}

func (m *MockInvoiceReader) AuditTrail(ctx context.Context, id string, limit int64) ([]gateway.SettlementAudit, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.SettlementAudit), args.Error(1)
}

type MockWalletPayer struct {
	mock.Mock
}

func (m *MockWalletPayer) Execute(ctx context.Context, input usecase.PayWithWalletInput) (*usecase.PaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.PaymentResult), args.Error(1)
}
