package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type InvoiceCreator interface {
	Execute(ctx context.Context, input usecase.CreateInvoiceInput) (*usecase.InvoiceOutput, error)
}

type InvoiceReader interface {
	Execute(ctx context.Context, id string) (*usecase.InvoiceOutput, error)
	AuditTrail(ctx context.Context, id string, limit int64) ([]gateway.SettlementAudit, error)
}

type PaymentStarter interface {
	Execute(ctx context.Context, input usecase.StartPaymentInput) (*usecase.StartPaymentOutput, error)
}

type WalletPayer interface {
	Execute(ctx context.Context, input usecase.PayWithWalletInput) (*usecase.PaymentResult, error)
}

type InvoiceCanceller interface {
	Execute(ctx context.Context, input usecase.CancelInvoiceInput) (*usecase.InvoiceOutput, error)
}

// InvoiceHandler expõe o ciclo de vida da fatura via HTTP
type InvoiceHandler struct {
	create        InvoiceCreator
	read          InvoiceReader
	startPayment  PaymentStarter
	payWithWallet WalletPayer
	cancel        InvoiceCanceller
}

func NewInvoiceHandler(create InvoiceCreator, read InvoiceReader, start PaymentStarter, pay WalletPayer, cancel InvoiceCanceller) *InvoiceHandler {
	return &InvoiceHandler{
		create:        create,
		read:          read,
		startPayment:  start,
		payWithWallet: pay,
		cancel:        cancel,
	}
}

type invoiceItemRequest struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	SellerID  string  `json:"seller_id"`
	Quantity  int32   `json:"quantity" validate:"gt=0"`
	UnitPrice int64   `json:"unit_price" validate:"gte=0"`
	Discount  int64   `json:"discount" validate:"gte=0"`
}

type createInvoiceRequest struct {
	UserID            string               `json:"user_id" validate:"required"`
	Currency          string               `json:"currency" validate:"required,len=3"`
	ExternalReference string               `json:"external_reference"`
	Items             []invoiceItemRequest `json:"items" validate:"required_without=WalletCharge,dive"`
	WalletCharge      bool                 `json:"wallet_charge"`
	ChargeAmount      int64                `json:"charge_amount" validate:"gte=0"`
}

type startPaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=online_gateway bank_transfer"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// paymentResponse é o que devolvemos após confirmar ou pagar com carteira
type paymentResponse struct {
	InvoiceID         string          `json:"invoice_id"`
	Reference         string          `json:"reference"`
	TransactionStatus string          `json:"transaction_status"`
	InvoiceStatus     string          `json:"invoice_status"`
	Amount            int64           `json:"amount"`
	TrackingCode      string          `json:"tracking_code,omitempty"`
	AlreadyProcessed  bool            `json:"already_processed"`
	WalletEntryID     string          `json:"wallet_entry_id,omitempty"`
	Effects           []domain.Effect `json:"effects,omitempty"`
}

func toPaymentResponse(res *usecase.PaymentResult) paymentResponse {
	out := paymentResponse{
		InvoiceID:         res.InvoiceID,
		Reference:         res.Reference,
		TransactionStatus: string(res.TransactionStatus),
		InvoiceStatus:     string(res.InvoiceStatus),
		Amount:            res.Amount,
		TrackingCode:      res.TrackingCode,
		AlreadyProcessed:  res.AlreadyProcessed,
		Effects:           res.Effects,
	}
	if res.WalletCredit != nil {
		out.WalletEntryID = res.WalletCredit.ID
	}
	return out
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	items := make([]usecase.CreateInvoiceItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CreateInvoiceItemInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		})
	}

	output, err := h.create.Execute(r.Context(), usecase.CreateInvoiceInput{
		UserID:            req.UserID,
		Currency:          req.Currency,
		ExternalReference: req.ExternalReference,
		Items:             items,
		WalletCharge:      req.WalletCharge,
		ChargeAmount:      req.ChargeAmount,
		Audit:             auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "create_invoice")
		return
	}
	respondJSON(w, http.StatusCreated, output)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	output, err := h.read.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err, "get_invoice")
		return
	}
	respondJSON(w, http.StatusOK, output)
}

func (h *InvoiceHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	entries, err := h.read.AuditTrail(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondDomainError(w, err, "invoice_audit")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *InvoiceHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req startPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	output, err := h.startPayment.Execute(r.Context(), usecase.StartPaymentInput{
		InvoiceID: chi.URLParam(r, "id"),
		Method:    domain.PaymentMethod(req.Method),
		Amount:    req.Amount,
		Audit:     auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "start_payment")
		return
	}
	respondJSON(w, http.StatusCreated, output)
}

func (h *InvoiceHandler) PayWithWallet(w http.ResponseWriter, r *http.Request) {
	res, err := h.payWithWallet.Execute(r.Context(), usecase.PayWithWalletInput{
		InvoiceID: chi.URLParam(r, "id"),
		Audit:     auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "pay_with_wallet")
		return
	}
	status := http.StatusCreated
	if res.AlreadyProcessed {
		status = http.StatusOK
	}
	respondJSON(w, status, toPaymentResponse(res))
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	output, err := h.cancel.Execute(r.Context(), usecase.CancelInvoiceInput{
		InvoiceID: chi.URLParam(r, "id"),
		Reason:    req.Reason,
		Audit:     auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "cancel_invoice")
		return
	}
	respondJSON(w, http.StatusOK, output)
}
