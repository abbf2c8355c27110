package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type WithdrawalService interface {
	Create(ctx context.Context, input usecase.CreateWithdrawalInput) (*usecase.WithdrawalOutput, error)
	Get(ctx context.Context, id string) (*usecase.WithdrawalOutput, error)
	Approve(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error)
	Reject(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error)
	Cancel(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error)
	Process(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error)
}

type WithdrawalHandler struct {
	withdrawals WithdrawalService
}

func NewWithdrawalHandler(withdrawals WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type createWithdrawalRequest struct {
	Type          string `json:"type" validate:"required,oneof=wallet seller_revenue"`
	OwnerID       string `json:"owner_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	BankName      string `json:"bank_name" validate:"max=120"`
	AccountHolder string `json:"account_holder" validate:"max=120"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
}

type reviewWithdrawalRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	output, err := h.withdrawals.Create(r.Context(), usecase.CreateWithdrawalInput{
		Type:     domain.WithdrawalType(req.Type),
		OwnerID:  req.OwnerID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Destination: domain.PayoutDestination{
			BankName:      req.BankName,
			AccountHolder: req.AccountHolder,
			AccountNumber: req.AccountNumber,
		},
		Audit: auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "create_withdrawal")
		return
	}
	respondJSON(w, http.StatusCreated, output)
}

func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	output, err := h.withdrawals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err, "get_withdrawal")
		return
	}
	respondJSON(w, http.StatusOK, output)
}

func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve_withdrawal", h.withdrawals.Approve)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject_withdrawal", h.withdrawals.Reject)
}

func (h *WithdrawalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "cancel_withdrawal", h.withdrawals.Cancel)
}

func (h *WithdrawalHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "process_withdrawal", h.withdrawals.Process)
}

type reviewFunc func(ctx context.Context, input usecase.ReviewWithdrawalInput) (*usecase.WithdrawalOutput, error)

func (h *WithdrawalHandler) review(w http.ResponseWriter, r *http.Request, operation string, fn reviewFunc) {
	// Corpo opcional: approve e process não precisam de motivo
	var req reviewWithdrawalRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	} else {
		_, _ = io.Copy(io.Discard, r.Body)
	}

	output, err := fn(r.Context(), usecase.ReviewWithdrawalInput{
		WithdrawalID: chi.URLParam(r, "id"),
		Reason:       req.Reason,
		Audit:        auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, operation)
		return
	}
	respondJSON(w, http.StatusOK, output)
}
