package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type WalletCreator interface {
	Execute(ctx context.Context, input usecase.CreateWalletInput) (*usecase.GetWalletOutput, error)
}

type WalletReader interface {
	Execute(ctx context.Context, userID string) (*usecase.GetWalletOutput, error)
	Transactions(ctx context.Context, userID string, limit int) ([]usecase.WalletTransactionOutput, error)
}

type Ledger interface {
	Credit(ctx context.Context, input usecase.LedgerEntryInput) (*usecase.LedgerEntryOutput, error)
	Debit(ctx context.Context, input usecase.LedgerEntryInput) (*usecase.LedgerEntryOutput, error)
}

type WalletHandler struct {
	createWalletUC WalletCreator
	getWalletUC    WalletReader
	ledger         Ledger
	generator      *reference.Generator
}

func NewWalletHandler(create WalletCreator, get WalletReader, ledger Ledger, generator *reference.Generator) *WalletHandler {
	return &WalletHandler{
		createWalletUC: create,
		getWalletUC:    get,
		ledger:         ledger,
		generator:      generator,
	}
}

type createWalletRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// Reference vazia: geramos uma. Para retry seguro o cliente deve mandar a sua.
type ledgerEntryRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Reference   string `json:"reference" validate:"omitempty,max=64"`
	Description string `json:"description" validate:"max=255"`
}

type ledgerEntryResponse struct {
	ID             string `json:"id"`
	Reference      string `json:"reference"`
	Direction      string `json:"direction"`
	Amount         int64  `json:"amount"`
	BalanceAfter   int64  `json:"balance_after"`
	AlreadyApplied bool   `json:"already_applied"`
}

func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	output, err := h.createWalletUC.Execute(r.Context(), usecase.CreateWalletInput{
		UserID:   req.UserID,
		Currency: req.Currency,
		Audit:    auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "create_wallet")
		return
	}
	respondJSON(w, http.StatusCreated, output)
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	output, err := h.getWalletUC.Execute(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondDomainError(w, err, "get_wallet")
		return
	}
	respondJSON(w, http.StatusOK, output)
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	output, err := h.getWalletUC.Transactions(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		respondDomainError(w, err, "list_wallet_transactions")
		return
	}
	respondJSON(w, http.StatusOK, output)
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.entry(w, r, domain.DirectionCredit)
}

func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.entry(w, r, domain.DirectionDebit)
}

func (h *WalletHandler) entry(w http.ResponseWriter, r *http.Request, direction domain.LedgerDirection) {
	var req ledgerEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	kind, apply := reference.KindWalletDeposit, h.ledger.Credit
	if direction == domain.DirectionDebit {
		kind, apply = reference.KindWalletWithdrawal, h.ledger.Debit
	}
	ref := req.Reference
	if ref == "" {
		ref = h.generator.New(kind)
	}

	out, err := apply(r.Context(), usecase.LedgerEntryInput{
		UserID:      chi.URLParam(r, "userID"),
		Currency:    req.Currency,
		Amount:      req.Amount,
		Reference:   ref,
		Description: req.Description,
		Status:      domain.WalletTxSucceeded,
		Audit:       auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "wallet_"+string(direction))
		return
	}

	status := http.StatusCreated
	if out.AlreadyApplied {
		status = http.StatusOK
	}
	respondJSON(w, status, ledgerEntryResponse{
		ID:             out.Transaction.ID,
		Reference:      out.Transaction.Reference,
		Direction:      string(out.Transaction.Direction),
		Amount:         out.Transaction.Amount,
		BalanceAfter:   out.Transaction.BalanceAfter,
		AlreadyApplied: out.AlreadyApplied,
	})
}
