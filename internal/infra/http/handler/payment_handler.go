package handler

import (
	"context"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/usecase"
)

type PaymentConfirmer interface {
	Execute(ctx context.Context, input usecase.ConfirmPaymentInput) (*usecase.PaymentResult, error)
}

// PaymentHandler recebe as confirmações do gateway (webhook e redirect).
// Nenhuma das duas rotas confia no status enviado: sempre verificamos no gateway.
type PaymentHandler struct {
	confirm PaymentConfirmer
}

func NewPaymentHandler(confirm PaymentConfirmer) *PaymentHandler {
	return &PaymentHandler{confirm: confirm}
}

type confirmPaymentRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
	Reference string `json:"reference" validate:"required"`
}

// Webhook: POST /payments/confirm
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.execute(w, r, req)
}

// Callback: GET /payments/callback?invoice_id=&reference=
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	req := confirmPaymentRequest{
		InvoiceID: r.URL.Query().Get("invoice_id"),
		Reference: r.URL.Query().Get("reference"),
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invoice_id e reference são obrigatórios")
		return
	}
	h.execute(w, r, req)
}

func (h *PaymentHandler) execute(w http.ResponseWriter, r *http.Request, req confirmPaymentRequest) {
	res, err := h.confirm.Execute(r.Context(), usecase.ConfirmPaymentInput{
		InvoiceID: req.InvoiceID,
		Reference: req.Reference,
		Audit:     auditFrom(r),
	})
	if err != nil {
		respondDomainError(w, err, "confirm_payment")
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResponse(res))
}
