package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Invoices    *InvoiceHandler
	Payments    *PaymentHandler
	Wallets     *WalletHandler
	Withdrawals *WithdrawalHandler
}

// NewRouter monta as rotas. idempotency envolve os POSTs que o cliente pode repetir;
// o webhook fica de fora porque a confirmação já é idempotente pela referência.
func NewRouter(h Handlers, idempotency func(http.Handler) http.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer) // Evita crash se der panic
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Actor-ID"},
		ExposedHeaders:   []string{"X-Idempotency-Hit"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rota de Health Check (para o Docker saber se estamos vivos)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Falha ao escrever resposta de health check")
		}
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/payments/confirm", h.Payments.Confirm)
	router.Get("/payments/callback", h.Payments.Callback)

	router.Get("/invoices/{id}", h.Invoices.Get)
	router.Get("/invoices/{id}/audit", h.Invoices.Audit)
	router.Get("/wallets/{userID}", h.Wallets.Get)
	router.Get("/wallets/{userID}/transactions", h.Wallets.Transactions)
	router.Get("/withdrawals/{id}", h.Withdrawals.Get)

	router.Group(func(r chi.Router) {
		if idempotency != nil {
			r.Use(idempotency)
		}
		r.Post("/invoices", h.Invoices.Create)
		r.Post("/invoices/{id}/payments", h.Invoices.StartPayment)
		r.Post("/invoices/{id}/pay-with-wallet", h.Invoices.PayWithWallet)
		r.Post("/invoices/{id}/cancel", h.Invoices.Cancel)

		r.Post("/wallets", h.Wallets.Create)
		r.Post("/wallets/{userID}/credit", h.Wallets.Credit)
		r.Post("/wallets/{userID}/debit", h.Wallets.Debit)

		r.Post("/withdrawals", h.Withdrawals.Create)
		r.Post("/withdrawals/{id}/approve", h.Withdrawals.Approve)
		r.Post("/withdrawals/{id}/reject", h.Withdrawals.Reject)
		r.Post("/withdrawals/{id}/cancel", h.Withdrawals.Cancel)
		r.Post("/withdrawals/{id}/process", h.Withdrawals.Process)
	})

	return router
}
