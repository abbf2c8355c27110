package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// ErrorResponse é o corpo de erro da API.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

var validate = validator.New()

// Helpers para resposta JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Falha ao codificar resposta JSON")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// decodeAndValidate lê o JSON e aplica as tags `validate`. Responde 400 e
// devolve false se algo estiver errado.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Payload inválido")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "Payload inválido", Details: map[string]string{}}
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fe := range validationErrors {
				resp.Details[fe.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", fe.Tag())
			}
		}
		respondJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// StatusFor mapeia as categorias de erro de domínio para HTTP.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError traduz o erro. 500 é logado e não expõe a mensagem interna.
func respondDomainError(w http.ResponseWriter, err error, operation string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("operation", operation).Msg("Erro interno")
		respondError(w, status, "Erro interno do servidor")
		return
	}
	if status == http.StatusServiceUnavailable {
		log.Warn().Err(err).Str("operation", operation).Msg("Gateway indisponível")
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Retryable: domain.IsRetryable(err)})
}

// auditFrom monta os metadados de auditoria da requisição.
// O ator vem do header X-Actor-ID (autenticação fica no gateway de borda).
func auditFrom(r *http.Request) domain.AuditMetadata {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return domain.AuditMetadata{
		ActorID:   r.Header.Get("X-Actor-ID"),
		Timestamp: time.Now().UTC(),
		IPAddress: ip,
	}
}
