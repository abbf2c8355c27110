package domain

import (
	"errors"
	"fmt"
)

// Categorias de erro. Os erros específicos abaixo embrulham uma delas,
// então quem chama classifica com errors.Is(err, domain.ErrConflict) etc.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrGateway           = errors.New("payment gateway unavailable")
	ErrDomainInvariant   = errors.New("domain invariant violated")
)

var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrMissingReference    = fmt.Errorf("%w: reference is required", ErrValidation)
	ErrMissingCurrency     = fmt.Errorf("%w: currency is required", ErrValidation)
	ErrCurrencyMismatch    = fmt.Errorf("%w: currency does not match wallet currency", ErrValidation)
	ErrWrongMethod         = fmt.Errorf("%w: transaction method cannot be confirmed by the gateway", ErrValidation)
	ErrInvoiceNotFound     = fmt.Errorf("invoice %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrWithdrawalNotFound  = fmt.Errorf("withdrawal request %w", ErrNotFound)
	ErrProductNotFound     = fmt.Errorf("stock item %w", ErrNotFound)
	ErrWalletLocked        = fmt.Errorf("%w: wallet is locked", ErrConflict)
	ErrInvalidTransition   = fmt.Errorf("%w: state does not permit this transition", ErrConflict)
	ErrDuplicateReference  = fmt.Errorf("%w: reference already used", ErrConflict)
	ErrConcurrentUpdate    = fmt.Errorf("%w: row was modified concurrently", ErrConflict)
	ErrIdempotencyKey      = fmt.Errorf("%w: idempotency key conflict", ErrConflict)
)

// IsRetryable indica se o chamador deve repetir a operação com a mesma referência.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGateway) || errors.Is(err, ErrConcurrentUpdate)
}
