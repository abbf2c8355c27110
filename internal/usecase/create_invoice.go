package usecase

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/domain"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/reference"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CreateInvoiceItemInput struct {
	ProductID string
	VariantID *string
	SellerID  string
	Quantity  int32
	UnitPrice int64 // centavos
	Discount  int64
}

// CreateInvoiceInput: com WalletCharge=true a fatura é uma recarga de carteira
// de ChargeAmount e os itens são ignorados.
type CreateInvoiceInput struct {
	UserID            string
	Currency          string
	ExternalReference string
	Items             []CreateInvoiceItemInput
	WalletCharge      bool
	ChargeAmount      int64
	Audit             domain.AuditMetadata
}

type CreateInvoiceUseCase struct {
	invoiceRepository  gateway.InvoiceRepository
	transactionManager gateway.TransactionManager
	generator          *reference.Generator
}

func NewCreateInvoice(invoiceRepo gateway.InvoiceRepository, txManager gateway.TransactionManager, generator *reference.Generator) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{
		invoiceRepository:  invoiceRepo,
		transactionManager: txManager,
		generator:          generator,
	}
}

func (u *CreateInvoiceUseCase) Execute(ctx context.Context, input CreateInvoiceInput) (*InvoiceOutput, error) {
	externalRef := input.ExternalReference
	var items []domain.InvoiceItem

	if input.WalletCharge {
		if input.ChargeAmount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		externalRef = u.generator.New(reference.KindWalletCharge)
		items = []domain.InvoiceItem{{
			ID:        uuid.NewString(),
			Quantity:  1,
			UnitPrice: input.ChargeAmount,
		}}
	} else {
		items = make([]domain.InvoiceItem, 0, len(input.Items))
		for _, in := range input.Items {
			items = append(items, domain.InvoiceItem{
				ID:        uuid.NewString(),
				ProductID: in.ProductID,
				VariantID: in.VariantID,
				SellerID:  in.SellerID,
				Quantity:  in.Quantity,
				UnitPrice: in.UnitPrice,
				Discount:  in.Discount,
			})
		}
	}

	invoice, err := domain.NewInvoice(uuid.NewString(), input.UserID, input.Currency, externalRef, items, input.Audit)
	if err != nil {
		return nil, err
	}
	// Recarga só pode vir do fluxo acima, nunca de uma referência informada pelo cliente
	if !input.WalletCharge && invoice.IsWalletCharge() {
		return nil, fmt.Errorf("%w: external reference uses a reserved prefix", domain.ErrValidation)
	}

	// Fatura e itens entram juntos ou nada entra
	err = u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		invoiceRepoTx := u.invoiceRepository.WithTx(gateway.TxFromContext(contextWithTx))
		return invoiceRepoTx.Create(contextWithTx, invoice)
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao criar fatura: %w", err)
	}

	log.Info().
		Str("invoice_id", invoice.ID).
		Int64("grand_total", invoice.GrandTotal).
		Bool("wallet_charge", invoice.IsWalletCharge()).
		Msg("Fatura criada")
	return toInvoiceOutput(invoice), nil
}
