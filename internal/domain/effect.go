package domain

import "fmt"

type EffectKind string

const (
	EffectSellerRevenue  EffectKind = "seller_revenue.accrue"
	EffectStockReduction EffectKind = "stock.reduce"
)

// Effect é um efeito colateral pós-pagamento. Roda fora da transação que
// confirmou o pagamento e pode falhar sem desfazer nada.
type Effect struct {
	Kind      EffectKind `json:"kind"`
	InvoiceID string     `json:"invoice_id"`
	ItemID    string     `json:"item_id,omitempty"`
	ProductID string     `json:"product_id,omitempty"`
	VariantID *string    `json:"variant_id,omitempty"`
	Quantity  int32      `json:"quantity,omitempty"`
}

// Key é a chave de idempotência do efeito.
func (e Effect) Key() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s:%s", e.Kind, e.InvoiceID)
	}
	return fmt.Sprintf("%s:%s:%s", e.Kind, e.InvoiceID, e.ItemID)
}

// EffectsForPaidInvoice lista o que precisa acontecer depois que a fatura foi paga:
// um repasse de receita dos vendedores e uma baixa de estoque por item.
// Faturas de recarga de carteira não têm vendedor nem estoque.
func EffectsForPaidInvoice(inv *Invoice) []Effect {
	if !inv.IsPaid() || inv.IsWalletCharge() {
		return nil
	}
	effects := []Effect{{Kind: EffectSellerRevenue, InvoiceID: inv.ID}}
	for _, item := range inv.Items {
		if item.ProductID == "" {
			continue
		}
		effects = append(effects, Effect{
			Kind:      EffectStockReduction,
			InvoiceID: inv.ID,
			ItemID:    item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return effects
}

// SellerRevenue é a parte do vendedor de um item de fatura paga.
type SellerRevenue struct {
	InvoiceID string
	ItemID    string
	SellerID  string
	Currency  string
	Amount    int64
}

// StockReduction é uma baixa de estoque idempotente pela Key.
type StockReduction struct {
	Key       string
	ProductID string
	VariantID *string
	Quantity  int32
}
