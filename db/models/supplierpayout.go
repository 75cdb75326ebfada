package models

import (
	"time"

	"github.com/sangini/invoicehub/lib/money"
)

// SupplierPayout : Supplier payout split Model
//
// Append-only fact recorded once per confirmed investment:
// net_amount + insurance_amount == gross_amount exactly.
type SupplierPayout struct {
	ID           int64       `json:"id" bun:",pk,autoincrement"`
	InvoiceID    int64       `json:"invoice_id" bun:",notnull"`
	Invoice      *Invoice    `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	InvestmentID int64       `json:"investment_id" bun:",notnull"`
	Investment   *Investment `json:"-" bun:"rel:belongs-to,join:investment_id=id"`

	GrossAmount     money.Money `json:"gross_amount" bun:"type:numeric,notnull"`
	InsuranceAmount money.Money `json:"insurance_amount" bun:"type:numeric,notnull"`
	NetAmount       money.Money `json:"net_amount" bun:"type:numeric,notnull"`

	TxRef     string    `json:"tx_ref" bun:",nullzero"`
	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
