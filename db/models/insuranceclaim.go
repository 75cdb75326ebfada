package models

import (
	"time"

	"github.com/sangini/invoicehub/lib/money"
)

// InsuranceClaim : Insurance claim Model
//
// Append-only; the unique (invoice_id, investor_id) index enforces the
// once-per-holding claim rule.
type InsuranceClaim struct {
	ID         int64    `json:"id" bun:",pk,autoincrement"`
	InvoiceID  int64    `json:"invoice_id" bun:",notnull,unique:claim_invoice_investor"`
	Invoice    *Invoice `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	InvestorID int64    `json:"investor_id" bun:",notnull,unique:claim_invoice_investor"`
	Investor   *User    `json:"-" bun:"rel:belongs-to,join:investor_id=id"`

	ClaimAmount money.Money `json:"claim_amount" bun:"type:numeric,notnull"`
	CreatedAt   time.Time   `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
