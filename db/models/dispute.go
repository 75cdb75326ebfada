package models

import (
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// Dispute : Invoice dispute Model
//
// Raising a dispute freezes the invoice in the disputed status; PriorStatus
// records what the freeze interrupted so an invalid ruling can restore it.
// A valid ruling claws all token holdings back and leaves the invoice
// frozen for good.
type Dispute struct {
	ID         int64    `json:"id" bun:",pk,autoincrement"`
	InvoiceID  int64    `json:"invoice_id" bun:",notnull"`
	Invoice    *Invoice `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	RaisedByID int64    `json:"raised_by_id" bun:",notnull"`
	RaisedBy   *User    `json:"-" bun:"rel:belongs-to,join:raised_by_id=id"`

	Reason      string `json:"reason" bun:",notnull"`
	PriorStatus string `json:"prior_status" bun:",notnull"`
	Resolution  string `json:"resolution" bun:",notnull"`

	// Tokens held across the invoice when a valid ruling clawed them back.
	ClawedTokens money.Money `json:"clawed_tokens" bun:"type:numeric,nullzero"`

	CreatedAt  time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	ResolvedAt bun.NullTime `json:"resolved_at" bun:",nullzero"`
}

// Pending reports whether the dispute is still awaiting a ruling.
func (d *Dispute) Pending() bool {
	return d.Resolution == common.DisputeResolutionPending
}
