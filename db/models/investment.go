package models

import (
	"context"
	"time"

	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// Investment : Investment Model
//
// One row per token purchase during the funding auction. The row is created
// inside the same transaction as the token debit and is immutable once the
// state reaches completed. TxRef carries the external settlement proof and
// is the idempotency key for funding confirmations.
type Investment struct {
	ID         int64    `json:"id" bun:",pk,autoincrement"`
	ExternalID string   `json:"external_id" bun:",unique,notnull"`
	InvoiceID  int64    `json:"invoice_id" bun:",notnull"`
	Invoice    *Invoice `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	InvestorID int64    `json:"investor_id" bun:",notnull"`
	Investor   *User    `json:"-" bun:"rel:belongs-to,join:investor_id=id"`

	TokenAmount   money.Money `json:"token_amount" bun:"type:numeric,notnull"`
	PaymentAmount money.Money `json:"payment_amount" bun:"type:numeric,notnull"`
	ClearingPrice money.Money `json:"clearing_price" bun:"type:numeric,notnull"`
	DiscountBps   int64       `json:"discount_bps" bun:",nullzero"`

	TxRef string `json:"tx_ref" bun:",unique,notnull"`
	State string `json:"state" bun:",notnull,default:'pending'"`

	SettledAmount money.Money  `json:"settled_amount" bun:"type:numeric,nullzero"`
	SettledAt     bun.NullTime `json:"settled_at"`
	CreatedAt     time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime `json:"updated_at"`
}

func (inv *Investment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		inv.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Investment)(nil)
