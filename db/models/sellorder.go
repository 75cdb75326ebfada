package models

import (
	"context"
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// SellOrder : Secondary-market sell order Model
//
// Owned by its seller, mutated only by fill and cancel operations.
// Invariant: tokens_remaining <= token_amount, decremented only by fills.
type SellOrder struct {
	ID        int64    `json:"id" bun:",pk,autoincrement"`
	OrderNum  string   `json:"order_num" bun:",unique,notnull"`
	InvoiceID int64    `json:"invoice_id" bun:",notnull"`
	Invoice   *Invoice `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	SellerID  int64    `json:"seller_id" bun:",notnull"`
	Seller    *User    `json:"-" bun:"rel:belongs-to,join:seller_id=id"`

	TokenAmount     money.Money `json:"token_amount" bun:"type:numeric,notnull"`
	PricePerToken   money.Money `json:"price_per_token" bun:"type:numeric,notnull"`
	TokensRemaining money.Money `json:"tokens_remaining" bun:"type:numeric,notnull"`
	State           string      `json:"state" bun:",notnull,default:'open'"`

	CreatedAt time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt bun.NullTime `json:"updated_at"`
}

func (o *SellOrder) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		o.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// Terminal reports whether the order can no longer be filled or cancelled.
func (o *SellOrder) Terminal() bool {
	return o.State == common.OrderStateFilled || o.State == common.OrderStateCancelled
}

var _ bun.BeforeAppendModelHook = (*SellOrder)(nil)
