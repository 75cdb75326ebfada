package models

import (
	"time"

	"github.com/sangini/invoicehub/lib/money"
)

// TokenTransfer : Token transfer Model
//
// Append-only fact recorded when a sell order is filled or when a holder
// moves tokens directly; seller and buyer availability are re-derived from
// these rows together with investments and open listings. OrderID is zero
// for direct transfers.
type TokenTransfer struct {
	ID         int64      `json:"id" bun:",pk,autoincrement"`
	InvoiceID  int64      `json:"invoice_id" bun:",notnull"`
	Invoice    *Invoice   `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	OrderID    int64      `json:"order_id" bun:",nullzero"`
	Order      *SellOrder `json:"-" bun:"rel:belongs-to,join:order_id=id"`
	FromUserID int64      `json:"from_user_id" bun:",notnull"`
	ToUserID   int64      `json:"to_user_id" bun:",notnull"`

	Amount        money.Money `json:"amount" bun:"type:numeric,notnull"`
	PaymentAmount money.Money `json:"payment_amount" bun:"type:numeric,notnull"`

	CreatedAt time.Time `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
