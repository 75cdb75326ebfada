package models

import (
	"context"
	"time"

	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/pricing"
	"github.com/uptrace/bun"
)

// Invoice : Invoice Model
//
// An invoice owns its auction and token-supply fields exclusively; every
// status transition and token debit happens under a row lock on this record.
type Invoice struct {
	ID         int64  `json:"id" bun:",pk,autoincrement"`
	InvoiceNum string `json:"invoice_num" bun:",unique,notnull"`
	SupplierID int64  `json:"supplier_id" bun:",notnull"`
	Supplier   *User  `json:"-" bun:"rel:belongs-to,join:supplier_id=id"`
	BuyerID    int64  `json:"buyer_id" bun:",notnull"`
	Buyer      *User  `json:"-" bun:"rel:belongs-to,join:buyer_id=id"`

	FaceAmount money.Money `json:"face_amount" bun:"type:numeric,notnull"`
	Currency   string      `json:"currency" bun:",notnull,default:'USD'"`
	Status     string      `json:"status" bun:",notnull,default:'draft'"`
	DueDate    time.Time   `json:"due_date" bun:",notnull"`

	Memo          string `json:"memo,omitempty" bun:",nullzero"`
	PurchaseOrder string `json:"purchase_order,omitempty" bun:",nullzero"`
	DocumentHash  string `json:"document_hash,omitempty" bun:",nullzero"`
	TokenSymbol   string `json:"token_symbol,omitempty" bun:",nullzero"`

	// Auction parameters, populated when the supplier starts the auction.
	AuctionStart     time.Time   `json:"auction_start" bun:",nullzero"`
	AuctionEnd       time.Time   `json:"auction_end" bun:",nullzero"`
	StartPrice       money.Money `json:"start_price" bun:"type:numeric,nullzero"`
	MinPrice         money.Money `json:"min_price" bun:"type:numeric,nullzero"`
	PriceDropRateBps int64       `json:"price_drop_rate_bps" bun:",nullzero"`

	// Token supply. Invariant after auction start:
	// tokens_sold + tokens_remaining == total_tokens, all >= 0.
	TotalTokens     money.Money `json:"total_tokens" bun:"type:numeric,notnull,default:0"`
	TokensSold      money.Money `json:"tokens_sold" bun:"type:numeric,notnull,default:0"`
	TokensRemaining money.Money `json:"tokens_remaining" bun:"type:numeric,notnull,default:0"`

	// Running total of net supplier payments, and the final settlement.
	AmountRaised      money.Money `json:"amount_raised" bun:"type:numeric,notnull,default:0"`
	SettlementAmount  money.Money `json:"settlement_amount" bun:"type:numeric,nullzero"`
	RepaymentReceived money.Money `json:"repayment_received" bun:"type:numeric,nullzero"`

	CreatedAt  time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt  bun.NullTime `json:"updated_at"`
	VerifiedAt bun.NullTime `json:"verified_at"`
	FundedAt   bun.NullTime `json:"funded_at"`
	SettledAt  bun.NullTime `json:"settled_at"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// AuctionParams reconstructs the pricing parameters stamped at auction start.
func (i *Invoice) AuctionParams() pricing.Params {
	return pricing.Params{
		AuctionStart: i.AuctionStart,
		AuctionEnd:   i.AuctionEnd,
		StartPrice:   i.StartPrice,
		MinPrice:     i.MinPrice,
		DropRateBps:  i.PriceDropRateBps,
	}
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)
