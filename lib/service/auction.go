package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/pricing"
	"github.com/uptrace/bun"
)

// PriceInfo is the auction state exposed to callers; every read re-derives
// it from wall-clock time, there is no background price updater.
type PriceInfo struct {
	Price         money.Money   `json:"price"`
	DiscountBps   int64         `json:"discount_bps"`
	ProgressPct   int64         `json:"progress_pct"`
	TimeRemaining time.Duration `json:"time_remaining_ns"`
	IsActive      bool          `json:"is_active"`
}

// StartAuction stamps auction parameters on a verified invoice and opens it
// for funding. Parameter validation happens before anything is persisted.
func (svc *InvoicehubService) StartAuction(ctx context.Context, invoiceID, supplierID int64, durationHours int64, maxDiscountBps int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.SupplierID != supplierID {
			return unauthorizedError(CodeBadArguments, "only the supplier can start the auction for invoice %s", invoice.InvoiceNum)
		}
		if invoice.Status != common.InvoiceStatusVerified {
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s is not verified", invoice.InvoiceNum)
		}

		params, err := pricing.NewParams(invoice.FaceAmount, time.Now(), durationHours, maxDiscountBps, svc.Config.PriceDropRateBps)
		if err != nil {
			return validationError(CodeInvalidAuctionParams, "invalid auction parameters: duration %dh, max discount %d bps", durationHours, maxDiscountBps)
		}

		invoice.AuctionStart = params.AuctionStart
		invoice.AuctionEnd = params.AuctionEnd
		invoice.StartPrice = params.StartPrice
		invoice.MinPrice = params.MinPrice
		invoice.PriceDropRateBps = params.DropRateBps
		invoice.Status = common.InvoiceStatusFunding

		_, err = tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyAuctionStarted, &invoice)
	return &invoice, nil
}

// CurrentPrice evaluates the invoice's auction at now.
func (svc *InvoicehubService) CurrentPrice(invoice *models.Invoice, now time.Time) (*PriceInfo, error) {
	params := invoice.AuctionParams()
	if !params.Started() {
		return nil, stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "auction for invoice %s has not started", invoice.InvoiceNum)
	}
	quote := params.CurrentQuote(now)
	return &PriceInfo{
		Price:         quote.Price,
		DiscountBps:   quote.DiscountBps,
		ProgressPct:   quote.ProgressPct,
		TimeRemaining: quote.TimeRemaining,
		IsActive:      quote.Active,
	}, nil
}
