package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// FundResult carries the investment together with the ledger state it
// produced. Replayed is set when the transaction reference had already
// been applied and the call was a no-op.
type FundResult struct {
	Investment *models.Investment `json:"investment"`
	Invoice    *models.Invoice    `json:"invoice"`
	Replayed   bool               `json:"replayed"`
}

// FundInvoice applies an investor's funding request against the invoice's
// token supply.
//
// The whole read-modify-write runs under a FOR UPDATE lock on the invoice
// row, so concurrent requests against one invoice serialize and can never
// jointly overdraw tokens_remaining. The operation is idempotent per txRef:
// funding confirmation happens after an external, retryable transfer, and a
// client retry with the same reference must not double-debit.
func (svc *InvoicehubService) FundInvoice(ctx context.Context, invoiceID, investorID int64, tokenAmount money.Money, txRef string) (*FundResult, error) {
	if txRef == "" {
		// No settlement proof means we cannot dedup retries. Failing hard
		// here is deliberate: proceeding would risk double-debits later.
		return nil, externalDependencyError(CodeMissingTxRef, "funding confirmation requires a transaction reference")
	}
	if !tokenAmount.IsPositive() {
		return nil, validationError(CodeBadArguments, "token amount must be positive")
	}

	investor, err := svc.FindUser(ctx, investorID)
	if err != nil {
		return nil, err
	}
	if !investor.KycApproved {
		return nil, unauthorizedError(CodeKycRequired, "investor %s is not KYC approved", investor.Login)
	}

	result := FundResult{}
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var invoice models.Invoice
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}

		// Replay check inside the lock: a concurrent duplicate either sees
		// the committed row here or blocks on the invoice lock until the
		// first writer commits.
		var existing models.Investment
		err := tx.NewSelect().Model(&existing).Where("tx_ref = ?", txRef).Limit(1).Scan(ctx)
		if err == nil {
			result.Investment = &existing
			result.Invoice = &invoice
			result.Replayed = true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if invoice.Status != common.InvoiceStatusFunding {
			return stateConflictError(CodeInvoiceNotFundable, invoice.Status, "invoice %s is not open for funding", invoice.InvoiceNum)
		}
		now := time.Now()
		if now.After(invoice.AuctionEnd) {
			return stateConflictError(CodeAuctionEnded, invoice.Status, "auction for invoice %s has ended", invoice.InvoiceNum)
		}
		if tokenAmount.Cmp(invoice.TokensRemaining) > 0 {
			return insufficientError(CodeInsufficientTokens, invoice.TokensRemaining, "requested %s tokens, %s available", tokenAmount, invoice.TokensRemaining)
		}

		quote := invoice.AuctionParams().CurrentQuote(now)
		paymentAmount, err := tokenAmount.MulDiv(quote.Price, invoice.TotalTokens)
		if err != nil {
			return err
		}
		insuranceAmount, netAmount := PayoutSplit(paymentAmount)

		invoice.TokensSold = invoice.TokensSold.Add(tokenAmount)
		invoice.TokensRemaining, err = invoice.TokensRemaining.Sub(tokenAmount)
		if err != nil {
			return err
		}
		invoice.AmountRaised = invoice.AmountRaised.Add(netAmount)
		if invoice.TokensRemaining.IsZero() {
			invoice.Status = common.InvoiceStatusFunded
			invoice.FundedAt = bun.NullTime{Time: now}
		}
		if _, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx); err != nil {
			return err
		}

		investment := models.Investment{
			ExternalID:    uuid.NewString(),
			InvoiceID:     invoice.ID,
			InvestorID:    investorID,
			TokenAmount:   tokenAmount,
			PaymentAmount: paymentAmount,
			ClearingPrice: quote.Price,
			DiscountBps:   quote.DiscountBps,
			TxRef:         txRef,
			State:         common.InvestmentStateCompleted,
		}
		if _, err := tx.NewInsert().Model(&investment).Exec(ctx); err != nil {
			return err
		}

		payout := models.SupplierPayout{
			InvoiceID:       invoice.ID,
			InvestmentID:    investment.ID,
			GrossAmount:     paymentAmount,
			InsuranceAmount: insuranceAmount,
			NetAmount:       netAmount,
			TxRef:           txRef,
		}
		if _, err := tx.NewInsert().Model(&payout).Exec(ctx); err != nil {
			return err
		}

		result.Investment = &investment
		result.Invoice = &invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		svc.publishInvestmentEvent(ctx, events.KeyInvestmentMade, result.Investment)
		if result.Invoice.Status == common.InvoiceStatusFunded {
			svc.publishInvoiceEvent(ctx, events.KeyInvoiceFunded, result.Invoice)
		}
	}
	return &result, nil
}

func (svc *InvoicehubService) InvestmentsFor(ctx context.Context, investorID int64) ([]models.Investment, error) {
	var investments []models.Investment
	err := svc.DB.NewSelect().Model(&investments).
		Where("investor_id = ?", investorID).
		OrderExpr("id DESC").Limit(100).
		Scan(ctx)
	return investments, err
}

func (svc *InvoicehubService) InvestmentsForInvoice(ctx context.Context, invoiceID int64) ([]models.Investment, error) {
	var investments []models.Investment
	err := svc.DB.NewSelect().Model(&investments).
		Where("invoice_id = ? AND state = ?", invoiceID, common.InvestmentStateCompleted).
		OrderExpr("id ASC").
		Scan(ctx)
	return investments, err
}
