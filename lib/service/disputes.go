package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// RaiseDispute freezes an invoice while the operator investigates the
// buyer's complaint. Funding, listings, fills and settlement all gate on
// the invoice status, so the disputed status alone stops every token
// movement. The status the freeze interrupted is recorded on the dispute
// so an invalid ruling can restore it.
func (svc *InvoicehubService) RaiseDispute(ctx context.Context, invoiceID, buyerID int64, reason string) (*models.Dispute, error) {
	if reason == "" {
		return nil, validationError(CodeBadArguments, "a dispute needs a reason")
	}

	var dispute models.Dispute
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.BuyerID != buyerID {
			return unauthorizedError(CodeBadArguments, "only the buyer can dispute invoice %s", invoice.InvoiceNum)
		}
		switch invoice.Status {
		case common.InvoiceStatusVerified, common.InvoiceStatusFunding,
			common.InvoiceStatusFunded, common.InvoiceStatusOverdue:
		default:
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s cannot be disputed", invoice.InvoiceNum)
		}

		dispute = models.Dispute{
			InvoiceID:   invoice.ID,
			RaisedByID:  buyerID,
			Reason:      reason,
			PriorStatus: invoice.Status,
			Resolution:  common.DisputeResolutionPending,
		}
		if _, err := tx.NewInsert().Model(&dispute).Exec(ctx); err != nil {
			return err
		}

		invoice.Status = common.InvoiceStatusDisputed
		_, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyDisputeRaised, &invoice)
	return &dispute, nil
}

// ResolveDispute is the operator's ruling on the pending dispute. A valid
// ruling claws every token holding back and leaves the invoice frozen; an
// invalid one unfreezes the invoice to the status the dispute interrupted.
func (svc *InvoicehubService) ResolveDispute(ctx context.Context, invoiceID int64, valid bool) (*models.Dispute, *models.Invoice, error) {
	var dispute models.Dispute
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.Status != common.InvoiceStatusDisputed {
			return stateConflictError(CodeNotDisputed, invoice.Status, "invoice %s is not under dispute", invoice.InvoiceNum)
		}
		err := tx.NewSelect().Model(&dispute).
			Where("invoice_id = ? AND resolution = ?", invoiceID, common.DisputeResolutionPending).
			OrderExpr("id DESC").Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError(CodeDisputeNotFound, "no pending dispute for invoice %s", invoice.InvoiceNum)
		}
		if err != nil {
			return err
		}

		if valid {
			clawed, err := svc.executeClawback(ctx, tx, &invoice)
			if err != nil {
				return err
			}
			dispute.Resolution = common.DisputeResolutionValid
			dispute.ClawedTokens = clawed
		} else {
			dispute.Resolution = common.DisputeResolutionInvalid
			invoice.Status = dispute.PriorStatus
		}
		dispute.ResolvedAt = bun.NullTime{Time: time.Now()}

		if _, err := tx.NewUpdate().Model(&dispute).WherePK().Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyDisputeResolved, &invoice)
	return &dispute, &invoice, nil
}

// executeClawback destroys every holding on the invoice: the supplier's
// unsold residual is zeroed and completed investments are voided, so the
// derived balances all come out empty. Transfer facts stay as history;
// portfolio and settlement queries exclude claw-resolved invoices.
func (svc *InvoicehubService) executeClawback(ctx context.Context, tx bun.Tx, invoice *models.Invoice) (money.Money, error) {
	holders, err := svc.holderBalances(ctx, tx, invoice)
	if err != nil {
		return money.Zero(), err
	}
	clawed := money.Zero()
	for _, tokens := range holders {
		clawed = clawed.Add(tokens)
	}

	if _, err := tx.NewUpdate().Model((*models.Investment)(nil)).
		Set("state = ?", common.InvestmentStateClawedBack).
		Where("invoice_id = ? AND state = ?", invoice.ID, common.InvestmentStateCompleted).
		Exec(ctx); err != nil {
		return money.Zero(), err
	}

	invoice.TokensSold = money.Zero()
	invoice.TokensRemaining = money.Zero()
	svc.Logger.Infof("Clawback executed for invoice_num:%s holders:%d tokens:%s", invoice.InvoiceNum, len(holders), clawed)
	return clawed, nil
}

// FindDispute returns the latest dispute raised on the invoice.
func (svc *InvoicehubService) FindDispute(ctx context.Context, invoiceID int64) (*models.Dispute, error) {
	var dispute models.Dispute
	err := svc.DB.NewSelect().Model(&dispute).
		Where("invoice_id = ?", invoiceID).
		OrderExpr("id DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(CodeDisputeNotFound, "no dispute for invoice %d", invoiceID)
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// clawedInvoiceIDs filters the given invoice ids down to those whose
// holdings were destroyed by a valid dispute ruling.
func (svc *InvoicehubService) clawedInvoiceIDs(ctx context.Context, invoiceIDs []int64) (map[int64]bool, error) {
	clawed := map[int64]bool{}
	if len(invoiceIDs) == 0 {
		return clawed, nil
	}
	var ids []int64
	err := svc.DB.NewSelect().Model((*models.Dispute)(nil)).
		Column("invoice_id").
		Where("invoice_id IN (?) AND resolution = ?", bun.In(invoiceIDs), common.DisputeResolutionValid).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		clawed[id] = true
	}
	return clawed, nil
}
