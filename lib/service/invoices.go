package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// ResolveMatch tags how an invoice reference was resolved.
type ResolveMatch string

const (
	MatchPrimaryID ResolveMatch = "primary_id"
	MatchAlias     ResolveMatch = "alias"
	MatchNone      ResolveMatch = "none"
)

func (svc *InvoicehubService) MintDraft(ctx context.Context, supplierID, buyerID int64, faceAmount money.Money, currency string, dueDate time.Time, memo, purchaseOrder, documentHash string) (*models.Invoice, error) {
	if !faceAmount.IsPositive() {
		return nil, validationError(CodeBadArguments, "invoice amount must be positive")
	}
	if !dueDate.After(time.Now()) {
		return nil, validationError(CodeBadArguments, "due date must be in the future")
	}

	invoice := models.Invoice{
		InvoiceNum:    generateInvoiceNum(),
		SupplierID:    supplierID,
		BuyerID:       buyerID,
		FaceAmount:    faceAmount,
		Currency:      currency,
		Status:        common.InvoiceStatusDraft,
		DueDate:       dueDate,
		Memo:          memo,
		PurchaseOrder: purchaseOrder,
		DocumentHash:  documentHash,
	}
	_, err := svc.DB.NewInsert().Model(&invoice).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ApproveInvoice is the buyer's acceptance of a draft. Tokens are minted
// 1:1 against the face amount; the supplier implicitly holds the full
// unsold allocation until investors buy in.
func (svc *InvoicehubService) ApproveInvoice(ctx context.Context, invoiceID, buyerID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.BuyerID != buyerID {
			return unauthorizedError(CodeBadArguments, "only the buyer can approve invoice %s", invoice.InvoiceNum)
		}
		if invoice.Status != common.InvoiceStatusDraft {
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s is not awaiting approval", invoice.InvoiceNum)
		}

		invoice.Status = common.InvoiceStatusVerified
		invoice.VerifiedAt = bun.NullTime{Time: time.Now()}
		invoice.TokenSymbol = "SNG-" + invoice.InvoiceNum
		invoice.TotalTokens = invoice.FaceAmount
		invoice.TokensSold = money.Zero()
		invoice.TokensRemaining = invoice.FaceAmount

		_, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyInvoiceVerified, &invoice)
	return &invoice, nil
}

// ResolveInvoice looks an invoice up by primary id or by its external
// alias, tagging which one matched so call sites don't repeat ad hoc
// fallback chains.
func (svc *InvoicehubService) ResolveInvoice(ctx context.Context, ref string) (*models.Invoice, ResolveMatch, error) {
	var invoice models.Invoice
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		err = svc.DB.NewSelect().Model(&invoice).Where("id = ?", id).Limit(1).Scan(ctx)
		if err == nil {
			return &invoice, MatchPrimaryID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, MatchNone, err
		}
	}
	err := svc.DB.NewSelect().Model(&invoice).Where("invoice_num = ?", ref).Limit(1).Scan(ctx)
	if err == nil {
		return &invoice, MatchAlias, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, MatchNone, notFoundError(CodeInvoiceNotFound, "invoice %s not found", ref)
	}
	return nil, MatchNone, err
}

func (svc *InvoicehubService) FindInvoice(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := svc.DB.NewSelect().Model(&invoice).Where("id = ?", invoiceID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(CodeInvoiceNotFound, "invoice %d not found", invoiceID)
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// VerifyDocument reports whether the presented hash matches the one the
// invoice was minted with. The hash is an opaque string; nothing is stored
// or fetched, this is a pure equality check.
func (svc *InvoicehubService) VerifyDocument(ctx context.Context, invoiceID int64, documentHash string) (bool, error) {
	invoice, err := svc.FindInvoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	return invoice.DocumentHash != "" && invoice.DocumentHash == documentHash, nil
}

func (svc *InvoicehubService) InvoicesForSupplier(ctx context.Context, supplierID int64) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := svc.DB.NewSelect().Model(&invoices).Where("supplier_id = ?", supplierID).OrderExpr("id DESC").Limit(100).Scan(ctx)
	return invoices, err
}

// RevokeInvoice withdraws a stale invoice: drafts at any time, verified
// invoices only once past due.
func (svc *InvoicehubService) RevokeInvoice(ctx context.Context, invoiceID, supplierID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.SupplierID != supplierID {
			return unauthorizedError(CodeBadArguments, "only the supplier can revoke invoice %s", invoice.InvoiceNum)
		}
		canRevoke := invoice.Status == common.InvoiceStatusDraft ||
			(invoice.Status == common.InvoiceStatusVerified && time.Now().After(invoice.DueDate))
		if !canRevoke {
			return stateConflictError(CodeCannotRevoke, invoice.Status, "invoice %s cannot be revoked", invoice.InvoiceNum)
		}
		invoice.Status = common.InvoiceStatusRevoked
		_, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CheckInvoiceStatus applies the time-based transitions the chain derives
// lazily: unpaid invoices past due become overdue, unpaid invoices past
// due plus grace become defaulted.
func (svc *InvoicehubService) CheckInvoiceStatus(ctx context.Context, invoiceID int64) (string, error) {
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		next := svc.nextTimedStatus(&invoice, time.Now())
		if next == invoice.Status {
			return nil
		}
		invoice.Status = next
		if _, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx); err != nil {
			return err
		}
		switch next {
		case common.InvoiceStatusOverdue:
			svc.publishInvoiceEvent(ctx, events.KeyInvoiceOverdue, &invoice)
		case common.InvoiceStatusDefaulted:
			svc.publishInvoiceEvent(ctx, events.KeyInvoiceDefaulted, &invoice)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return invoice.Status, nil
}

// ScanOverdueInvoices sweeps every invoice that could have timed out.
// Used by the overdue-scan CLI and the admin endpoint.
func (svc *InvoicehubService) ScanOverdueInvoices(ctx context.Context) (int, error) {
	var invoices []models.Invoice
	err := svc.DB.NewSelect().Model(&invoices).
		Where("status IN (?)", bun.In([]string{
			common.InvoiceStatusVerified,
			common.InvoiceStatusFunding,
			common.InvoiceStatusFunded,
			common.InvoiceStatusOverdue,
		})).
		Where("due_date < ?", time.Now()).
		Scan(ctx)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for _, invoice := range invoices {
		before := invoice.Status
		after, err := svc.CheckInvoiceStatus(ctx, invoice.ID)
		if err != nil {
			svc.Logger.Errorf("Overdue scan failed for invoice_num:%s: %v", invoice.InvoiceNum, err)
			continue
		}
		if after != before {
			transitioned++
		}
	}
	return transitioned, nil
}

func (svc *InvoicehubService) nextTimedStatus(invoice *models.Invoice, now time.Time) string {
	switch invoice.Status {
	case common.InvoiceStatusVerified, common.InvoiceStatusFunding,
		common.InvoiceStatusFunded, common.InvoiceStatusOverdue:
	default:
		return invoice.Status
	}
	if invoice.RepaymentReceived.IsPositive() {
		return invoice.Status
	}
	grace := time.Duration(svc.Config.GracePeriodDays) * 24 * time.Hour
	if now.After(invoice.DueDate.Add(grace)) {
		return common.InvoiceStatusDefaulted
	}
	if now.After(invoice.DueDate) {
		return common.InvoiceStatusOverdue
	}
	return invoice.Status
}

// lockInvoice loads the invoice row under FOR UPDATE so concurrent token
// debits and status transitions serialize per invoice.
func lockInvoice(ctx context.Context, tx bun.Tx, invoiceID int64, invoice *models.Invoice) error {
	err := tx.NewSelect().Model(invoice).Where("invoice.id = ?", invoiceID).For("UPDATE").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError(CodeInvoiceNotFound, "invoice %d not found", invoiceID)
	}
	return err
}

func generateInvoiceNum() string {
	return "INV-" + strings.ToUpper(random.String(8, random.Alphanumeric))
}

func generateOrderNum() string {
	return "ORD-" + strings.ToUpper(random.String(8, random.Alphanumeric))
}
