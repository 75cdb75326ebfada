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

// Settlement amount sources. The oracle figure is authoritative; the
// accrued figure is a degraded fallback computed from the face amount.
const (
	SettlementSourceOracle  = "oracle"
	SettlementSourceAccrued = "accrued"
)

// PayoutSplit computes the insurance levy and the net supplier amount for
// a gross investment payment. The two parts always sum to gross exactly.
func PayoutSplit(gross money.Money) (insuranceAmount, netAmount money.Money) {
	insuranceAmount = gross.MulBps(common.InsuranceCutBps)
	// cannot go negative, the cut is a truncated fraction of gross
	netAmount, _ = gross.Sub(insuranceAmount)
	return insuranceAmount, netAmount
}

// AccruedSettlementAmount mirrors the contract's interest accrual:
// face + face * rateBps * daysSinceCreation / (10000 * 365), where the
// penalty rate applies once the invoice is past due.
func (svc *InvoicehubService) AccruedSettlementAmount(invoice *models.Invoice, now time.Time) money.Money {
	rateBps := svc.Config.BaseInterestRateBps
	if now.After(invoice.DueDate) {
		rateBps = svc.Config.PenaltyRateBps
	}
	days := int64(now.Sub(invoice.CreatedAt) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	interest, err := invoice.FaceAmount.MulBps(rateBps).MulDiv(money.New(days), money.New(365))
	if err != nil {
		return invoice.FaceAmount
	}
	return invoice.FaceAmount.Add(interest)
}

// SettlementAmount returns the amount the buyer owes, preferring the
// on-chain oracle. When the oracle is unavailable the locally accrued
// figure is used and the degradation is logged, never silently equated
// with the authoritative path.
func (svc *InvoicehubService) SettlementAmount(ctx context.Context, invoice *models.Invoice) (money.Money, string) {
	if svc.Oracle != nil {
		amount, err := svc.Oracle.SettlementAmount(ctx, invoice.InvoiceNum)
		if err == nil {
			return amount, SettlementSourceOracle
		}
		svc.Logger.Warnf("Settlement oracle unavailable for invoice_num:%s, falling back to accrued amount: %v", invoice.InvoiceNum, err)
	} else {
		svc.Logger.Warnf("Settlement oracle not configured, using accrued amount for invoice_num:%s", invoice.InvoiceNum)
	}
	return svc.AccruedSettlementAmount(invoice, time.Now()), SettlementSourceAccrued
}

// Distribution is one holder's share of a settlement.
type Distribution struct {
	UserID int64       `json:"user_id"`
	Tokens money.Money `json:"tokens"`
	Amount money.Money `json:"amount"`
}

// SettleInvoice applies the buyer's repayment and distributes it across
// current token holders proportionally. The supplier is the designated
// remainder party, so the distributed parts sum to the payment exactly.
func (svc *InvoicehubService) SettleInvoice(ctx context.Context, invoiceID, buyerID int64, paymentAmount money.Money) (*models.Invoice, []Distribution, error) {
	var invoice models.Invoice
	var distributions []Distribution

	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.BuyerID != buyerID {
			return unauthorizedError(CodeBadArguments, "only the buyer can settle invoice %s", invoice.InvoiceNum)
		}
		switch invoice.Status {
		case common.InvoiceStatusVerified, common.InvoiceStatusFunding,
			common.InvoiceStatusFunded, common.InvoiceStatusOverdue:
		default:
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s cannot be settled", invoice.InvoiceNum)
		}

		required, source := svc.SettlementAmount(ctx, &invoice)
		if paymentAmount.Cmp(required) < 0 {
			return insufficientError(CodeInsufficientPayment, required, "payment %s below required settlement %s", paymentAmount, required)
		}

		holders, err := svc.holderBalances(ctx, tx, &invoice)
		if err != nil {
			return err
		}
		distributions, err = distributeSettlement(paymentAmount, holders, invoice.SupplierID)
		if err != nil {
			return err
		}

		now := time.Now()
		if _, err := tx.NewUpdate().Model((*models.Investment)(nil)).
			Set("settled_amount = token_amount * ?::numeric / ?::numeric", paymentAmount, invoice.TotalTokens).
			Set("settled_at = ?", now).
			Where("invoice_id = ? AND state = ?", invoice.ID, common.InvestmentStateCompleted).
			Exec(ctx); err != nil {
			return err
		}

		invoice.Status = common.InvoiceStatusSettled
		invoice.SettledAt = bun.NullTime{Time: now}
		invoice.SettlementAmount = required
		invoice.RepaymentReceived = paymentAmount
		if _, err := tx.NewUpdate().Model(&invoice).WherePK().Exec(ctx); err != nil {
			return err
		}

		svc.Logger.Infof("Settled invoice_num:%s amount:%s source:%s holders:%d", invoice.InvoiceNum, paymentAmount, source, len(distributions))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyInvoiceSettled, &invoice)
	return &invoice, distributions, nil
}

// holderBalances re-derives current token holdings: the supplier's unsold
// residual, completed investments, and secondary-market transfers.
func (svc *InvoicehubService) holderBalances(ctx context.Context, tx bun.IDB, invoice *models.Invoice) (map[int64]money.Money, error) {
	holders := map[int64]money.Money{}
	if invoice.TokensRemaining.IsPositive() {
		holders[invoice.SupplierID] = invoice.TokensRemaining
	}

	var investments []models.Investment
	err := tx.NewSelect().Model(&investments).
		Where("invoice_id = ? AND state = ?", invoice.ID, common.InvestmentStateCompleted).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, inv := range investments {
		holders[inv.InvestorID] = holders[inv.InvestorID].Add(inv.TokenAmount)
	}

	var transfers []models.TokenTransfer
	err = tx.NewSelect().Model(&transfers).Where("invoice_id = ?", invoice.ID).OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, tr := range transfers {
		out, err := holders[tr.FromUserID].Sub(tr.Amount)
		if err != nil {
			return nil, err
		}
		if out.IsZero() {
			delete(holders, tr.FromUserID)
		} else {
			holders[tr.FromUserID] = out
		}
		holders[tr.ToUserID] = holders[tr.ToUserID].Add(tr.Amount)
	}
	return holders, nil
}

func distributeSettlement(total money.Money, holders map[int64]money.Money, supplierID int64) ([]Distribution, error) {
	if len(holders) == 0 {
		return nil, nil
	}
	// deterministic order, supplier last so it absorbs the remainder
	ids := make([]int64, 0, len(holders))
	for id := range holders {
		if id != supplierID {
			ids = append(ids, id)
		}
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	if _, ok := holders[supplierID]; ok {
		ids = append(ids, supplierID)
	}

	weights := make([]money.Money, len(ids))
	for i, id := range ids {
		weights[i] = holders[id]
	}
	parts, err := money.Split(total, weights)
	if err != nil {
		return nil, err
	}

	distributions := make([]Distribution, len(ids))
	for i, id := range ids {
		distributions[i] = Distribution{UserID: id, Tokens: weights[i], Amount: parts[i]}
	}
	return distributions, nil
}

// ClaimInsurance pays a defaulted invoice's investor exactly half of their
// acquired price basis out of the insurance pool, once.
func (svc *InvoicehubService) ClaimInsurance(ctx context.Context, invoiceID, investorID int64) (*models.InsuranceClaim, error) {
	var claim models.InsuranceClaim
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var invoice models.Invoice
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		if invoice.Status != common.InvoiceStatusDefaulted {
			return stateConflictError(CodeNotDefaulted, invoice.Status, "invoice %s is not defaulted", invoice.InvoiceNum)
		}

		var existing models.InsuranceClaim
		err := tx.NewSelect().Model(&existing).
			Where("invoice_id = ? AND investor_id = ?", invoiceID, investorID).
			Limit(1).Scan(ctx)
		if err == nil {
			return stateConflictError(CodeAlreadyClaimed, invoice.Status, "insurance already claimed for invoice %s", invoice.InvoiceNum)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var basis money.Money
		err = tx.NewSelect().Model((*models.Investment)(nil)).
			ColumnExpr("COALESCE(SUM(payment_amount), 0)").
			Where("invoice_id = ? AND investor_id = ? AND state = ?", invoiceID, investorID, common.InvestmentStateCompleted).
			Scan(ctx, &basis)
		if err != nil {
			return err
		}
		if !basis.IsPositive() {
			return notFoundError(CodeBadArguments, "no holding for investor %d on invoice %s", investorID, invoice.InvoiceNum)
		}

		// Fixed contract-mirrored policy: half of the acquired price basis.
		claimAmount := basis.Div(2)

		pool, err := svc.insurancePoolBalance(ctx, tx)
		if err != nil {
			return err
		}
		if claimAmount.Cmp(pool) > 0 {
			claimAmount = pool
		}
		if !claimAmount.IsPositive() {
			return insufficientError(CodeInsufficientPool, pool, "insurance pool cannot cover the claim")
		}

		claim = models.InsuranceClaim{
			InvoiceID:   invoiceID,
			InvestorID:  investorID,
			ClaimAmount: claimAmount,
		}
		_, err = tx.NewInsert().Model(&claim).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// InsurancePoolBalance is the accumulated insurance levy less paid claims.
func (svc *InvoicehubService) InsurancePoolBalance(ctx context.Context) (money.Money, error) {
	return svc.insurancePoolBalance(ctx, svc.DB)
}

func (svc *InvoicehubService) insurancePoolBalance(ctx context.Context, tx bun.IDB) (money.Money, error) {
	var collected money.Money
	err := tx.NewSelect().Model((*models.SupplierPayout)(nil)).
		ColumnExpr("COALESCE(SUM(insurance_amount), 0)").
		Scan(ctx, &collected)
	if err != nil {
		return money.Zero(), err
	}
	var claimed money.Money
	err = tx.NewSelect().Model((*models.InsuranceClaim)(nil)).
		ColumnExpr("COALESCE(SUM(claim_amount), 0)").
		Scan(ctx, &claimed)
	if err != nil {
		return money.Zero(), err
	}
	return collected.Sub(claimed)
}
