package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/uptrace/bun"
)

// FillResult reports a fill together with the transfer fact it recorded.
type FillResult struct {
	Order    *models.SellOrder     `json:"order"`
	Transfer *models.TokenTransfer `json:"transfer"`
}

// AvailableTokens is the seller's currently listable balance on an
// invoice. Derived, never stored: the supplier's unsold residual (when the
// seller is the supplier), plus completed investments, plus tokens bought
// on the secondary market, minus tokens sold there, minus what the
// seller's own open orders already commit. Invoices outside the tradable
// statuses report zero, nothing on them can move.
func (svc *InvoicehubService) AvailableTokens(ctx context.Context, invoiceID, sellerID int64) (money.Money, error) {
	invoice, err := svc.FindInvoice(ctx, invoiceID)
	if err != nil {
		return money.Zero(), err
	}
	switch invoice.Status {
	case common.InvoiceStatusVerified, common.InvoiceStatusFunding, common.InvoiceStatusFunded:
	default:
		return money.Zero(), nil
	}
	return svc.availableTokens(ctx, svc.DB, invoice, sellerID)
}

func (svc *InvoicehubService) availableTokens(ctx context.Context, tx bun.IDB, invoice *models.Invoice, sellerID int64) (money.Money, error) {
	available := money.Zero()
	if sellerID == invoice.SupplierID {
		available = invoice.TokensRemaining
	}

	var invested money.Money
	err := tx.NewSelect().Model((*models.Investment)(nil)).
		ColumnExpr("COALESCE(SUM(token_amount), 0)").
		Where("invoice_id = ? AND investor_id = ? AND state = ?", invoice.ID, sellerID, common.InvestmentStateCompleted).
		Scan(ctx, &invested)
	if err != nil {
		return money.Zero(), err
	}
	available = available.Add(invested)

	var transfersIn money.Money
	err = tx.NewSelect().Model((*models.TokenTransfer)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ? AND to_user_id = ?", invoice.ID, sellerID).
		Scan(ctx, &transfersIn)
	if err != nil {
		return money.Zero(), err
	}
	available = available.Add(transfersIn)

	var transfersOut money.Money
	err = tx.NewSelect().Model((*models.TokenTransfer)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ? AND from_user_id = ?", invoice.ID, sellerID).
		Scan(ctx, &transfersOut)
	if err != nil {
		return money.Zero(), err
	}

	var listed money.Money
	err = tx.NewSelect().Model((*models.SellOrder)(nil)).
		ColumnExpr("COALESCE(SUM(tokens_remaining), 0)").
		Where("invoice_id = ? AND seller_id = ? AND state IN (?)", invoice.ID, sellerID,
			bun.In([]string{common.OrderStateOpen, common.OrderStatePartiallyFilled})).
		Scan(ctx, &listed)
	if err != nil {
		return money.Zero(), err
	}

	available, err = available.Sub(transfersOut.Add(listed))
	if err != nil {
		// more committed than held can only come from a corrupted ledger
		return money.Zero(), err
	}
	return available, nil
}

// CreateSellOrder lists part of the seller's holding. The availability
// check runs under the invoice lock so two concurrent listings cannot both
// commit the same tokens.
func (svc *InvoicehubService) CreateSellOrder(ctx context.Context, invoiceID, sellerID int64, tokenAmount, pricePerToken money.Money) (*models.SellOrder, error) {
	if !tokenAmount.IsPositive() {
		return nil, validationError(CodeBadArguments, "token amount must be positive")
	}
	if !pricePerToken.IsPositive() {
		return nil, validationError(CodeBadArguments, "price per token must be positive")
	}

	var order models.SellOrder
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var invoice models.Invoice
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		switch invoice.Status {
		case common.InvoiceStatusVerified, common.InvoiceStatusFunding, common.InvoiceStatusFunded:
		default:
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s tokens are not tradable", invoice.InvoiceNum)
		}

		available, err := svc.availableTokens(ctx, tx, &invoice, sellerID)
		if err != nil {
			return err
		}
		if tokenAmount.Cmp(available) > 0 {
			return insufficientError(CodeInsufficientTokens, available, "listing %s tokens, %s available", tokenAmount, available)
		}

		order = models.SellOrder{
			OrderNum:        generateOrderNum(),
			InvoiceID:       invoice.ID,
			SellerID:        sellerID,
			TokenAmount:     tokenAmount,
			PricePerToken:   pricePerToken,
			TokensRemaining: tokenAmount,
			State:           common.OrderStateOpen,
		}
		_, err = tx.NewInsert().Model(&order).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FillOrder transfers tokens from an open order to the buyer at the listed
// price. Partial fills keep the order open with the remainder.
func (svc *InvoicehubService) FillOrder(ctx context.Context, orderID, buyerID int64, tokenAmount money.Money) (*FillResult, error) {
	if !tokenAmount.IsPositive() {
		return nil, validationError(CodeBadArguments, "token amount must be positive")
	}

	buyer, err := svc.FindUser(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if !buyer.KycApproved {
		return nil, unauthorizedError(CodeKycRequired, "buyer %s is not KYC approved", buyer.Login)
	}

	result := FillResult{}
	var invoice models.Invoice
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Lock order: invoice first, then order, same order everywhere.
		var peek models.SellOrder
		err := tx.NewSelect().Model(&peek).Where("sell_order.id = ?", orderID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError(CodeOrderNotFound, "order %d not found", orderID)
		}
		if err != nil {
			return err
		}
		if err := lockInvoice(ctx, tx, peek.InvoiceID, &invoice); err != nil {
			return err
		}
		var order models.SellOrder
		err = tx.NewSelect().Model(&order).Where("sell_order.id = ?", orderID).For("UPDATE").Limit(1).Scan(ctx)
		if err != nil {
			return err
		}

		if order.SellerID == buyerID {
			return validationError(CodeBadArguments, "cannot fill own order %s", order.OrderNum)
		}
		if order.Terminal() {
			return stateConflictError(CodeOrderNotFillable, order.State, "order %s is no longer fillable", order.OrderNum)
		}
		if tokenAmount.Cmp(order.TokensRemaining) > 0 {
			return insufficientError(CodeInsufficientTokens, order.TokensRemaining, "requested %s tokens, order holds %s", tokenAmount, order.TokensRemaining)
		}

		paymentAmount := tokenAmount.Mul(order.PricePerToken)

		order.TokensRemaining, err = order.TokensRemaining.Sub(tokenAmount)
		if err != nil {
			return err
		}
		if order.TokensRemaining.IsZero() {
			order.State = common.OrderStateFilled
		} else {
			order.State = common.OrderStatePartiallyFilled
		}
		if _, err := tx.NewUpdate().Model(&order).WherePK().Exec(ctx); err != nil {
			return err
		}

		transfer := models.TokenTransfer{
			InvoiceID:     invoice.ID,
			OrderID:       order.ID,
			FromUserID:    order.SellerID,
			ToUserID:      buyerID,
			Amount:        tokenAmount,
			PaymentAmount: paymentAmount,
		}
		if _, err := tx.NewInsert().Model(&transfer).Exec(ctx); err != nil {
			return err
		}

		result.Order = &order
		result.Transfer = &transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyOrderFilled, &invoice)
	return &result, nil
}

// TransferTokens moves tokens between two holders directly, outside the
// order book. No payment changes hands; the transfer fact records a zero
// payment so the recipient's acquired basis is unchanged.
func (svc *InvoicehubService) TransferTokens(ctx context.Context, invoiceID, fromID, toID int64, tokenAmount money.Money) (*models.TokenTransfer, error) {
	if !tokenAmount.IsPositive() {
		return nil, validationError(CodeBadArguments, "token amount must be positive")
	}
	if fromID == toID {
		return nil, validationError(CodeBadArguments, "cannot transfer tokens to yourself")
	}
	if _, err := svc.FindUser(ctx, toID); err != nil {
		return nil, err
	}

	var transfer models.TokenTransfer
	var invoice models.Invoice
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockInvoice(ctx, tx, invoiceID, &invoice); err != nil {
			return err
		}
		switch invoice.Status {
		case common.InvoiceStatusVerified, common.InvoiceStatusFunding, common.InvoiceStatusFunded:
		default:
			return stateConflictError(CodeInvalidInvoiceStatus, invoice.Status, "invoice %s tokens are not tradable", invoice.InvoiceNum)
		}

		available, err := svc.availableTokens(ctx, tx, &invoice, fromID)
		if err != nil {
			return err
		}
		if tokenAmount.Cmp(available) > 0 {
			return insufficientError(CodeInsufficientTokens, available, "transferring %s tokens, %s available", tokenAmount, available)
		}

		transfer = models.TokenTransfer{
			InvoiceID:     invoice.ID,
			FromUserID:    fromID,
			ToUserID:      toID,
			Amount:        tokenAmount,
			PaymentAmount: money.Zero(),
		}
		_, err = tx.NewInsert().Model(&transfer).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	svc.publishInvoiceEvent(ctx, events.KeyTokensMoved, &invoice)
	return &transfer, nil
}

// CancelOrder withdraws the unfilled remainder of the seller's own order.
func (svc *InvoicehubService) CancelOrder(ctx context.Context, orderID, sellerID int64) (*models.SellOrder, error) {
	var order models.SellOrder
	err := svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&order).Where("sell_order.id = ?", orderID).For("UPDATE").Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError(CodeOrderNotFound, "order %d not found", orderID)
		}
		if err != nil {
			return err
		}
		if order.SellerID != sellerID {
			return unauthorizedError(CodeNotOrderOwner, "order %s belongs to another seller", order.OrderNum)
		}
		if order.Terminal() {
			return stateConflictError(CodeOrderAlreadyTerminal, order.State, "order %s is already %s", order.OrderNum, order.State)
		}
		order.State = common.OrderStateCancelled
		_, err = tx.NewUpdate().Model(&order).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (svc *InvoicehubService) FindOrder(ctx context.Context, orderID int64) (*models.SellOrder, error) {
	var order models.SellOrder
	err := svc.DB.NewSelect().Model(&order).Where("id = ?", orderID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(CodeOrderNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OpenOrdersFor lists fillable orders on an invoice, cheapest first.
func (svc *InvoicehubService) OpenOrdersFor(ctx context.Context, invoiceID int64) ([]models.SellOrder, error) {
	var orders []models.SellOrder
	err := svc.DB.NewSelect().Model(&orders).
		Where("invoice_id = ? AND state IN (?)", invoiceID,
			bun.In([]string{common.OrderStateOpen, common.OrderStatePartiallyFilled})).
		OrderExpr("price_per_token ASC, id ASC").
		Scan(ctx)
	return orders, err
}

// OrdersForSeller lists the seller's orders, newest first.
func (svc *InvoicehubService) OrdersForSeller(ctx context.Context, sellerID int64) ([]models.SellOrder, error) {
	var orders []models.SellOrder
	err := svc.DB.NewSelect().Model(&orders).
		Where("seller_id = ?", sellerID).
		OrderExpr("id DESC").Limit(100).
		Scan(ctx)
	return orders, err
}
