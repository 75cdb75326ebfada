package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/security"
	"github.com/labstack/gommon/random"
	"github.com/uptrace/bun"
)

// CreateUser registers an account. Login and password are generated when
// the caller leaves them blank, so programmatic onboarding stays a single
// call.
func (svc *InvoicehubService) CreateUser(ctx context.Context, login, password, role, walletAddress string) (*models.User, error) {
	user := &models.User{}
	user.Login = login
	if login == "" {
		user.Login = random.String(20, alphaNumBytes)
	}
	if password == "" {
		password = random.String(20, alphaNumBytes)
	}
	user.Password = security.HashPassword(password)

	switch role {
	case common.RoleSupplier, common.RoleBuyer, common.RoleInvestor, common.RoleAdmin:
		user.Role = role
	case "":
		user.Role = common.RoleInvestor
	default:
		return nil, validationError(CodeBadArguments, "unknown role %s", role)
	}
	user.WalletAddress = walletAddress

	_, err := svc.DB.NewInsert().Model(user).On("CONFLICT (login) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, validationError(CodeBadArguments, "login %s is taken", user.Login)
	}
	return user, nil
}

func (svc *InvoicehubService) FindUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := svc.DB.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(CodeBadArguments, "user %d not found", userID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetKyc flips the KYC flag, admin only at the route layer.
func (svc *InvoicehubService) SetKyc(ctx context.Context, userID int64, approved bool) (*models.User, error) {
	user, err := svc.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.KycApproved = approved
	_, err = svc.DB.NewUpdate().Model(user).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Holding is one user's position on one invoice: tokens currently held
// after secondary-market transfers, plus what was paid to acquire them.
type Holding struct {
	InvoiceID  int64       `json:"invoice_id"`
	InvoiceNum string      `json:"invoice_num"`
	Status     string      `json:"status"`
	Tokens     money.Money `json:"tokens"`
	Invested   money.Money `json:"invested"`
}

// HoldingsFor builds the user's portfolio. Balances are re-derived from
// the investment and transfer history rather than kept as a running
// counter, same as settlement distribution does.
func (svc *InvoicehubService) HoldingsFor(ctx context.Context, userID int64) ([]Holding, error) {
	var investments []models.Investment
	err := svc.DB.NewSelect().Model(&investments).
		Where("investor_id = ? AND state = ?", userID, common.InvestmentStateCompleted).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	tokensByInvoice := map[int64]money.Money{}
	investedByInvoice := map[int64]money.Money{}
	for _, inv := range investments {
		tokensByInvoice[inv.InvoiceID] = tokensByInvoice[inv.InvoiceID].Add(inv.TokenAmount)
		investedByInvoice[inv.InvoiceID] = investedByInvoice[inv.InvoiceID].Add(inv.PaymentAmount)
	}

	var transfers []models.TokenTransfer
	err = svc.DB.NewSelect().Model(&transfers).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, tr := range transfers {
		if tr.ToUserID == userID {
			tokensByInvoice[tr.InvoiceID] = tokensByInvoice[tr.InvoiceID].Add(tr.Amount)
			investedByInvoice[tr.InvoiceID] = investedByInvoice[tr.InvoiceID].Add(tr.PaymentAmount)
		}
		if tr.FromUserID == userID {
			remaining, err := tokensByInvoice[tr.InvoiceID].Sub(tr.Amount)
			if err != nil {
				return nil, err
			}
			tokensByInvoice[tr.InvoiceID] = remaining
		}
	}

	invoiceIDs := make([]int64, 0, len(tokensByInvoice))
	for id, tokens := range tokensByInvoice {
		if tokens.IsPositive() {
			invoiceIDs = append(invoiceIDs, id)
		}
	}
	if len(invoiceIDs) == 0 {
		return []Holding{}, nil
	}

	// holdings on claw-resolved invoices were destroyed by the ruling
	clawed, err := svc.clawedInvoiceIDs(ctx, invoiceIDs)
	if err != nil {
		return nil, err
	}
	if len(clawed) > 0 {
		kept := invoiceIDs[:0]
		for _, id := range invoiceIDs {
			if !clawed[id] {
				kept = append(kept, id)
			}
		}
		invoiceIDs = kept
		if len(invoiceIDs) == 0 {
			return []Holding{}, nil
		}
	}

	var invoices []models.Invoice
	err = svc.DB.NewSelect().Model(&invoices).
		Where("id IN (?)", bun.In(invoiceIDs)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	holdings := make([]Holding, 0, len(invoices))
	for _, invoice := range invoices {
		holdings = append(holdings, Holding{
			InvoiceID:  invoice.ID,
			InvoiceNum: invoice.InvoiceNum,
			Status:     invoice.Status,
			Tokens:     tokensByInvoice[invoice.ID],
			Invested:   investedByInvoice[invoice.ID],
		})
	}
	return holdings, nil
}
