package integration_tests

import (
	"context"
	"testing"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type DisputeTestSuite struct {
	suite.Suite
	svc      *service.InvoicehubService
	supplier *models.User
	buyer    *models.User
	investor *models.User
	invoice  *models.Invoice
}

func (suite *DisputeTestSuite) SetupSuite() {
	svc, err := invoiceHubTestServiceInit()
	if err != nil {
		suite.T().Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *DisputeTestSuite) SetupTest() {
	assert.NoError(suite.T(), clearTables(suite.svc))
	ctx := context.Background()
	var err error
	suite.supplier, err = createTestUser(suite.svc, common.RoleSupplier, true)
	assert.NoError(suite.T(), err)
	suite.buyer, err = createTestUser(suite.svc, common.RoleBuyer, true)
	assert.NoError(suite.T(), err)
	suite.investor, err = createTestUser(suite.svc, common.RoleInvestor, true)
	assert.NoError(suite.T(), err)

	suite.invoice, err = createFundableInvoice(suite.svc, suite.supplier, suite.buyer, money.New(1_000_000))
	assert.NoError(suite.T(), err)
	_, err = suite.svc.FundInvoice(ctx, suite.invoice.ID, suite.investor.ID, money.New(400_000), "tx-dispute-seed")
	assert.NoError(suite.T(), err)
}

func (suite *DisputeTestSuite) TestRaiseDisputeFreezesInvoice() {
	ctx := context.Background()

	dispute, err := suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "goods never arrived")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.DisputeResolutionPending, dispute.Resolution)
	assert.Equal(suite.T(), common.InvoiceStatusFunding, dispute.PriorStatus)

	refreshed, err := suite.svc.FindInvoice(ctx, suite.invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusDisputed, refreshed.Status)

	// every token movement is frozen while the dispute is pending
	_, err = suite.svc.FundInvoice(ctx, suite.invoice.ID, suite.investor.ID, money.New(1000), "tx-frozen")
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
	_, err = suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(1000), money.New(1))
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
	_, _, err = suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, money.New(2_000_000))
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))

	// and a second dispute cannot stack on the frozen invoice
	_, err = suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "again")
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
}

func (suite *DisputeTestSuite) TestRaiseDisputeRejectsNonBuyer() {
	ctx := context.Background()

	_, err := suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.supplier.ID, "not my call")
	assert.True(suite.T(), service.IsKind(err, service.KindUnauthorized))

	_, err = suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "")
	assert.True(suite.T(), service.IsKind(err, service.KindValidation))
}

func (suite *DisputeTestSuite) TestInvalidResolutionRestoresPriorStatus() {
	ctx := context.Background()

	_, err := suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "wrong amount")
	assert.NoError(suite.T(), err)

	dispute, invoice, err := suite.svc.ResolveDispute(ctx, suite.invoice.ID, false)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.DisputeResolutionInvalid, dispute.Resolution)
	assert.False(suite.T(), dispute.ResolvedAt.IsZero())
	assert.Equal(suite.T(), common.InvoiceStatusFunding, invoice.Status)

	// unfrozen, funding works again
	_, err = suite.svc.FundInvoice(ctx, suite.invoice.ID, suite.investor.ID, money.New(1000), "tx-thawed")
	assert.NoError(suite.T(), err)

	// resolving twice needs a fresh dispute
	_, _, err = suite.svc.ResolveDispute(ctx, suite.invoice.ID, false)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
}

func (suite *DisputeTestSuite) TestValidResolutionClawsHoldingsBack() {
	ctx := context.Background()

	_, err := suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "fabricated invoice")
	assert.NoError(suite.T(), err)

	dispute, invoice, err := suite.svc.ResolveDispute(ctx, suite.invoice.ID, true)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.DisputeResolutionValid, dispute.Resolution)
	// investor 400k plus supplier residual 600k were held at ruling time
	assert.Equal(suite.T(), "1000000", dispute.ClawedTokens.String())

	// the invoice stays frozen with its token ledger emptied
	assert.Equal(suite.T(), common.InvoiceStatusDisputed, invoice.Status)
	assert.True(suite.T(), invoice.TokensSold.IsZero())
	assert.True(suite.T(), invoice.TokensRemaining.IsZero())

	// the investor's portfolio and listable balance are gone
	holdings, err := suite.svc.HoldingsFor(ctx, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), holdings, 0)
	available, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), available.IsZero())
}

func (suite *DisputeTestSuite) TestResolveRequiresDisputedStatus() {
	ctx := context.Background()

	_, _, err := suite.svc.ResolveDispute(ctx, suite.invoice.ID, true)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
}

func (suite *DisputeTestSuite) TestFindDisputeReturnsLatest() {
	ctx := context.Background()

	_, err := suite.svc.FindDispute(ctx, suite.invoice.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindNotFound))

	_, err = suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "first complaint")
	assert.NoError(suite.T(), err)
	_, _, err = suite.svc.ResolveDispute(ctx, suite.invoice.ID, false)
	assert.NoError(suite.T(), err)
	_, err = suite.svc.RaiseDispute(ctx, suite.invoice.ID, suite.buyer.ID, "second complaint")
	assert.NoError(suite.T(), err)

	dispute, err := suite.svc.FindDispute(ctx, suite.invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "second complaint", dispute.Reason)
	assert.True(suite.T(), dispute.Pending())
}

func (suite *DisputeTestSuite) TestDirectTransferMovesTitle() {
	ctx := context.Background()
	trader, err := createTestUser(suite.svc, common.RoleInvestor, true)
	assert.NoError(suite.T(), err)

	transfer, err := suite.svc.TransferTokens(ctx, suite.invoice.ID, suite.investor.ID, trader.ID, money.New(150_000))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "150000", transfer.Amount.String())
	assert.True(suite.T(), transfer.PaymentAmount.IsZero())

	fromAvailable, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "250000", fromAvailable.String())
	toAvailable, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, trader.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "150000", toAvailable.String())

	// overdraw and self-transfer are rejected
	_, err = suite.svc.TransferTokens(ctx, suite.invoice.ID, suite.investor.ID, trader.ID, money.New(300_000))
	assert.True(suite.T(), service.IsKind(err, service.KindInsufficientResource))
	_, err = suite.svc.TransferTokens(ctx, suite.invoice.ID, suite.investor.ID, suite.investor.ID, money.New(1))
	assert.True(suite.T(), service.IsKind(err, service.KindValidation))
}

func (suite *DisputeTestSuite) TestVerifyDocument() {
	ctx := context.Background()
	invoice, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(5000), "USDC",
		suite.invoice.DueDate, "", "", "sha256:abc123")
	assert.NoError(suite.T(), err)

	matches, err := suite.svc.VerifyDocument(ctx, invoice.ID, "sha256:abc123")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), matches)

	matches, err = suite.svc.VerifyDocument(ctx, invoice.ID, "sha256:other")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), matches)

	// invoices minted without a hash never verify
	matches, err = suite.svc.VerifyDocument(ctx, suite.invoice.ID, "")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), matches)
}

func TestDisputeSuite(t *testing.T) {
	suite.Run(t, new(DisputeTestSuite))
}
