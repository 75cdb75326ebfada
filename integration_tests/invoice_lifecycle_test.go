package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LifecycleTestSuite struct {
	suite.Suite
	svc      *service.InvoicehubService
	supplier *models.User
	buyer    *models.User
}

func (suite *LifecycleTestSuite) SetupSuite() {
	svc, err := invoiceHubTestServiceInit()
	if err != nil {
		suite.T().Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *LifecycleTestSuite) SetupTest() {
	assert.NoError(suite.T(), clearTables(suite.svc))
	var err error
	suite.supplier, err = createTestUser(suite.svc, common.RoleSupplier, true)
	assert.NoError(suite.T(), err)
	suite.buyer, err = createTestUser(suite.svc, common.RoleBuyer, true)
	assert.NoError(suite.T(), err)
}

func (suite *LifecycleTestSuite) TestApproveMintsTokens() {
	ctx := context.Background()
	invoice, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(750_000), "USDC",
		time.Now().Add(30*24*time.Hour), "", "", "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusDraft, invoice.Status)

	// only the buyer can approve
	_, err = suite.svc.ApproveInvoice(ctx, invoice.ID, suite.supplier.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindUnauthorized))

	invoice, err = suite.svc.ApproveInvoice(ctx, invoice.ID, suite.buyer.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusVerified, invoice.Status)
	assert.Equal(suite.T(), "750000", invoice.TotalTokens.String())
	assert.Equal(suite.T(), "750000", invoice.TokensRemaining.String())
	assert.Equal(suite.T(), "SNG-"+invoice.InvoiceNum, invoice.TokenSymbol)
}

func (suite *LifecycleTestSuite) TestResolveByIdAndAlias() {
	ctx := context.Background()
	invoice, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(1000), "USDC",
		time.Now().Add(24*time.Hour), "", "", "")
	assert.NoError(suite.T(), err)

	byAlias, match, err := suite.svc.ResolveInvoice(ctx, invoice.InvoiceNum)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), service.MatchAlias, match)
	assert.Equal(suite.T(), invoice.ID, byAlias.ID)

	_, _, err = suite.svc.ResolveInvoice(ctx, "INV-DOESNOTEXIST")
	assert.True(suite.T(), service.IsKind(err, service.KindNotFound))
}

func (suite *LifecycleTestSuite) TestRevokeRules() {
	ctx := context.Background()
	draft, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(1000), "USDC",
		time.Now().Add(24*time.Hour), "", "", "")
	assert.NoError(suite.T(), err)

	// drafts revoke at any time
	revoked, err := suite.svc.RevokeInvoice(ctx, draft.ID, suite.supplier.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusRevoked, revoked.Status)

	// verified invoices only once past due
	verified, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(1000), "USDC",
		time.Now().Add(24*time.Hour), "", "", "")
	assert.NoError(suite.T(), err)
	verified, err = suite.svc.ApproveInvoice(ctx, verified.ID, suite.buyer.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.svc.RevokeInvoice(ctx, verified.ID, suite.supplier.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))

	assert.NoError(suite.T(), forceDueDate(suite.svc, verified.ID, time.Now().Add(-time.Hour)))
	revoked, err = suite.svc.RevokeInvoice(ctx, verified.ID, suite.supplier.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusRevoked, revoked.Status)
}

func (suite *LifecycleTestSuite) TestOverdueScanTransitions() {
	ctx := context.Background()
	invoice, err := createFundableInvoice(suite.svc, suite.supplier, suite.buyer, money.New(10_000))
	assert.NoError(suite.T(), err)

	// just past due: overdue
	assert.NoError(suite.T(), forceDueDate(suite.svc, invoice.ID, time.Now().Add(-24*time.Hour)))
	transitioned, err := suite.svc.ScanOverdueInvoices(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, transitioned)
	status, err := suite.svc.CheckInvoiceStatus(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusOverdue, status)

	// past due plus grace: defaulted
	assert.NoError(suite.T(), forceDueDate(suite.svc, invoice.ID, time.Now().Add(-31*24*time.Hour)))
	status, err = suite.svc.CheckInvoiceStatus(ctx, invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusDefaulted, status)
}

func (suite *LifecycleTestSuite) TestStartAuctionValidatesParams() {
	ctx := context.Background()
	invoice, err := suite.svc.MintDraft(ctx, suite.supplier.ID, suite.buyer.ID, money.New(10_000), "USDC",
		time.Now().Add(30*24*time.Hour), "", "", "")
	assert.NoError(suite.T(), err)
	invoice, err = suite.svc.ApproveInvoice(ctx, invoice.ID, suite.buyer.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.svc.StartAuction(ctx, invoice.ID, suite.supplier.ID, 0, 2000)
	assert.True(suite.T(), service.IsKind(err, service.KindValidation))
	_, err = suite.svc.StartAuction(ctx, invoice.ID, suite.supplier.ID, 72, 9000)
	assert.True(suite.T(), service.IsKind(err, service.KindValidation))

	started, err := suite.svc.StartAuction(ctx, invoice.ID, suite.supplier.ID, 72, 2000)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusFunding, started.Status)
	assert.Equal(suite.T(), "10000", started.StartPrice.String())
	assert.Equal(suite.T(), "8000", started.MinPrice.String())

	info, err := suite.svc.CurrentPrice(started, time.Now())
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), info.IsActive)
	assert.Equal(suite.T(), "10000", info.Price.String())
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}
