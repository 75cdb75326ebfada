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

type SettlementTestSuite struct {
	suite.Suite
	svc      *service.InvoicehubService
	supplier *models.User
	buyer    *models.User
	investor *models.User
	invoice  *models.Invoice
}

func (suite *SettlementTestSuite) SetupSuite() {
	svc, err := invoiceHubTestServiceInit()
	if err != nil {
		suite.T().Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *SettlementTestSuite) SetupTest() {
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
	_, err = suite.svc.FundInvoice(ctx, suite.invoice.ID, suite.investor.ID, money.New(400_000), "tx-settle-seed")
	assert.NoError(suite.T(), err)
}

func (suite *SettlementTestSuite) TestSettleDistributesProRata() {
	ctx := context.Background()

	// no oracle configured, required amount accrues locally from face
	required, source := suite.svc.SettlementAmount(ctx, suite.invoice)
	assert.Equal(suite.T(), service.SettlementSourceAccrued, source)
	assert.Equal(suite.T(), "1000000", required.String())

	invoice, distributions, err := suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, required)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.InvoiceStatusSettled, invoice.Status)
	assert.Equal(suite.T(), required.String(), invoice.RepaymentReceived.String())

	// investor holds 40%, supplier the unsold 60% and the remainder
	assert.Len(suite.T(), distributions, 2)
	assert.Equal(suite.T(), suite.investor.ID, distributions[0].UserID)
	assert.Equal(suite.T(), "400000", distributions[0].Amount.String())
	assert.Equal(suite.T(), suite.supplier.ID, distributions[1].UserID)
	assert.Equal(suite.T(), "600000", distributions[1].Amount.String())

	sum := money.Zero()
	for _, d := range distributions {
		sum = sum.Add(d.Amount)
	}
	assert.Equal(suite.T(), required.String(), sum.String())
}

func (suite *SettlementTestSuite) TestSettleRejectsUnderpaymentAndWrongCaller() {
	ctx := context.Background()

	_, _, err := suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, money.New(1))
	assert.True(suite.T(), service.IsKind(err, service.KindInsufficientResource))

	_, _, err = suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.supplier.ID, money.New(2_000_000))
	assert.True(suite.T(), service.IsKind(err, service.KindUnauthorized))

	// settling twice conflicts
	_, _, err = suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, money.New(2_000_000))
	assert.NoError(suite.T(), err)
	_, _, err = suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, money.New(2_000_000))
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
}

func (suite *SettlementTestSuite) TestSettleFollowsSecondaryMarketTransfers() {
	ctx := context.Background()
	trader, err := createTestUser(suite.svc, common.RoleInvestor, true)
	assert.NoError(suite.T(), err)

	order, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(100_000), money.New(1))
	assert.NoError(suite.T(), err)
	_, err = suite.svc.FillOrder(ctx, order.ID, trader.ID, money.New(100_000))
	assert.NoError(suite.T(), err)

	_, distributions, err := suite.svc.SettleInvoice(ctx, suite.invoice.ID, suite.buyer.ID, money.New(1_000_000))
	assert.NoError(suite.T(), err)

	// three holders now: investor 300k, trader 100k, supplier 600k
	assert.Len(suite.T(), distributions, 3)
	byUser := map[int64]string{}
	for _, d := range distributions {
		byUser[d.UserID] = d.Amount.String()
	}
	assert.Equal(suite.T(), "300000", byUser[suite.investor.ID])
	assert.Equal(suite.T(), "100000", byUser[trader.ID])
	assert.Equal(suite.T(), "600000", byUser[suite.supplier.ID])
}

func (suite *SettlementTestSuite) TestInsuranceClaimOnDefault() {
	ctx := context.Background()

	// levy from the seed funding: 200 bps of 400000
	pool, err := suite.svc.InsurancePoolBalance(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "8000", pool.String())

	// claims only pay on defaulted invoices
	_, err = suite.svc.ClaimInsurance(ctx, suite.invoice.ID, suite.investor.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))

	assert.NoError(suite.T(), forceStatus(suite.svc, suite.invoice.ID, common.InvoiceStatusDefaulted))

	// half the acquired basis exceeds the pool, so the claim caps at it
	claim, err := suite.svc.ClaimInsurance(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "8000", claim.ClaimAmount.String())

	_, err = suite.svc.ClaimInsurance(ctx, suite.invoice.ID, suite.investor.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))

	pool, err = suite.svc.InsurancePoolBalance(ctx)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), pool.IsZero())

	// non-holders have nothing to claim
	_, err = suite.svc.ClaimInsurance(ctx, suite.invoice.ID, suite.buyer.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindNotFound))
}

func (suite *SettlementTestSuite) TestPortfolioReflectsHoldings() {
	ctx := context.Background()
	holdings, err := suite.svc.HoldingsFor(ctx, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), holdings, 1)
	assert.Equal(suite.T(), suite.invoice.ID, holdings[0].InvoiceID)
	assert.Equal(suite.T(), "400000", holdings[0].Tokens.String())
	assert.Equal(suite.T(), "400000", holdings[0].Invested.String())
}

func TestSettlementSuite(t *testing.T) {
	suite.Run(t, new(SettlementTestSuite))
}
