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

type OrdersTestSuite struct {
	suite.Suite
	svc      *service.InvoicehubService
	supplier *models.User
	buyer    *models.User
	investor *models.User
	trader   *models.User
	invoice  *models.Invoice
}

func (suite *OrdersTestSuite) SetupSuite() {
	svc, err := invoiceHubTestServiceInit()
	if err != nil {
		suite.T().Fatalf("Error initializing test service: %v", err)
	}
	suite.svc = svc
}

func (suite *OrdersTestSuite) SetupTest() {
	assert.NoError(suite.T(), clearTables(suite.svc))
	ctx := context.Background()
	var err error
	suite.supplier, err = createTestUser(suite.svc, common.RoleSupplier, true)
	assert.NoError(suite.T(), err)
	suite.buyer, err = createTestUser(suite.svc, common.RoleBuyer, true)
	assert.NoError(suite.T(), err)
	suite.investor, err = createTestUser(suite.svc, common.RoleInvestor, true)
	assert.NoError(suite.T(), err)
	suite.trader, err = createTestUser(suite.svc, common.RoleInvestor, true)
	assert.NoError(suite.T(), err)

	suite.invoice, err = createFundableInvoice(suite.svc, suite.supplier, suite.buyer, money.New(1_000_000))
	assert.NoError(suite.T(), err)
	_, err = suite.svc.FundInvoice(ctx, suite.invoice.ID, suite.investor.ID, money.New(400_000), "tx-seed")
	assert.NoError(suite.T(), err)
}

func (suite *OrdersTestSuite) TestAvailabilityTracksHoldings() {
	ctx := context.Background()

	available, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "400000", available.String())

	// the supplier's availability is the unsold residual
	available, err = suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.supplier.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "600000", available.String())

	// open listings commit tokens
	_, err = suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(150_000), money.New(1))
	assert.NoError(suite.T(), err)
	available, err = suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "250000", available.String())
}

func (suite *OrdersTestSuite) TestCreateOrderRejectsOversell() {
	ctx := context.Background()
	_, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(500_000), money.New(1))
	assert.True(suite.T(), service.IsKind(err, service.KindInsufficientResource))
	var coreErr *service.Error
	assert.ErrorAs(suite.T(), err, &coreErr)
	assert.Equal(suite.T(), "400000", coreErr.Available.String())
}

func (suite *OrdersTestSuite) TestFillTransfersTitle() {
	ctx := context.Background()
	order, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(200_000), money.New(1))
	assert.NoError(suite.T(), err)

	// partial fill keeps the order open
	result, err := suite.svc.FillOrder(ctx, order.ID, suite.trader.ID, money.New(80_000))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.OrderStatePartiallyFilled, result.Order.State)
	assert.Equal(suite.T(), "120000", result.Order.TokensRemaining.String())
	assert.Equal(suite.T(), "80000", result.Transfer.PaymentAmount.String())

	// filled tokens belong to the buyer now, not the seller
	available, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.trader.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "80000", available.String())
	available, err = suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "200000", available.String())

	// full fill terminates the order
	result, err = suite.svc.FillOrder(ctx, order.ID, suite.trader.ID, money.New(120_000))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.OrderStateFilled, result.Order.State)

	_, err = suite.svc.FillOrder(ctx, order.ID, suite.trader.ID, money.New(1))
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))
}

func (suite *OrdersTestSuite) TestFillRejectsOverfill() {
	ctx := context.Background()
	order, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(100_000), money.New(2))
	assert.NoError(suite.T(), err)

	_, err = suite.svc.FillOrder(ctx, order.ID, suite.trader.ID, money.New(100_001))
	assert.True(suite.T(), service.IsKind(err, service.KindInsufficientResource))
}

func (suite *OrdersTestSuite) TestCancelOnlyByOwnerAndOnlyOnce() {
	ctx := context.Background()
	order, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(100_000), money.New(1))
	assert.NoError(suite.T(), err)

	_, err = suite.svc.CancelOrder(ctx, order.ID, suite.trader.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindUnauthorized))

	cancelled, err := suite.svc.CancelOrder(ctx, order.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), common.OrderStateCancelled, cancelled.State)

	_, err = suite.svc.CancelOrder(ctx, order.ID, suite.investor.ID)
	assert.True(suite.T(), service.IsKind(err, service.KindStateConflict))

	// cancellation releases the committed tokens
	available, err := suite.svc.AvailableTokens(ctx, suite.invoice.ID, suite.investor.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "400000", available.String())
}

func (suite *OrdersTestSuite) TestOpenOrdersSortedByPrice() {
	ctx := context.Background()
	_, err := suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(50_000), money.New(3))
	assert.NoError(suite.T(), err)
	_, err = suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.investor.ID, money.New(50_000), money.New(1))
	assert.NoError(suite.T(), err)
	_, err = suite.svc.CreateSellOrder(ctx, suite.invoice.ID, suite.supplier.ID, money.New(50_000), money.New(2))
	assert.NoError(suite.T(), err)

	orders, err := suite.svc.OpenOrdersFor(ctx, suite.invoice.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), orders, 3)
	assert.Equal(suite.T(), "1", orders[0].PricePerToken.String())
	assert.Equal(suite.T(), "2", orders[1].PricePerToken.String())
	assert.Equal(suite.T(), "3", orders[2].PricePerToken.String())
}

func TestOrdersSuite(t *testing.T) {
	suite.Run(t, new(OrdersTestSuite))
}
