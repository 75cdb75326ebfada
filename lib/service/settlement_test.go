package service

import (
	"testing"
	"time"

	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/stretchr/testify/assert"
)

func TestPayoutSplit(t *testing.T) {
	gross := money.New(1_000_000)
	insurance, net := PayoutSplit(gross)

	// 200 bps levy
	assert.Equal(t, "20000", insurance.String())
	assert.Equal(t, "980000", net.String())
	assert.Equal(t, gross.String(), insurance.Add(net).String())
}

func TestPayoutSplitTinyAmount(t *testing.T) {
	// levy truncates to zero below 50 units, supplier keeps everything
	insurance, net := PayoutSplit(money.New(49))
	assert.True(t, insurance.IsZero())
	assert.Equal(t, "49", net.String())
}

func TestAccruedSettlementAmount(t *testing.T) {
	svc := &InvoicehubService{Config: &Config{
		BaseInterestRateBps: 1000,
		PenaltyRateBps:      2400,
	}}
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	invoice := &models.Invoice{
		FaceAmount: money.New(1_000_000),
		CreatedAt:  created,
		DueDate:    created.AddDate(0, 0, 60),
	}

	// 30 days at 10% annual: 1000000 * 1000 * 30 / (10000 * 365) = 8219
	amount := svc.AccruedSettlementAmount(invoice, created.AddDate(0, 0, 30))
	assert.Equal(t, "1008219", amount.String())

	// past due the 24% penalty rate applies over the full age
	amount = svc.AccruedSettlementAmount(invoice, created.AddDate(0, 0, 90))
	assert.Equal(t, "1059178", amount.String())

	// same instant as creation accrues nothing
	amount = svc.AccruedSettlementAmount(invoice, created)
	assert.Equal(t, "1000000", amount.String())
}

func TestDistributeSettlementSupplierTakesRemainder(t *testing.T) {
	holders := map[int64]money.Money{
		1: money.New(100), // supplier residual
		2: money.New(333),
		3: money.New(567),
	}
	total := money.New(1_000_001)

	distributions, err := distributeSettlement(total, holders, 1)
	assert.NoError(t, err)
	assert.Len(t, distributions, 3)

	// investors in id order, supplier last
	assert.Equal(t, int64(2), distributions[0].UserID)
	assert.Equal(t, int64(3), distributions[1].UserID)
	assert.Equal(t, int64(1), distributions[2].UserID)

	sum := money.Zero()
	for _, d := range distributions {
		sum = sum.Add(d.Amount)
	}
	assert.Equal(t, total.String(), sum.String())

	// investor shares are the truncated proportional amounts
	assert.Equal(t, "333000", distributions[0].Amount.String())
	assert.Equal(t, "567000", distributions[1].Amount.String())
}

func TestDistributeSettlementSingleHolder(t *testing.T) {
	holders := map[int64]money.Money{7: money.New(500)}
	distributions, err := distributeSettlement(money.New(12345), holders, 1)
	assert.NoError(t, err)
	assert.Len(t, distributions, 1)
	assert.Equal(t, int64(7), distributions[0].UserID)
	assert.Equal(t, "12345", distributions[0].Amount.String())
}

func TestDistributeSettlementNoHolders(t *testing.T) {
	distributions, err := distributeSettlement(money.New(100), map[int64]money.Money{}, 1)
	assert.NoError(t, err)
	assert.Nil(t, distributions)
}
