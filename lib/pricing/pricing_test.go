package pricing

import (
	"testing"
	"time"

	"github.com/sangini/invoicehub/lib/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func decayParams(t *testing.T) Params {
	t.Helper()
	// start 1000, floor 500, 1%/hour over 100h
	p, err := NewParams(money.New(1000), t0, 100, 5000, 100)
	require.Nil(t, err)
	return p
}

func TestNewParamsValidation(t *testing.T) {
	_, err := NewParams(money.New(1000), t0, 0, 1500, 50)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	_, err = NewParams(money.New(1000), t0, -5, 1500, 50)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	_, err = NewParams(money.New(1000), t0, 24, 0, 50)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	_, err = NewParams(money.New(1000), t0, 24, 5001, 50)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	_, err = NewParams(money.New(1000), t0, 24, 1500, -1)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	_, err = NewParams(money.Zero(), t0, 24, 1500, 50)
	assert.Equal(t, ErrInvalidAuctionParams, err)

	p, err := NewParams(money.New(1000), t0, 24, 1500, 50)
	require.Nil(t, err)
	assert.Equal(t, "1000", p.StartPrice.String())
	assert.Equal(t, "850", p.MinPrice.String())
	assert.Equal(t, t0.Add(24*time.Hour), p.AuctionEnd)
}

func TestLinearDecay(t *testing.T) {
	p := decayParams(t)

	// 10h in: drop = 1000*100*10/10000 = 100
	q := p.CurrentQuote(t0.Add(10 * time.Hour))
	assert.Equal(t, "900", q.Price.String())
	assert.Equal(t, int64(1000), q.DiscountBps)
	assert.True(t, q.Active)
	assert.Equal(t, int64(10), q.ProgressPct)

	// 60h in: computed drop 600 crosses the floor, clamped at 500
	q = p.CurrentQuote(t0.Add(60 * time.Hour))
	assert.Equal(t, "500", q.Price.String())
	assert.True(t, q.Active)
}

func TestPriceBeforeStartAndAfterEnd(t *testing.T) {
	p := decayParams(t)

	q := p.CurrentQuote(t0.Add(-time.Minute))
	assert.Equal(t, "1000", q.Price.String())
	assert.False(t, q.Active)
	assert.Equal(t, int64(0), q.ProgressPct)

	// the start instant itself is outside the active window
	q = p.CurrentQuote(t0)
	assert.Equal(t, "1000", q.Price.String())
	assert.False(t, q.Active)
	assert.Equal(t, 100*time.Hour, q.TimeRemaining)

	q = p.CurrentQuote(p.AuctionEnd)
	assert.Equal(t, "500", q.Price.String())
	assert.False(t, q.Active)
	assert.Equal(t, int64(100), q.ProgressPct)
	assert.Equal(t, time.Duration(0), q.TimeRemaining)

	q = p.CurrentQuote(p.AuctionEnd.Add(48 * time.Hour))
	assert.Equal(t, "500", q.Price.String())
	assert.False(t, q.Active)
}

func TestPartialHoursDoNotDecay(t *testing.T) {
	p := decayParams(t)

	// decay steps on whole elapsed hours, same as the settlement contract
	q := p.CurrentQuote(t0.Add(59 * time.Minute))
	assert.Equal(t, "1000", q.Price.String())
	q = p.CurrentQuote(t0.Add(61 * time.Minute))
	assert.Equal(t, "990", q.Price.String())
}

func TestPriceMonotonicityAndBounds(t *testing.T) {
	p := decayParams(t)

	prev := p.StartPrice
	for h := 0; h <= 100; h++ {
		q := p.CurrentQuote(t0.Add(time.Duration(h) * time.Hour))
		assert.LessOrEqual(t, q.Price.Cmp(prev), 0, "price increased at hour %d", h)
		assert.GreaterOrEqual(t, q.Price.Cmp(p.MinPrice), 0)
		assert.LessOrEqual(t, q.Price.Cmp(p.StartPrice), 0)
		prev = q.Price
	}
}

func TestStarted(t *testing.T) {
	assert.False(t, Params{}.Started())
	assert.True(t, decayParams(t).Started())
}
