// Package pricing computes Dutch-auction clearing prices. It is a pure
// function of the auction parameters and the query time: there is no
// scheduler that decays prices in the background, every caller re-derives
// the current price from the wall clock.
package pricing

import (
	"errors"
	"time"

	"github.com/sangini/invoicehub/common"
	"github.com/sangini/invoicehub/lib/money"
)

var ErrInvalidAuctionParams = errors.New("pricing: invalid auction parameters")

// Params are the immutable auction parameters stamped on an invoice when
// the supplier starts the auction.
type Params struct {
	AuctionStart time.Time
	AuctionEnd   time.Time
	StartPrice   money.Money
	MinPrice     money.Money
	// Price drop per elapsed hour, in basis points of the start price.
	DropRateBps int64
}

// Quote is the instantaneous state of an auction.
type Quote struct {
	Price         money.Money
	DiscountBps   int64
	ProgressPct   int64
	TimeRemaining time.Duration
	Active        bool
}

// NewParams validates supplier input and derives the price bounds.
// The start price is the invoice face amount; the floor is the face amount
// less the maximum discount the supplier is willing to accept.
func NewParams(faceAmount money.Money, start time.Time, durationHours int64, maxDiscountBps int64, dropRateBps int64) (Params, error) {
	if durationHours <= 0 {
		return Params{}, ErrInvalidAuctionParams
	}
	if maxDiscountBps <= 0 || maxDiscountBps > common.MaxDiscountBps {
		return Params{}, ErrInvalidAuctionParams
	}
	if dropRateBps < 0 {
		return Params{}, ErrInvalidAuctionParams
	}
	if !faceAmount.IsPositive() {
		return Params{}, ErrInvalidAuctionParams
	}
	minPrice, err := faceAmount.Sub(faceAmount.MulBps(maxDiscountBps))
	if err != nil {
		return Params{}, ErrInvalidAuctionParams
	}
	return Params{
		AuctionStart: start,
		AuctionEnd:   start.Add(time.Duration(durationHours) * time.Hour),
		StartPrice:   faceAmount,
		MinPrice:     minPrice,
		DropRateBps:  dropRateBps,
	}, nil
}

// CurrentQuote evaluates the auction at the given instant.
//
// At or before AuctionStart the price holds at StartPrice and the auction
// is not yet active: the active window is strictly between start and end,
// both boundary instants quote as inactive. At or after AuctionEnd the
// price is pinned at MinPrice and the auction is terminal. In between the
// price decays linearly per whole elapsed hour and is clamped at the
// floor.
func (p Params) CurrentQuote(now time.Time) Quote {
	duration := p.AuctionEnd.Sub(p.AuctionStart)

	if !now.After(p.AuctionStart) {
		return Quote{
			Price:         p.StartPrice,
			DiscountBps:   0,
			ProgressPct:   0,
			TimeRemaining: duration,
			Active:        false,
		}
	}
	if !now.Before(p.AuctionEnd) {
		return Quote{
			Price:         p.MinPrice,
			DiscountBps:   p.discountBps(p.MinPrice),
			ProgressPct:   100,
			TimeRemaining: 0,
			Active:        false,
		}
	}

	elapsed := now.Sub(p.AuctionStart)
	hoursElapsed := int64(elapsed / time.Hour)
	drop := p.StartPrice.MulBps(p.DropRateBps * hoursElapsed)
	price, err := p.StartPrice.Sub(drop)
	if err != nil || price.Cmp(p.MinPrice) < 0 {
		price = p.MinPrice
	}

	progress := int64(elapsed * 100 / duration)
	if progress > 100 {
		progress = 100
	}
	return Quote{
		Price:         price,
		DiscountBps:   p.discountBps(price),
		ProgressPct:   progress,
		TimeRemaining: p.AuctionEnd.Sub(now),
		Active:        true,
	}
}

// Started reports whether auction parameters have ever been stamped.
func (p Params) Started() bool {
	return !p.AuctionStart.IsZero()
}

func (p Params) discountBps(price money.Money) int64 {
	if !p.StartPrice.IsPositive() {
		return 0
	}
	diff, err := p.StartPrice.Sub(price)
	if err != nil {
		return 0
	}
	bps, err := diff.MulDiv(money.New(common.BpsDivisor), p.StartPrice)
	if err != nil {
		return 0
	}
	// bounded by 10000, always fits an int64
	return bps.Int64()
}
