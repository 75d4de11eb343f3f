package auction

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/model"
)

// Status is the auction lifecycle state. Closing is external: an auction is
// ended once the indexer records an end timestamp.
type Status string

const (
	Active Status = "active"
	Ended  Status = "ended"
)

// PriceQuote is the price of an auction at one instant.
type PriceQuote struct {
	AuctionID      string
	Status         Status
	SecondsElapsed uint64
	Price          *uint256.Int
	// HourlyChange is a signed int256 word; nil for ended auctions.
	HourlyChange *uint256.Int
}

// ParamsOf extracts pricing inputs from a stored auction.
func ParamsOf(a *model.Auction) Params {
	return Params{
		StartPrice:     a.StartPrice,
		PeriodSeconds:  a.PeriodSeconds,
		DecayPerPeriod: a.DecayPerPeriod,
	}
}

// Elapsed is the time since start at now, zero before the start.
func Elapsed(a *model.Auction, now uint64) uint64 {
	if now <= a.StartTimestamp {
		return 0
	}
	return now - a.StartTimestamp
}

// Quote prices a live auction at chain time now. Ended auctions are never
// priced again: the recorded end price is returned as is.
func Quote(a *model.Auction, now uint64) (PriceQuote, error) {
	if a.Ended() {
		q := PriceQuote{
			AuctionID:      a.ID,
			Status:         Ended,
			SecondsElapsed: Elapsed(a, *a.EndTimestamp),
		}
		if a.EndPrice != nil {
			q.Price = new(uint256.Int).Set(a.EndPrice)
		}
		return q, nil
	}
	return QuoteAt(a, Elapsed(a, now))
}

// QuoteAt prices a live auction at an explicit elapsed time.
func QuoteAt(a *model.Auction, secondsElapsed uint64) (PriceQuote, error) {
	p := ParamsOf(a)
	price, err := p.PriceAt(secondsElapsed)
	if err != nil {
		return PriceQuote{}, err
	}
	change, err := p.HourlyPriceChange(secondsElapsed)
	if err != nil {
		return PriceQuote{}, err
	}
	return PriceQuote{
		AuctionID:      a.ID,
		Status:         Active,
		SecondsElapsed: secondsElapsed,
		Price:          price,
		HourlyChange:   change,
	}, nil
}

type quoteJSON struct {
	AuctionID      string  `json:"auction_id"`
	Status         Status  `json:"status"`
	SecondsElapsed uint64  `json:"seconds_elapsed"`
	Price          *string `json:"price"`
	HourlyChange   *string `json:"hourly_change"`
}

// MarshalJSON writes amounts as base-10 strings and the change with its sign.
func (q PriceQuote) MarshalJSON() ([]byte, error) {
	out := quoteJSON{AuctionID: q.AuctionID, Status: q.Status, SecondsElapsed: q.SecondsElapsed}
	if q.Price != nil {
		s := q.Price.Dec()
		out.Price = &s
	}
	if q.HourlyChange != nil {
		s := fixedpoint.SignedString(q.HourlyChange)
		out.HourlyChange = &s
	}
	return json.Marshal(out)
}
