// Package oracle gates collateral price messages on freshness.
//
// Messages arrive already signature-verified; this package only decides
// whether a message may be trusted at a given chain time, and which price
// kinds a consumer needs.
package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PriceType is the kind of price a message attests to.
type PriceType string

const (
	Spot  PriceType = "spot"
	TWAP  PriceType = "twap"
	Lower PriceType = "lower"
	Upper PriceType = "upper"
)

var (
	// ErrUnknownPriceType is returned by ParsePriceType.
	ErrUnknownPriceType = errors.New("oracle: unknown price type")

	// ErrMissingPriceType is returned when a required price kind has no message.
	ErrMissingPriceType = errors.New("oracle: required price type missing")
)

// ParsePriceType accepts the lower-case names used by the oracle feed.
func ParsePriceType(s string) (PriceType, error) {
	switch pt := PriceType(strings.ToLower(strings.TrimSpace(s))); pt {
	case Spot, TWAP, Lower, Upper:
		return pt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPriceType, s)
	}
}

// Message is a signed price attestation for one collateral collection.
type Message struct {
	Collateral common.Address `json:"collateral"`
	Price      *uint256.Int   `json:"price"`
	Timestamp  uint64         `json:"timestamp"`
	PriceType  PriceType      `json:"price_type"`
}

// IsSynced reports whether msg may be trusted at referenceTimestamp: a message
// stamped at or before the reference is synced. A nil message is never synced.
func IsSynced(msg *Message, referenceTimestamp uint64) bool {
	if msg == nil {
		return false
	}
	return msg.Timestamp <= referenceTimestamp
}
