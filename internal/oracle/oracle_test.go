package oracle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var collection = common.HexToAddress("0xb7f7f6c52f2e2fdb1963eab30438024864c313f6")

func msgAt(ts uint64, pt PriceType) *Message {
	return &Message{
		Collateral: collection,
		Price:      uint256.NewInt(1_000_000),
		Timestamp:  ts,
		PriceType:  pt,
	}
}

func TestIsSynced(t *testing.T) {
	require.True(t, IsSynced(msgAt(1000, Lower), 1001))
	require.True(t, IsSynced(msgAt(1000, Lower), 1000), "equal timestamps count as synced")
	require.False(t, IsSynced(msgAt(1000, Lower), 999))
	require.False(t, IsSynced(nil, 1000))
}

func TestParsePriceType(t *testing.T) {
	pt, err := ParsePriceType(" LOWER ")
	require.NoError(t, err)
	require.Equal(t, Lower, pt)

	_, err = ParsePriceType("median")
	require.ErrorIs(t, err, ErrUnknownPriceType)
}

func TestRequirementsResolve(t *testing.T) {
	require := require.New(t)

	req := NewRequirements(Lower, TWAP, Lower)
	require.Equal([]PriceType{Lower, TWAP}, req.Types())

	resolved, err := req.Resolve([]*Message{
		msgAt(10, Lower),
		msgAt(20, Lower),
		msgAt(15, TWAP),
		msgAt(30, Spot),
	})
	require.NoError(err)
	require.Len(resolved, 2)
	require.Equal(uint64(20), resolved[Lower].Timestamp, "newest message wins")
	require.True(resolved.Synced(20))
	require.False(resolved.Synced(19))
}

func TestRequirementsMissing(t *testing.T) {
	_, err := NewRequirements(Lower, Upper).Resolve([]*Message{msgAt(10, Lower)})
	require.ErrorIs(t, err, ErrMissingPriceType)
}
