package auction

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/model"
)

const day = 86400

var (
	startPrice = uint256.MustFromDecimal("585578162375090237174")
	decay70    = uint256.MustFromDecimal("700000000000000000")
)

func TestCurrentPriceMatchesContract(t *testing.T) {
	// Reference values from the contract's fixed-point library.
	cases := []struct {
		elapsed uint64
		want    string
	}{
		{0, "585578162375090237174"},
		{1, "585570002476130200965"},
		{10, "585496568502085151005"},
		{1800, "571072918222355248145"},
		{3600, "556926980685627021456"},
		{5400, "543131449449754234531"},
		{7200, "529677644667582155677"},
		{43200, "320734368715259861955"},
		{day, "175673448712527070566"},
		{2 * day, "52702034613758120760"},
		{30 * day, "120043"},
		{365 * day, "0"},
	}
	for _, tc := range cases {
		got, err := CurrentPrice(startPrice, tc.elapsed, day, decay70)
		require.NoError(t, err, "elapsed %d", tc.elapsed)
		require.Equal(t, tc.want, got.Dec(), "elapsed %d", tc.elapsed)
	}
}

func TestCurrentPriceMonotonic(t *testing.T) {
	prev := new(uint256.Int).Set(startPrice)
	for elapsed := uint64(0); elapsed <= 3*day; elapsed += 1799 {
		got, err := CurrentPrice(startPrice, elapsed, day, decay70)
		require.NoError(t, err)
		require.False(t, got.Gt(prev), "price rose at %d", elapsed)
		prev = got
	}
}

func TestCurrentPriceHalfDecay(t *testing.T) {
	one := fixedpoint.WAD()
	half := uint256.MustFromDecimal("500000000000000000")

	got, err := CurrentPrice(one, day, day, half)
	require.NoError(t, err)
	require.Equal(t, "499999999999999999", got.Dec(), "powWad rounds down")

	got, err = CurrentPrice(one, day/2, day, half)
	require.NoError(t, err)
	require.Equal(t, "707106781186547524", got.Dec())
}

func TestCurrentPriceNoDecay(t *testing.T) {
	got, err := CurrentPrice(startPrice, 3600, day, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, startPrice.Dec(), got.Dec())
}

func TestCurrentPriceFullDecay(t *testing.T) {
	got, err := CurrentPrice(startPrice, 0, day, fixedpoint.WAD())
	require.NoError(t, err)
	require.Equal(t, startPrice.Dec(), got.Dec())

	got, err = CurrentPrice(startPrice, 1, day, fixedpoint.WAD())
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestCurrentPriceInvalidParams(t *testing.T) {
	_, err := CurrentPrice(startPrice, 10, 0, decay70)
	require.ErrorIs(t, err, ErrInvalidParams)

	tooMuch := new(uint256.Int).AddUint64(fixedpoint.WAD(), 1)
	_, err = CurrentPrice(startPrice, 10, day, tooMuch)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestHourlyPriceChange(t *testing.T) {
	got, err := HourlyPriceChange(startPrice, 7200, day, decay70)
	require.NoError(t, err)
	require.Equal(t, "-27249336018044865779", fixedpoint.SignedString(got))

	// Within the first hour the look-back clamps to the start.
	got, err = HourlyPriceChange(startPrice, 1, day, decay70)
	require.NoError(t, err)
	require.Equal(t, "-8159898960036209", fixedpoint.SignedString(got))

	got, err = HourlyPriceChange(startPrice, 0, day, decay70)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func liveAuction() *model.Auction {
	return &model.Auction{
		ID:             "a1",
		StartPrice:     startPrice,
		StartTimestamp: 1_700_000_000,
		PeriodSeconds:  day,
		DecayPerPeriod: decay70,
	}
}

func TestQuoteActive(t *testing.T) {
	a := liveAuction()

	q, err := Quote(a, a.StartTimestamp+3600)
	require.NoError(t, err)
	require.Equal(t, Active, q.Status)
	require.Equal(t, uint64(3600), q.SecondsElapsed)
	require.Equal(t, "556926980685627021456", q.Price.Dec())

	q, err = Quote(a, a.StartTimestamp-5)
	require.NoError(t, err)
	require.Equal(t, startPrice.Dec(), q.Price.Dec(), "clock skew before start clamps to zero elapsed")
}

func TestQuoteEndedIsFrozen(t *testing.T) {
	a := liveAuction()
	end := a.StartTimestamp + 600
	a.EndTimestamp = &end
	a.EndPrice = uint256.NewInt(42)
	// Invalid params prove the pricer is not consulted once the auction ended.
	a.PeriodSeconds = 0

	q, err := Quote(a, a.StartTimestamp+10*day)
	require.NoError(t, err)
	require.Equal(t, Ended, q.Status)
	require.Equal(t, uint64(600), q.SecondsElapsed)
	require.Equal(t, "42", q.Price.Dec())
	require.Nil(t, q.HourlyChange)
}

func TestQuoteJSON(t *testing.T) {
	q, err := QuoteAt(liveAuction(), 7200)
	require.NoError(t, err)

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"auction_id": "a1",
		"status": "active",
		"seconds_elapsed": 7200,
		"price": "529677644667582155677",
		"hourly_change": "-27249336018044865779"
	}`, string(raw))
}
