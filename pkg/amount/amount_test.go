package amount

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRaw(t *testing.T) {
	tests := []struct {
		name     string
		human    string
		decimals int
		want     string
		wantErr  error
	}{
		{name: "whole amount", human: "25", decimals: 6, want: "25000000"},
		{name: "fractional amount", human: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "truncates excess fraction", human: "1.1234567", decimals: 6, want: "1123456"},
		{name: "never rounds up", human: "0.9999999", decimals: 6, want: "999999"},
		{name: "zero", human: "0", decimals: 6, want: "0"},
		{name: "zero decimals", human: "42.7", decimals: 0, want: "42"},
		{name: "whitespace trimmed", human: "  3.25 ", decimals: 2, want: "325"},
		{name: "empty", human: "", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "non-numeric", human: "abc", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "negative", human: "-1", decimals: 6, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRaw(tt.human, tt.decimals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToHuman(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals int
		maxFrac  int
		want     string
	}{
		{name: "whole", raw: big.NewInt(25000000), decimals: 6, maxFrac: 6, want: "25"},
		{name: "fractional", raw: big.NewInt(1123456), decimals: 6, maxFrac: 6, want: "1.123456"},
		{name: "truncates display", raw: big.NewInt(1123456789), decimals: 9, maxFrac: 6, want: "1.123456"},
		{name: "never rounds display", raw: big.NewInt(1999999999), decimals: 9, maxFrac: 6, want: "1.999999"},
		{name: "nil raw", raw: nil, decimals: 6, maxFrac: 6, want: "0"},
		{name: "zero", raw: big.NewInt(0), decimals: 18, maxFrac: 6, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHuman(tt.raw, tt.decimals, tt.maxFrac))
		})
	}
}

func TestToRawToHumanRoundTrip(t *testing.T) {
	raw, err := ToRaw("123.456789", 6)
	require.NoError(t, err)
	assert.Equal(t, "123.456789", ToHuman(raw, 6, DefaultMaxFractionDigits))
}

func TestRequiredSourceAmount(t *testing.T) {
	t.Run("token at one dollar", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.RequireFromString("25"),
			big.NewInt(100000000), 6,
			decimal.RequireFromString("100"),
		)
		assert.True(t, got.Equal(decimal.RequireFromString("25")), "got %s", got)
	})

	t.Run("token at two dollars", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.RequireFromString("100"),
			big.NewInt(200000000), 6,
			decimal.RequireFromString("400"),
		)
		assert.True(t, got.Equal(decimal.RequireFromString("50")), "got %s", got)
	})

	t.Run("zero on zero balance", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.RequireFromString("25"),
			big.NewInt(0), 6,
			decimal.RequireFromString("100"),
		)
		assert.True(t, got.IsZero())
	})

	t.Run("zero on missing usd valuation", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.RequireFromString("25"),
			big.NewInt(100000000), 6,
			decimal.Zero,
		)
		assert.True(t, got.IsZero())
	})

	t.Run("zero on non-positive target", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.Zero,
			big.NewInt(100000000), 6,
			decimal.RequireFromString("100"),
		)
		assert.True(t, got.IsZero())
	})

	t.Run("nil balance", func(t *testing.T) {
		got := RequiredSourceAmount(
			decimal.RequireFromString("25"),
			nil, 6,
			decimal.RequireFromString("100"),
		)
		assert.True(t, got.IsZero())
	})
}

// A donor holding 100 USDC valued at $100.50 tips $25. The required amount is
// 25/1.005 = 24.87562189..., displayed as 24.875621 and submitted on-chain as
// raw 24875621. Truncation happens exactly once, in ToRaw.
func TestRequiredSourceAmountSingleTruncation(t *testing.T) {
	required := RequiredSourceAmount(
		decimal.RequireFromString("25"),
		big.NewInt(100000000), 6,
		decimal.RequireFromString("100.50"),
	)

	raw, err := ToRaw(required.String(), 6)
	require.NoError(t, err)
	assert.Equal(t, "24875621", raw.String())
	assert.Equal(t, "24.875621", ToHuman(raw, 6, DefaultMaxFractionDigits))
}
