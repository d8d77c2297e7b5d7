package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 1.005, want: 1.01},
		{in: 2.675, want: 2.68},
		{in: 10.0 / 3.0, want: 3.33},
		{in: -1.005, want: -1.01},
		{in: 0.1 + 0.2, want: 0.3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, 12346.0, RoundCurrency(12345.5, "IDR"))
	assert.Equal(t, 12345.5, RoundCurrency(12345.5, "AUD"))
	assert.Equal(t, 0.33, RoundCurrency(1.0/3.0, "usd"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "AUD 105.00", FormatMoney(105, "aud"))
	assert.Equal(t, "IDR 15000", FormatMoney(15000, "IDR"))
	assert.Equal(t, "3.50", FormatMoney(3.5, ""))
}
