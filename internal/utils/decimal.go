package utils

import (
	"math"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func NumericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil {
		return f.Float64
	}
	// fallback to string parse
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	d, err := decimal.NewFromString(strings.Trim(string(text), `"`))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func OptionalNumeric(value pgtype.Numeric) *float64 {
	if !value.Valid {
		return nil
	}
	f := NumericToFloat64(value)
	return &f
}

// Round2 rounds half away from zero at the cent. Going through decimal keeps
// values such as 1.005 from collapsing to 1.00.
func Round2(value float64) float64 {
	return roundPlaces(value, 2)
}

// CurrencyDecimals is the number of minor-unit digits used for amounts.
func CurrencyDecimals(currency string) int32 {
	if strings.EqualFold(strings.TrimSpace(currency), "IDR") {
		return 0
	}
	return 2
}

func RoundCurrency(value float64, currency string) float64 {
	return roundPlaces(value, CurrencyDecimals(currency))
}

func FormatMoney(value float64, currency string) string {
	amount := decimal.NewFromFloat(value).StringFixed(CurrencyDecimals(currency))
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return amount
	}
	return code + " " + amount
}

func IsFinitePositive(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}

func roundPlaces(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}
