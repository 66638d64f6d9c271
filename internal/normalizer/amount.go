package normalizer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScaleAmount divides a raw integer amount by 10^decimals exactly.
// "1000000000" with 9 decimals is "1"; "0" stays "0".
func ScaleAmount(raw string, decimals int32) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	if decimals < 0 {
		return decimal.Decimal{}, fmt.Errorf("negative decimals %d", decimals)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", raw)
	}
	return d.Shift(-decimals), nil
}

// canonical renders an amount without trailing zeros.
func canonical(d decimal.Decimal) string {
	return d.String()
}
