package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted price.
const CurrencySymbol = "£"

// FormatPrice renders price as £<integer>.<two digits>. Halves round away
// from zero on the shortest decimal form of the float, so 1.005 becomes
// "£1.01". Negative values keep their sign ahead of the symbol.
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return CurrencySymbol + strconv.FormatFloat(price, 'f', -1, 64)
	}
	d := decimal.NewFromFloat(price).Round(2)
	if d.IsNegative() {
		return "-" + CurrencySymbol + d.Neg().StringFixed(2)
	}
	return CurrencySymbol + d.StringFixed(2)
}

// PencePerLitre converts a total price for volume litres into pence per litre.
func PencePerLitre(totalPrice, volume float64) (float64, error) {
	if !positive(volume) {
		return 0, &InputError{Field: "volume", Value: volume}
	}
	if math.IsNaN(totalPrice) || math.IsInf(totalPrice, 0) {
		return 0, &InputError{Field: "total price", Value: totalPrice}
	}
	return totalPrice / volume * 100, nil
}

// FormatPricePerLitre renders the unit price with one decimal place and a " ppl" suffix.
func FormatPricePerLitre(totalPrice, volume float64) (string, error) {
	ppl, err := PencePerLitre(totalPrice, volume)
	if err != nil {
		return "", err
	}
	return decimal.NewFromFloat(ppl).StringFixed(1) + " ppl", nil
}

// ParsePrice reads a price such as "£1,234.50", ignoring currency symbols,
// thousands separators and surrounding whitespace.
func ParsePrice(s string) (float64, error) {
	cleaned := strings.NewReplacer(CurrencySymbol, "", ",", "").Replace(s)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, &FormatError{Input: s}
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &FormatError{Input: s, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FormatError{Input: s}
	}
	return v, nil
}

// RoundPence rounds price to two decimal places using the FormatPrice rule.
func RoundPence(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}
