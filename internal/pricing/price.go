// Package pricing extracts numeric prices from the loosely structured price
// strings the listing source returns.
package pricing

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Currency string

const (
	VND Currency = "VND"
	USD Currency = "USD"
)

const dongSign = "₫"

// Price is a parsed nightly price.
type Price struct {
	Amount   int64
	Currency Currency
}

type pricePayload struct {
	Raw []struct {
		Items []struct {
			PriceString string `json:"priceString"`
		} `json:"items"`
	} `json:"raw"`
}

// ParsePrice reads the first item of the first raw entry of a payload shaped
// like {"raw":[{"items":[{"priceString":"₫1.200.000"}]}]}. Any mismatch in
// shape or an unparsable price string reports false.
func ParsePrice(payload json.RawMessage) (Price, bool) {
	if len(payload) == 0 {
		return Price{}, false
	}
	var p pricePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Price{}, false
	}
	if len(p.Raw) == 0 || len(p.Raw[0].Items) == 0 {
		return Price{}, false
	}
	s := p.Raw[0].Items[0].PriceString
	amount, ok := ParseDigits(s)
	if !ok {
		return Price{}, false
	}
	return Price{Amount: amount, Currency: CurrencyOf(s)}, true
}

// ParseDigits drops every non-digit rune of s and parses the rest as a
// base-10 integer. Thousand separators and currency symbols vanish, so
// "₫1.200.000" is 1200000.
func ParseDigits(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CurrencyOf is VND when the dong sign appears in s, otherwise USD.
func CurrencyOf(s string) Currency {
	if strings.Contains(s, dongSign) {
		return VND
	}
	return USD
}
