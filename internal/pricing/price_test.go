package pricing

import (
	"encoding/json"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantOK     bool
		wantAmount int64
		wantCur    Currency
	}{
		{"dong with dot separators", `{"raw":[{"items":[{"priceString":"₫1.200.000"}]}]}`, true, 1200000, VND},
		{"dollar", `{"raw":[{"items":[{"priceString":"$45"}]}]}`, true, 45, USD},
		{"dollar with comma and suffix", `{"raw":[{"items":[{"priceString":"$1,045 night"}]}]}`, true, 1045, USD},
		{"only first item counts", `{"raw":[{"items":[{"priceString":"₫900"},{"priceString":"$1"}]}]}`, true, 900, VND},
		{"empty object", `{}`, false, 0, ""},
		{"empty raw", `{"raw":[]}`, false, 0, ""},
		{"empty items", `{"raw":[{"items":[]}]}`, false, 0, ""},
		{"missing priceString", `{"raw":[{"items":[{}]}]}`, false, 0, ""},
		{"no digits", `{"raw":[{"items":[{"priceString":"Free"}]}]}`, false, 0, ""},
		{"raw is a string", `{"raw":"₫100"}`, false, 0, ""},
		{"priceString is a number", `{"raw":[{"items":[{"priceString":100}]}]}`, false, 0, ""},
		{"overflow", `{"raw":[{"items":[{"priceString":"$99999999999999999999999"}]}]}`, false, 0, ""},
		{"null", `null`, false, 0, ""},
		{"empty payload", ``, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(json.RawMessage(tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("ParsePrice() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				if got != (Price{}) {
					t.Errorf("ParsePrice() = %+v, want zero Price", got)
				}
				return
			}
			if got.Amount != tt.wantAmount || got.Currency != tt.wantCur {
				t.Errorf("ParsePrice() = %+v, want {%d %s}", got, tt.wantAmount, tt.wantCur)
			}
		})
	}
}

func TestParseDigits(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"₫350.000", 350000, true},
		{"$12", 12, true},
		{"0", 0, true},
		{"", 0, false},
		{"—", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDigits(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseDigits(%q) = %d, %v, want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
