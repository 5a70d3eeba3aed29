package formance

import (
	"strings"
	"testing"
)

func TestLedgerAsset(t *testing.T) {
	tests := []struct {
		currency string
		exponent int
		want     string
	}{
		{"INR", 2, "INR/2"},
		{"USD", 2, "USD/2"},
		{"JPY", 0, "JPY"},
	}
	for _, tt := range tests {
		if got := ledgerAsset(tt.currency, tt.exponent); got != tt.want {
			t.Errorf("ledgerAsset(%q, %d) = %q, want %q", tt.currency, tt.exponent, got, tt.want)
		}
	}
}

func TestNumscriptSettlement_DeclaresAllVars(t *testing.T) {
	for _, v := range []string{"$asset", "$amount", "$author_id", "$order_id", "$payment_id", "$book_id", "$buyer_id"} {
		if !strings.Contains(numscriptSettlement, v) {
			t.Errorf("Expected numscript to use %s", v)
		}
	}
}
