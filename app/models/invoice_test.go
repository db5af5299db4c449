package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvoiceIsSettled(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		amountPaid string
		want       bool
	}{
		{"unpaid", "1100.00", "0", false},
		{"partial", "1100.00", "500.00", false},
		{"exact", "1100.00", "1100.00", true},
		{"overpaid", "1100.00", "1110.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invoice{
				Total:      decimal.RequireFromString(tt.total),
				AmountPaid: decimal.RequireFromString(tt.amountPaid),
			}
			if got := inv.IsSettled(); got != tt.want {
				t.Errorf("IsSettled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoiceValidate(t *testing.T) {
	inv := Invoice{
		UserID:   "user-1",
		ClientID: "client-1",
		Number:   "2026-0042",
		Status:   InvoiceStatusSent,
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("expected valid invoice, got %v", err)
	}

	inv.Status = "refunded"
	if err := inv.Validate(); err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}
