package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{" 2.50 ", 250, true},
		{"125000", 12500000, true},
		{"1.005", 0, false}, // sub-cent precision is rejected
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(decimal.RequireFromString("350.00"))
	if err != nil || m.Cents != 35000 {
		t.Fatalf("got %d, %v", m.Cents, err)
	}
	if _, err := MoneyFromDecimal(decimal.RequireFromString("0.001")); err == nil {
		t.Fatal("expected error for three decimal places")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		1:       "0.01",
		12500:   "125.00",
		-1000:   "-10.00",
		2250050: "22500.50",
	}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Fatalf("Cents(%d).String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := Cents(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := Cents(0).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}
