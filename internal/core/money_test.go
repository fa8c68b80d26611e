package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true},
		{" 2.50 ", "2.5", true},
		{"75000", "75000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,000.50", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseNonNegativeAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"0", "0", true},
		{"0,004", "0", true},
		{"12,50", "12.5", true},
		{"12.345", "12.35", true},
		{"-1", "", false},
		{"", "", false},
		{"1,000.50", "", false},
	}
	for _, tc := range cases {
		got, err := ParseNonNegativeAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	if v, err := ParseOptionalAmount("  "); err != nil || v != nil {
		t.Fatalf("blank: expected nil, got %v (err=%v)", v, err)
	}
	if v, err := ParseOptionalAmount("0"); err != nil || v == nil || !v.IsZero() {
		t.Fatalf("zero: expected 0, got %v (err=%v)", v, err)
	}
	if v, err := ParseOptionalAmount("12,5"); err != nil || v == nil || v.String() != "12.5" {
		t.Fatalf("expected 12.5, got %v (err=%v)", v, err)
	}
	if _, err := ParseOptionalAmount("-3"); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"0":         "Rs. 0.00",
		"999":       "Rs. 999.00",
		"8000":      "Rs. 8,000.00",
		"75000":     "Rs. 75,000.00",
		"125000":    "Rs. 1,25,000.00",
		"1234567.5": "Rs. 12,34,567.50",
		"999.999":   "Rs. 1,000.00",
		"-42000":    "-Rs. 42,000.00",
	}
	for in, want := range cases {
		if got := FormatCurrency(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatCurrency(%s) = %s, want %s", in, got, want)
		}
	}
}
