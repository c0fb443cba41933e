package utils

import "testing"

func TestParseDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"LKR 20,000", "20000"},
		{"Rs. -1,250.50", "-1250.5"},
		{"  $12  ", "12"},
		{"USD 32.53", "32.53"},
	}
	for _, tc := range cases {
		d, err := ParseDecimal(tc.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestDecimalOrZero_Unparseable(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "1.2.3", "LKR"} {
		if d := DecimalOrZero(in); !d.IsZero() {
			t.Fatalf("DecimalOrZero(%q) expected 0, got %s", in, d)
		}
	}
}
