package domain

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"19.99", 1999},
		{"0", 0},
		{"0.00", 0},
		{"10.005", 1001},
		{"10.004", 1000},
		{"  7.5 ", 750},
		{"1234", 123400},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "12,50"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) expected error", in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1999); got != "19.99" {
		t.Fatalf("FormatAmount(1999) = %q", got)
	}
	if got := FormatAmount(0); got != "0.00" {
		t.Fatalf("FormatAmount(0) = %q", got)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" eur ", "EUR"); got != "EUR" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeCurrency("", "EUR"); got != "EUR" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeCurrency("USDX", "EUR"); got != "EUR" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("<strong>Power Rack</strong> &amp; Bench"); got != "Power Rack & Bench" {
		t.Fatalf("got %q", got)
	}
}
