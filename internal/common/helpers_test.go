package common

import "testing"

func TestPluralizeCoins(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "монет"},
		{1, "монета"},
		{2, "монеты"},
		{4, "монеты"},
		{5, "монет"},
		{11, "монет"},
		{12, "монет"},
		{21, "монета"},
		{22, "монеты"},
		{111, "монет"},
		{-1, "монета"},
	}
	for _, tt := range tests {
		if got := PluralizeCoins(tt.n); got != tt.want {
			t.Errorf("PluralizeCoins(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPluralizeCases(t *testing.T) {
	if got := PluralizeCases(3); got != "кейса" {
		t.Errorf("PluralizeCases(3) = %q", got)
	}
	if got := PluralizeCases(25); got != "кейсов" {
		t.Errorf("PluralizeCases(25) = %q", got)
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 монет"},
		{1, "1 монета"},
		{50, "50 монет"},
		{2350, "2 350 монет"},
		{1000001, "1 000 001 монета"},
		{-5, "-5 монет"},
	}
	for _, tt := range tests {
		if got := FormatBalance(tt.n); got != tt.want {
			t.Errorf("FormatBalance(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
