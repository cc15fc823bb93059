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
		{" 2.50 ", "2.5", true},
		{"15000", "15000", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"124.4", 124},
		{"124.5", 125},
		{"2.5", 3},
		{"-2.5", -2},
		{"-2.6", -3},
		{"79.99", 80},
	}
	for _, tc := range cases {
		if got := RoundHalfUp(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("RoundHalfUp(%s) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(250), decimal.NewFromInt(200))
	if !got.Equal(decimal.NewFromInt(125)) {
		t.Fatalf("expected 125, got %s", got)
	}
	if !Percent(decimal.NewFromInt(10), decimal.Zero).IsZero() {
		t.Fatal("expected zero for non-positive whole")
	}
}
