package near

import (
	"math/big"
	"testing"
)

func yocto(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test value: " + s)
	}
	return v
}

func TestParseNEAR(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    *big.Int
		wantErr bool
	}{
		{"zero", "0", yocto("0"), false},
		{"one_near", "1", yocto("1000000000000000000000000"), false},
		{"one_point_five", "1.5", yocto("1500000000000000000000000"), false},
		{"four_decimals", "0.1234", yocto("123400000000000000000000"), false},
		{"truncates_past_scale", "0.0000000000000000000000001", yocto("0"), false},
		{"leading_dot", ".5", yocto("500000000000000000000000"), false},
		{"trailing_dot", "2.", yocto("2000000000000000000000000"), false},
		{"large_amount", "123456.789", yocto("123456789000000000000000000000"), false},
		{"empty", "", nil, true},
		{"non_numeric", "abc", nil, true},
		{"nan", "NaN", nil, true},
		{"negative", "-1", nil, true},
		{"double_dot", "1.2.3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNEAR(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseNEAR(%q) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.Value.Cmp(tt.want) != 0 {
				t.Errorf("ParseNEAR(%q) got = %v, want %v", tt.amount, got.Value, tt.want)
			}
		})
	}
}

func TestToYocto(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"one_point_five", "1.5", "1500000000000000000000000"},
		{"zero", "0", "0"},
		{"non_numeric_degrades_to_zero", "abc", "0"},
		{"empty_degrades_to_zero", "", "0"},
		{"nan_degrades_to_zero", "NaN", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToYocto(tt.amount); got != tt.want {
				t.Errorf("ToYocto(%q) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFromYocto(t *testing.T) {
	tests := []struct {
		name  string
		yocto string
		want  string
	}{
		{"zero", "0", "0.0000"},
		{"one_near", "1000000000000000000000000", "1.0000"},
		{"one_point_five", "1500000000000000000000000", "1.5000"},
		{"sub_display_precision", "1", "0.0000"},
		{"large", "123456789000000000000000000000", "123456.7890"},
		{"non_numeric_degrades_to_zero", "abc", "0"},
		{"empty_degrades_to_zero", "", "0"},
		{"negative_degrades_to_zero", "-5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromYocto(tt.yocto); got != tt.want {
				t.Errorf("FromYocto(%q) = %q, want %q", tt.yocto, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// Amounts with up to 4 fractional digits survive the round trip at
	// 4-decimal display precision.
	tests := []struct {
		in   string
		want string
	}{
		{"1.5", "1.5000"},
		{"0.1", "0.1000"},
		{"0.0001", "0.0001"},
		{"42", "42.0000"},
		{"12345.6789", "12345.6789"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FromYocto(ToYocto(tt.in)); got != tt.want {
				t.Errorf("FromYocto(ToYocto(%q)) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNEARAmount_Add(t *testing.T) {
	// 0.1 + 0.2 must sum exactly, with no binary float drift.
	a1, _ := ParseNEAR("0.1")
	a2, _ := ParseNEAR("0.2")
	want, _ := ParseNEAR("0.3")

	got := a1.Add(a2)
	if got.Cmp(want) != 0 {
		t.Errorf("Add() = %v, want %v", got.Value, want.Value)
	}
	if got.String() != "0.3000" {
		t.Errorf("Add().String() = %q, want %q", got.String(), "0.3000")
	}
}

func TestNEARAmount_Predicates(t *testing.T) {
	z := Zero()
	if !z.IsZero() {
		t.Errorf("Zero().IsZero() = false")
	}
	if z.IsPositive() {
		t.Errorf("Zero().IsPositive() = true")
	}

	a, _ := ParseNEAR("1")
	if a.IsZero() {
		t.Errorf("IsZero() = true for 1 NEAR")
	}
	if !a.IsPositive() {
		t.Errorf("IsPositive() = false for 1 NEAR")
	}
	if a.Cmp(z) != 1 {
		t.Errorf("Cmp(1, 0) want 1")
	}
}
