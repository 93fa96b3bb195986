package near

import (
	"fmt"
	"math/big"
	"strings"
)

// NEAR constants
const (
	// NearDecimals is the number of decimal places in one NEAR; one
	// yoctoNEAR is 10^-24 NEAR.
	NearDecimals = 24
	// DisplayDecimals is the precision used when formatting amounts for
	// humans and for ledger records.
	DisplayDecimals = 4
)

// NEARAmount represents a NEAR amount in yoctoNEAR, the chain's smallest
// indivisible unit.
type NEARAmount struct {
	Value *big.Int
}

// ParseNEAR creates a NEARAmount from a decimal string like "1.5".
// Fractional digits past the 24th are truncated. The parse is exact; the
// amount never passes through a binary float.
func ParseNEAR(amount string) (*NEARAmount, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > NearDecimals {
		frac = frac[:NearDecimals]
	}
	frac = frac + strings.Repeat("0", NearDecimals-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return &NEARAmount{Value: value}, nil
}

// FromYoctoString creates a NEARAmount from a base-unit integer string.
func FromYoctoString(yocto string) (*NEARAmount, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(yocto), 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid yoctoNEAR value %q", yocto)
	}
	return &NEARAmount{Value: value}, nil
}

// Zero returns a new NEARAmount with value 0.
func Zero() *NEARAmount {
	return &NEARAmount{Value: new(big.Int)}
}

// Yocto returns the amount in yoctoNEAR.
func (a *NEARAmount) Yocto() *big.Int {
	return a.Value
}

// YoctoString returns the amount in yoctoNEAR as a decimal integer string,
// the representation the contract expects for U128 arguments.
func (a *NEARAmount) YoctoString() string {
	return a.Value.String()
}

// String formats the amount in NEAR with fixed 4-decimal precision.
func (a *NEARAmount) String() string {
	s := a.Value.String()
	if len(s) <= NearDecimals {
		s = strings.Repeat("0", NearDecimals-len(s)+1) + s
	}
	whole := s[:len(s)-NearDecimals]
	frac := s[len(s)-NearDecimals:]
	return whole + "." + frac[:DisplayDecimals]
}

// Add adds two NEAR amounts.
func (a *NEARAmount) Add(b *NEARAmount) *NEARAmount {
	if a == nil || b == nil {
		return nil
	}
	return &NEARAmount{Value: new(big.Int).Add(a.Value, b.Value)}
}

// Cmp compares two NEAR amounts.
func (a *NEARAmount) Cmp(b *NEARAmount) int {
	if a == nil || b == nil {
		return 0
	}
	return a.Value.Cmp(b.Value)
}

// IsZero returns true if the amount is zero.
func (a *NEARAmount) IsZero() bool {
	if a == nil || a.Value == nil {
		return true
	}
	return a.Value.Sign() == 0
}

// IsPositive returns true if the amount is positive.
func (a *NEARAmount) IsPositive() bool {
	if a == nil || a.Value == nil {
		return false
	}
	return a.Value.Sign() > 0
}

// ToYocto converts a decimal NEAR string to a yoctoNEAR integer string. A
// malformed input yields the zero base-unit value rather than an error;
// callers that need to distinguish should use ParseNEAR directly.
func ToYocto(amount string) string {
	a, err := ParseNEAR(amount)
	if err != nil {
		return "0"
	}
	return a.YoctoString()
}

// FromYocto converts a yoctoNEAR integer string to a decimal NEAR string
// with fixed 4-decimal precision. A malformed input yields the zero value.
func FromYocto(yocto string) string {
	a, err := FromYoctoString(yocto)
	if err != nil {
		return "0"
	}
	return a.String()
}
