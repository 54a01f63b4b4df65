// Package money converts between the ledger's milliunit integers and
// decimal currency amounts, and formats amounts for display.
//
// A milliunit is 1/1000 of a currency unit, so $12.34 is 12340 milliunits.
// Conversion is the one place arithmetic correctness is enforced
// defensively: inputs that overflow the safe range or that cannot be
// represented as whole milliunits are rejected with a descriptive error.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MilliunitsPerUnit is the number of milliunits in one currency unit.
const MilliunitsPerUnit = 1000

// MaxSafeMilliunits bounds amounts so they survive a round trip through a
// JSON number (IEEE 754 double): 2^53 - 1.
const MaxSafeMilliunits = int64(1)<<53 - 1

// Sign classifies a signed amount.
type Sign string

const (
	SignCredit   Sign = "credit"
	SignDebit    Sign = "debit"
	SignBalanced Sign = "balanced"
)

var milliFactor = decimal.NewFromInt(MilliunitsPerUnit)

// FromDecimal converts a decimal amount in major currency units to
// milliunits. It returns an error when the amount has sub-milliunit
// precision or falls outside the safe integer range.
func FromDecimal(d decimal.Decimal) (int64, error) {
	m := d.Mul(milliFactor)
	if !m.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-milliunit precision", d.String())
	}
	milli := m.IntPart()
	if milli > MaxSafeMilliunits || milli < -MaxSafeMilliunits {
		return 0, fmt.Errorf("amount %s overflows safe milliunit range", d.String())
	}
	return milli, nil
}

// ToDecimal converts milliunits to a decimal amount in major units.
func ToDecimal(milli int64) decimal.Decimal {
	return decimal.New(milli, -3)
}

// Display renders milliunits as a fixed two-decimal string with the
// currency code, e.g. "-22.22 USD".
func Display(milli int64, currency string) string {
	return fmt.Sprintf("%s %s", ToDecimal(milli).StringFixed(2), currency)
}

// Classify reports whether a milliunit amount is a credit (positive),
// debit (negative), or balanced (zero).
func Classify(milli int64) Sign {
	switch {
	case milli > 0:
		return SignCredit
	case milli < 0:
		return SignDebit
	default:
		return SignBalanced
	}
}
