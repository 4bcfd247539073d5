package tracker

import (
	"fmt"
	"math"
)

// Percent is a rate of return in percent: 12.5 means 12.5%.
type Percent float64

// percentTolerance is the precision of Equal, far below what reports display.
const percentTolerance = 1e-4

// Equal reports whether p and q are the same rate within percentTolerance.
func (p Percent) Equal(q Percent) bool {
	return math.Abs(float64(p-q)) < percentTolerance
}

// String formats the rate with two decimals, "12.34%".
func (p Percent) String() string { return fmt.Sprintf("%.2f%%", float64(p)) }

// SignedString formats the rate with its sign, "+1.20%" or "-0.75%". A rate
// that rounds to zero is shown as "-".
func (p Percent) SignedString() string {
	if math.Abs(float64(p)) < 0.005 {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", float64(p))
}
