package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// signed formats a percentage with an explicit sign.
func signed(p tracker.Percent) string { return p.SignedString() }

// month formats the month of a summary bound, or "-" when unset.
func month(m date.Month) string {
	if m.IsZero() {
		return "-"
	}
	return m.String()
}
