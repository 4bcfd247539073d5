package tracker

// Performance holds the opening and closing balances of a month and its return.
type Performance struct {
	Start  Money   `json:"start"`
	End    Money   `json:"end"`
	Return Percent `json:"return"` // growth over the opening balance
}

// Change is the overall balance variation, cash flows included.
func (p Performance) Change() Money {
	return p.End.Sub(p.Start)
}
