// Package domain defines the records and derived portfolio state shared by the
// accounting engine, the valuation step and the collaborators around them.
package domain

import (
	"fmt"
	"strings"
)

// Pair is the exchange market used to quote an asset.
type Pair struct {
	// From is the base currency symbol.
	From string
	// To is the quote currency symbol.
	To string
}

// NewPair builds an upper-cased pair for the given base and quote symbols.
func NewPair(base, quote string) Pair {
	return Pair{
		From: strings.ToUpper(strings.TrimSpace(base)),
		To:   strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}
