package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a decimal amount that encodes as a bare JSON number, which is
// what the catalog service expects.
type Price struct {
	decimal.Decimal
}

func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

func ParsePrice(raw string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", raw, ErrInvalidPrice)
	}
	if d.IsNegative() {
		return Price{}, ErrInvalidPrice
	}
	return Price{Decimal: d}, nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// USD renders the price the way the console displays it, e.g. $1,234.50.
func (p Price) USD() string {
	s := p.Decimal.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
