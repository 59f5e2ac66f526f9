package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

// CartLine is a product snapshot plus the quantity held in the cart.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type PriceBracket string

const (
	BracketAny      PriceBracket = ""
	BracketUpTo50   PriceBracket = "0-50"
	Bracket50To100  PriceBracket = "50-100"
	Bracket100To200 PriceBracket = "100-200"
	BracketOver200  PriceBracket = "200+"
)

var (
	fifty      = decimal.NewFromInt(50)
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

// ParsePriceBracket accepts the fixed bracket literals; "" means no filter.
func ParsePriceBracket(s string) (PriceBracket, bool) {
	switch b := PriceBracket(strings.TrimSpace(s)); b {
	case BracketAny, BracketUpTo50, Bracket50To100, Bracket100To200, BracketOver200:
		return b, true
	}
	return BracketAny, false
}

// Contains reports whether price falls in the bracket. Unknown brackets match everything.
func (b PriceBracket) Contains(price decimal.Decimal) bool {
	switch b {
	case BracketUpTo50:
		return price.LessThanOrEqual(fifty)
	case Bracket50To100:
		return price.GreaterThan(fifty) && price.LessThanOrEqual(hundred)
	case Bracket100To200:
		return price.GreaterThan(hundred) && price.LessThanOrEqual(twoHundred)
	case BracketOver200:
		return price.GreaterThan(twoHundred)
	default:
		return true
	}
}
