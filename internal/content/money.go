// AngelaMos | 2026
// money.go

package content

import (
	"fmt"
	"strconv"
	"strings"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
)

var supportedCurrencies = map[Currency]struct{}{
	USD: {},
	EUR: {},
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := supportedCurrencies[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}

// Price is an amount in minor units (cents) and its currency.
type Price struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

func ParsePrice(amount, currency string) (Price, error) {
	minor, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
	if err != nil {
		return Price{}, fmt.Errorf("parse price amount %q: %w", amount, err)
	}
	if minor <= 0 {
		return Price{}, fmt.Errorf("price amount must be positive, got %d", minor)
	}

	cur, err := ParseCurrency(currency)
	if err != nil {
		return Price{}, err
	}

	return Price{Amount: minor, Currency: cur}, nil
}

// FormatMajor renders the amount in major units with two decimals,
// e.g. 499 USD as "4.99".
func (p Price) FormatMajor() string {
	sign := ""
	amount := p.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (p Price) String() string {
	return p.FormatMajor() + " " + string(p.Currency)
}
