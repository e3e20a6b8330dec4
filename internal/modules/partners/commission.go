package partners

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CommissionAmount is amount * rate / 100 rounded to currency precision (2 places).
func CommissionAmount(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}
