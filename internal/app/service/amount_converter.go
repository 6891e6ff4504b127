package service

import "github.com/shopspring/decimal"

const usdPlaces = 2

// TokenToUSD converts a token amount at price, rounded to cents.
func TokenToUSD(token, price decimal.Decimal) decimal.Decimal {
	return token.Mul(price).Round(usdPlaces)
}

// USDToToken converts a USD amount at price. A non-positive price yields zero.
// The result is not rounded; callers truncate to the network cap.
func USDToToken(usd, price decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 {
		return decimal.Zero
	}
	return usd.Div(price)
}
