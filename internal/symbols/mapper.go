package symbols

import "strings"

// Quotes lists the margin conventions tried when resolving an instrument on
// an exchange, in resolution order. A gateway walks this list and reports
// the instrument missing only after every convention fails.
var Quotes = []string{"USDT", "USD", "USDC"}

// Contract builds the exchange-native perpetual contract symbol for a base
// asset and quote convention. Base assets use the common uppercase form
// ("BTC", "ETH"); exchange quirks such as KuCoin's XBT alias are handled
// here.
func Contract(exchange, base, quote string) string {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)

	switch strings.ToLower(exchange) {
	case "binance":
		return base + quote
	case "bybit":
		// Bybit linear USDC perps drop the quote and use a PERP suffix.
		if quote == "USDC" {
			return base + "PERP"
		}
		return base + quote
	case "okx":
		return base + "-" + quote + "-SWAP"
	case "gateio", "mexc":
		return base + "_" + quote
	case "kucoin":
		// KuCoin futures use XBT for bitcoin and an M suffix.
		if base == "BTC" {
			base = "XBT"
		}
		if quote == "USD" {
			return base + "USDM"
		}
		return base + quote + "M"
	default:
		return base + quote
	}
}
