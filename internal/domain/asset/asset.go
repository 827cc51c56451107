// Package asset defines the canonical Asset record (§3) and the market-type
// taxonomy used for adapter routing (§4.2) and signal-engine thresholds (§4.7.2).
package asset

import "strings"

// MarketType classifies an asset for routing and threshold lookup.
type MarketType string

const (
	MarketForex     MarketType = "forex"
	MarketCrypto    MarketType = "crypto"
	MarketCommodity MarketType = "commodity"
	MarketIndex     MarketType = "index"
	MarketEquity    MarketType = "equity"
)

// Asset is the canonical instrument record. Symbol is the sole key and is
// always upper-case.
type Asset struct {
	ID         int64
	Symbol     string
	Name       string
	MarketType MarketType
	Exchange   string
	Base       string
	Quote      string
	Config     map[string]any
}

// Canonical upper-cases a symbol the way every lookup in this repo expects it.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CryptoBases are the known crypto base-currency codes used by the router's
// rule 3 (§4.2) and the signal engine's asset-class lookup (§4.7.2).
var CryptoBases = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "XRP": true, "ADA": true,
	"DOGE": true, "MATIC": true, "LTC": true, "DOT": true, "AVAX": true,
}

// FiatCodes are the known fiat currency codes used by the router's rule 4.
var FiatCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "AUD": true,
	"CAD": true, "NZD": true, "CHF": true,
}

// CommodityCodes are symbols routed to a commodity-or-forex adapter by
// router rule 2.
var CommodityCodes = map[string]bool{
	"XAUUSD": true, "XAGUSD": true, "GC": true, "SI": true, "GLD": true,
}

// LooksLikeForex reports whether symbol is a plausible 6-letter forex pair
// whose first three letters are a known fiat code (router rule 4).
func LooksLikeForex(symbol string) bool {
	s := Canonical(symbol)
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return FiatCodes[s[:3]]
}

// LooksLikeCrypto reports whether symbol's leading 3-4 characters match a
// known crypto base (router rule 3).
func LooksLikeCrypto(symbol string) bool {
	s := Canonical(symbol)
	for _, n := range []int{4, 3} {
		if len(s) >= n && CryptoBases[s[:n]] {
			return true
		}
	}
	return false
}

// Class is the coarse asset-class bucket the signal engine uses for
// threshold and ATR-multiplier lookups (§4.7.2): crypto, forex, or other.
type Class string

const (
	ClassCrypto Class = "crypto"
	ClassForex  Class = "forex"
	ClassOther  Class = "other"
)

// KnownCryptoSymbols and KnownForexSymbols are the exact scalper symbol sets
// from the signal engine's threshold dispatch (§4.7.2), grounded on the
// original source's CRYPTO_SYMBOLS / FOREX_SYMBOLS constants.
var KnownCryptoSymbols = map[string]bool{
	"BTCUSD": true, "ETHUSD": true, "SOLUSD": true, "XRPUSD": true, "ETHBTC": true,
}

var KnownForexSymbols = map[string]bool{
	"EURUSD": true, "GBPUSD": true, "USDJPY": true, "AUDUSD": true, "USDCAD": true,
	"NZDUSD": true, "USDCHF": true, "EURGBP": true, "EURJPY": true, "GBPJPY": true,
}

// ClassOf buckets a symbol for threshold/ATR-multiplier lookup.
func ClassOf(symbol string) Class {
	s := Canonical(symbol)
	if KnownCryptoSymbols[s] {
		return ClassCrypto
	}
	if KnownForexSymbols[s] {
		return ClassForex
	}
	return ClassOther
}
