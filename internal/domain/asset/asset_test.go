package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical_TrimsAndUppercases(t *testing.T) {
	assert.Equal(t, "BTCUSD", Canonical(" btcusd "))
	assert.Equal(t, "EURUSD", Canonical("eurusd"))
}

func TestLooksLikeForex_AcceptsKnownFiatPair(t *testing.T) {
	assert.True(t, LooksLikeForex("eurusd"))
	assert.True(t, LooksLikeForex("USDJPY"))
}

func TestLooksLikeForex_RejectsWrongLength(t *testing.T) {
	assert.False(t, LooksLikeForex("EUR"))
	assert.False(t, LooksLikeForex("EURUSDX"))
}

func TestLooksLikeForex_RejectsUnknownFiatPrefix(t *testing.T) {
	assert.False(t, LooksLikeForex("BTCUSD"))
}

func TestLooksLikeForex_RejectsNonAlphaCharacters(t *testing.T) {
	assert.False(t, LooksLikeForex("US1234"))
}

func TestLooksLikeCrypto_MatchesFourLetterBase(t *testing.T) {
	assert.True(t, LooksLikeCrypto("DOGEUSD"))
}

func TestLooksLikeCrypto_MatchesThreeLetterBase(t *testing.T) {
	assert.True(t, LooksLikeCrypto("BTCUSD"))
	assert.True(t, LooksLikeCrypto("ETHUSD"))
}

func TestLooksLikeCrypto_RejectsUnknownBase(t *testing.T) {
	assert.False(t, LooksLikeCrypto("XYZUSD"))
}

func TestClassOf_BucketsKnownCryptoAndForexSymbols(t *testing.T) {
	assert.Equal(t, ClassCrypto, ClassOf("btcusd"))
	assert.Equal(t, ClassForex, ClassOf("EURUSD"))
	assert.Equal(t, ClassOther, ClassOf("XAUUSD"))
}

func TestCommodityCodes_ContainsKnownMetals(t *testing.T) {
	assert.True(t, CommodityCodes["XAUUSD"])
	assert.False(t, CommodityCodes["BTCUSD"])
}
