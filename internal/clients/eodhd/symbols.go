package eodhd

import "strings"

// yahooToEODHD maps Yahoo exchange suffixes to EODHD exchange codes.
var yahooToEODHD = map[string]string{
	"NS": "NSE",
	"BO": "BSE",
	"AX": "AU",
	"L":  "LSE",
	"TO": "TO",
	"HK": "HK",
	"DE": "XETRA",
	"PA": "PA",
}

var eodhdToYahoo = func() map[string]string {
	m := make(map[string]string, len(yahooToEODHD))
	for y, e := range yahooToEODHD {
		m[e] = y
	}
	return m
}()

// ToTicker converts a Yahoo-style symbol into an EODHD ticker.
//
//	AAPL        -> AAPL.US
//	RELIANCE.NS -> RELIANCE.NSE
//	BTC-USD     -> BTC-USD.CC
//	^GSPC       -> GSPC.INDX
//	GC=F        -> GC.COMM
func ToTicker(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasPrefix(symbol, "^") {
		return strings.TrimPrefix(symbol, "^") + ".INDX"
	}
	if strings.HasSuffix(symbol, "=F") {
		return strings.TrimSuffix(symbol, "=F") + ".COMM"
	}
	if strings.HasSuffix(symbol, "-USD") {
		return symbol + ".CC"
	}
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if ex, ok := yahooToEODHD[symbol[i+1:]]; ok {
			return symbol[:i] + "." + ex
		}
		return symbol
	}
	return symbol + ".US"
}

// FromTicker converts an EODHD code and exchange back to a Yahoo-style symbol.
func FromTicker(code, exchange string) string {
	code = strings.ToUpper(code)
	exchange = strings.ToUpper(exchange)
	switch exchange {
	case "", "US", "NYSE", "NASDAQ", "NYSE ARCA", "BATS", "AMEX":
		return code
	case "INDX":
		return "^" + code
	case "CC":
		return code
	case "COMM":
		return code + "=F"
	}
	if y, ok := eodhdToYahoo[exchange]; ok {
		return code + "." + y
	}
	return code + "." + exchange
}
