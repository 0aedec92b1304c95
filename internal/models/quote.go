package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional holds a gateway field that may be absent.
// It encodes as JSON null when not Valid.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Or returns the value, or fallback when absent
func (o Optional[T]) Or(fallback T) T {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value, o.Valid = zero, false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Quote is a point-in-time price snapshot for one symbol.
// Symbol and Price are always present; every other numeric field is optional.
type Quote struct {
	Symbol           string            `json:"symbol"`
	Price            float64           `json:"price"`
	Change           Optional[float64] `json:"change"`
	ChangePercent    Optional[float64] `json:"changePercent"`
	PreviousClose    Optional[float64] `json:"previousClose"`
	Open             Optional[float64] `json:"open"`
	DayHigh          Optional[float64] `json:"dayHigh"`
	DayLow           Optional[float64] `json:"dayLow"`
	Volume           Optional[int64]   `json:"volume"`
	MarketCap        Optional[float64] `json:"marketCap"`
	TrailingPE       Optional[float64] `json:"trailingPE"`
	FiftyTwoWeekHigh Optional[float64] `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  Optional[float64] `json:"fiftyTwoWeekLow"`
	Currency         string            `json:"currency,omitempty"`
	Exchange         string            `json:"exchange,omitempty"`
	QuoteType        string            `json:"quoteType,omitempty"`
	ShortName        string            `json:"shortName,omitempty"`
	LongName         string            `json:"longName,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	Source           string            `json:"source,omitempty"`
}

// DisplayName returns the best available human name for the symbol
func (q *Quote) DisplayName() string {
	switch {
	case q.LongName != "":
		return q.LongName
	case q.ShortName != "":
		return q.ShortName
	default:
		return q.Symbol
	}
}

// SearchResult is one symbol match
type SearchResult struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname,omitempty"`
	LongName  string `json:"longname,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	TypeDisp  string `json:"typeDisp,omitempty"`
}

// HistoryPoint is one close in a price series
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// RangeStart maps a chart range onto its start time relative to now.
// Unknown ranges fall back to one year.
func RangeStart(rng string, now time.Time) time.Time {
	switch rng {
	case "1d":
		return now.AddDate(0, 0, -1)
	case "5d":
		return now.AddDate(0, 0, -5)
	case "1mo":
		return now.AddDate(0, -1, 0)
	case "6mo":
		return now.AddDate(0, -6, 0)
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case "1y":
		return now.AddDate(-1, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "max":
		return time.Unix(0, 0).UTC()
	default:
		return now.AddDate(-1, 0, 0)
	}
}
