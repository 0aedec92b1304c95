package models

import "time"

// Movers is the market overview over a fixed symbol universe
type Movers struct {
	Gainers   []Quote   `json:"gainers"`
	Losers    []Quote   `json:"losers"`
	Active    []Quote   `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IndexQuote is one entry of the index ticker tape. Values are absent
// when the last fetch for the index failed.
type IndexQuote struct {
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	Price         Optional[float64] `json:"price"`
	Change        Optional[float64] `json:"change"`
	ChangePercent Optional[float64] `json:"changePercent"`
}

// IndexTape is the cached ticker tape
type IndexTape struct {
	Indices   []IndexQuote `json:"indices"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
