package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one trading day of OHLC data for a symbol
type PriceBar struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Day returns the bar date truncated to midnight UTC.
func (b PriceBar) Day() time.Time {
	return TruncateDay(b.Date)
}

// OptionType identifies puts and calls
type OptionType string

const (
	OptionTypePut  OptionType = "put"
	OptionTypeCall OptionType = "call"
)

func (t OptionType) String() string {
	return string(t)
}

// IsValid reports whether t is a put or a call.
func (t OptionType) IsValid() bool {
	return t == OptionTypePut || t == OptionTypeCall
}

// ParseOptionType parses "put"/"call" (case-insensitive, "p"/"c" accepted).
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "put", "p":
		return OptionTypePut, nil
	case "call", "c":
		return OptionTypeCall, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// OptionQuoteRequest asks a market data source for a live premium
type OptionQuoteRequest struct {
	Ticker string     `json:"ticker"`
	Type   OptionType `json:"type"`
	Strike float64    `json:"strike"`
	Expiry time.Time  `json:"expiry"`
}

// OptionQuote is an observed bid/ask/mid for a single contract. Prices are per share.
type OptionQuote struct {
	Symbol string  `json:"symbol"`
	Strike float64 `json:"strike"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Mid    float64 `json:"mid"`
	Source string  `json:"source"`
}

// NewOptionQuote builds a quote with mid = (bid+ask)/2.
func NewOptionQuote(symbol string, strike, bid, ask float64, source string) *OptionQuote {
	return &OptionQuote{
		Symbol: symbol,
		Strike: strike,
		Bid:    bid,
		Ask:    ask,
		Mid:    (bid + ask) / 2,
		Source: source,
	}
}

// Valid is the sanity filter applied before a quote may replace the model estimate.
func (q *OptionQuote) Valid() bool {
	if q == nil {
		return false
	}
	for _, v := range []float64{q.Bid, q.Ask, q.Mid} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return q.Ask >= q.Bid
}

// TruncateDay drops the clock part of t and normalises it to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
