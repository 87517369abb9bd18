package models

import "time"

// MarketPoint is one observed update for a ticker: the percent change since
// the previous close plus raw price/volume context.
type MarketPoint struct {
	Symbol        string
	Timestamp     time.Time
	PercentChange float64
	Price         float64
	Volume        float64
}

// Quote is a raw quote update from the market feed before the percent
// change against the previous stored close has been computed.
type Quote struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Volume    float64
}
