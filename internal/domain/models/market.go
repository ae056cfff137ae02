package models

import "time"

// TokenSnapshot is a point-in-time market view of a single token.
type TokenSnapshot struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"price_usd"`
	Change24h    float64 `json:"change_24h"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	ATHUSD       float64 `json:"ath_usd"`
}

// NewsItem is a single headline relevant to the topic.
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// GovernanceProposal is an on-chain governance item for the topic's protocol.
type GovernanceProposal struct {
	Title      string `json:"title"`
	State      string `json:"state"`
	TotalVotes int64  `json:"total_votes"`
}

// MarketDataBundle aggregates everything the prompt builder may reference.
// Any section may be nil/empty when the upstream source was unavailable.
type MarketDataBundle struct {
	Token     *TokenSnapshot       `json:"token,omitempty"`
	News      []NewsItem           `json:"news,omitempty"`
	Proposals []GovernanceProposal `json:"proposals,omitempty"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// TickerUpdate is a live price tick from the streaming feed.
type TickerUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}
