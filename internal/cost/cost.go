// Package cost tracks token usage and the money it translates to.
//
// The original deployment bills in USD and reports in INR, so the meter
// keeps both. Rates are configurable; defaults match text-embedding-3-small
// and gpt-4o published pricing.
package cost

import (
	"fmt"
	"sync"
)

// Rates holds token pricing. All USD rates are per single token.
type Rates struct {
	USDPerEmbedToken   float64
	USDPerChatInToken  float64
	USDPerChatOutToken float64
	USDToINR           float64
}

// DefaultRates returns pricing for text-embedding-3-small and gpt-4o.
func DefaultRates() Rates {
	return Rates{
		USDPerEmbedToken:   0.02 / 1_000_000.0,
		USDPerChatInToken:  5.0 / 1_000_000.0,
		USDPerChatOutToken: 15.0 / 1_000_000.0,
		USDToINR:           84.0,
	}
}

// Meter accumulates token usage across embedding and chat calls.
// Safe for concurrent use by multiple goroutines.
type Meter struct {
	mu    sync.Mutex
	rates Rates

	embedTokens   int64
	chatInTokens  int64
	chatOutTokens int64
}

// NewMeter creates a meter with the given rates.
// Zero-value rates fall back to DefaultRates.
func NewMeter(rates Rates) *Meter {
	if rates.USDToINR == 0 {
		rates = DefaultRates()
	}
	return &Meter{rates: rates}
}

// AddEmbedding records tokens consumed by an embedding call and returns
// the cost of that call in USD.
func (m *Meter) AddEmbedding(tokens int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedTokens += int64(tokens)
	return float64(tokens) * m.rates.USDPerEmbedToken
}

// AddChat records tokens consumed by a chat completion call and returns
// the cost of that call in USD.
func (m *Meter) AddChat(inTokens, outTokens int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatInTokens += int64(inTokens)
	m.chatOutTokens += int64(outTokens)
	return float64(inTokens)*m.rates.USDPerChatInToken +
		float64(outTokens)*m.rates.USDPerChatOutToken
}

// Snapshot is a point-in-time view of accumulated spend.
type Snapshot struct {
	EmbedTokens   int64   `json:"embedTokens"`
	ChatInTokens  int64   `json:"chatInTokens"`
	ChatOutTokens int64   `json:"chatOutTokens"`
	TotalUSD      float64 `json:"totalUsd"`
	TotalINR      float64 `json:"totalInr"`
}

// Snapshot returns the current totals.
func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	usd := float64(m.embedTokens)*m.rates.USDPerEmbedToken +
		float64(m.chatInTokens)*m.rates.USDPerChatInToken +
		float64(m.chatOutTokens)*m.rates.USDPerChatOutToken

	return Snapshot{
		EmbedTokens:   m.embedTokens,
		ChatInTokens:  m.chatInTokens,
		ChatOutTokens: m.chatOutTokens,
		TotalUSD:      usd,
		TotalINR:      usd * m.rates.USDToINR,
	}
}

// String formats the snapshot for log lines and CLI output.
func (s Snapshot) String() string {
	return fmt.Sprintf("embed=%d in=%d out=%d | $%.6f | ₹%.4f",
		s.EmbedTokens, s.ChatInTokens, s.ChatOutTokens, s.TotalUSD, s.TotalINR)
}
