// Package pricing implements adaptive price resolution for collectible cards.
// It decides, per lookup, whether to trust a cached price, call the upstream
// price provider, or race both — steering by a running estimate of upstream
// health.
package pricing

import "time"

// Confidence grades how reliable a resolved price is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PricedEntry is a resolved price for a single card.
type PricedEntry struct {
	// Price is the market price in GBP, never negative.
	Price float64 `json:"price"`

	// Source names the upstream provider that produced the value.
	Source string `json:"source"`

	// ReferenceURL optionally points at the price's provenance page.
	ReferenceURL string `json:"reference_url,omitempty"`

	// ObservedAt is when the fetch that produced this value started.
	ObservedAt time.Time `json:"observed_at"`

	Confidence Confidence `json:"confidence"`
}
