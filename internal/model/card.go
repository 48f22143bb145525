// Package model holds the shared domain types for card pricing.
package model

import "time"

// Card identifies a single collectible card.
type Card struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	SetID  string `json:"set_id,omitempty" yaml:"set_id"`
	Number string `json:"number,omitempty" yaml:"number"`
	Rarity string `json:"rarity,omitempty" yaml:"rarity"`
}

// Set is a card set from the set dictionary.
type Set struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Series      string `json:"series" yaml:"series"`
	Total       int    `json:"total" yaml:"total"`
	ReleaseDate string `json:"release_date" yaml:"release_date"`
}

// PriceObservation is one resolved price persisted to the relational
// store. A new row is written per successful upstream resolution; history
// is never updated in place.
type PriceObservation struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	CardName     string    `json:"card_name"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Source       string    `json:"source"`
	Confidence   string    `json:"confidence"`
	ReferenceURL string    `json:"reference_url,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
}
