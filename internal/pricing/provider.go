package pricing

import (
	"context"
	"errors"

	"github.com/cardintel/cardintel/pkg/tcgapi"
)

// PriceVariants holds the market price variants an upstream lookup returned
// for a card, in USD. Absent variants are nil.
type PriceVariants struct {
	Normal          *float64
	Holofoil        *float64
	ReverseHolofoil *float64

	// ReferenceURL points at the provenance page for the prices.
	ReferenceURL string
}

// Provider is the upstream price source boundary. Implementations perform
// the network lookup; the executor owns variant preference, currency
// conversion, and health accounting.
type Provider interface {
	// CardPrices looks up price variants by card display name. Returns
	// (nil, nil) when the lookup succeeds but finds no card.
	CardPrices(ctx context.Context, cardName string) (*PriceVariants, error)
}

// TCGProvider adapts the Pokemon TCG API client to the Provider interface.
type TCGProvider struct {
	client tcgapi.Client
}

// NewTCGProvider wraps a tcgapi client as a price Provider.
func NewTCGProvider(client tcgapi.Client) *TCGProvider {
	return &TCGProvider{client: client}
}

func (p *TCGProvider) CardPrices(ctx context.Context, cardName string) (*PriceVariants, error) {
	card, err := p.client.CardPrices(ctx, cardName)
	if err != nil {
		var se *tcgapi.StatusError
		if errors.As(err, &se) {
			return nil, &ProviderError{StatusCode: se.StatusCode, Err: err}
		}
		return nil, err
	}
	if card == nil || card.TCGPlayer == nil {
		return nil, nil
	}

	prices := card.TCGPlayer.Prices
	v := &PriceVariants{ReferenceURL: card.TCGPlayer.URL}
	if prices.Normal != nil {
		v.Normal = prices.Normal.Market
	}
	if prices.Holofoil != nil {
		v.Holofoil = prices.Holofoil.Market
	}
	if prices.ReverseHolofoil != nil {
		v.ReverseHolofoil = prices.ReverseHolofoil.Market
	}
	return v, nil
}
