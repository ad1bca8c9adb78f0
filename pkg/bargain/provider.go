package bargain

import "context"

// Provider returns the items currently on sale at the user's stores.
type Provider interface {
	BargainItems(ctx context.Context) ([]string, error)
}

// DefaultItems is the weekly flyer used until a real flyer source is wired.
var DefaultItems = []string{"Chicken Breast", "Broccoli", "Rice", "Tofu", "Apples"}

type StaticProvider struct {
	items []string
}

func NewStaticProvider(items ...string) *StaticProvider {
	if len(items) == 0 {
		items = DefaultItems
	}
	return &StaticProvider{items: items}
}

func (p *StaticProvider) BargainItems(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), p.items...), nil
}
