// Package registry holds the static catalog of supported lending markets.
package registry

import (
	"github.com/pkg/errors"

	"github.com/lendmon/lendmon/internal/domain"
)

// Registry is a pure lookup over assets loaded once from configuration.
// It performs no I/O and is never mutated after construction.
type Registry struct {
	order  []string
	assets map[string]domain.Asset
}

// New validates the catalog and builds the registry. Asset order is
// preserved as configured.
func New(assets []domain.Asset) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(assets)),
		assets: make(map[string]domain.Asset, len(assets)),
	}

	for _, a := range assets {
		if err := a.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid asset in catalog")
		}
		if _, exists := r.assets[a.Symbol]; exists {
			return nil, errors.Errorf("duplicate asset symbol %s in catalog", a.Symbol)
		}
		r.assets[a.Symbol] = a
		r.order = append(r.order, a.Symbol)
	}

	return r, nil
}

// Get returns the asset for symbol. Unknown symbols are non-fatal for
// callers: they get domain.ErrNotFound and are expected to skip the asset.
func (r *Registry) Get(symbol string) (domain.Asset, error) {
	a, ok := r.assets[symbol]
	if !ok {
		return domain.Asset{}, errors.Wrapf(domain.ErrNotFound, "asset %s", symbol)
	}
	return a, nil
}

// List returns all assets in configuration order.
func (r *Registry) List() []domain.Asset {
	out := make([]domain.Asset, 0, len(r.order))
	for _, symbol := range r.order {
		out = append(out, r.assets[symbol])
	}
	return out
}

// Symbols returns the configured symbols in order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
