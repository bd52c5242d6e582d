package asset

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rickgao/redemption-relay/internal/model"
)

// Registry holds the tracked assets and their destination contracts.
type Registry struct {
	// Tracked assets in configuration order.
	assets []model.Asset

	// Destination contract per asset contract.
	destinations map[common.Address]common.Address
}

// NewRegistry builds the registry. Identical asset tuples collapse into one
// entry. Construction fails if any asset lacks a destination, if two different
// assets share a contract, or if two contracts write to the same destination.
func NewRegistry(assets []model.Asset, destinations map[common.Address]common.Address) (*Registry, error) {
	if len(assets) == 0 {
		return nil, errors.New("asset registry: no assets configured")
	}

	r := &Registry{
		assets:       make([]model.Asset, 0, len(assets)),
		destinations: make(map[common.Address]common.Address, len(assets)),
	}

	byContract := make(map[common.Address]model.Asset, len(assets))
	usedBy := make(map[common.Address]common.Address, len(assets))

	for _, a := range assets {
		if prev, ok := byContract[a.Contract]; ok {
			if prev != a {
				return nil, fmt.Errorf("asset registry: contract %s tracked twice with different parameters", a.Contract.Hex())
			}
			continue
		}

		dst, ok := destinations[a.Contract]
		if !ok {
			return nil, fmt.Errorf("asset registry: no destination contract for %s", a)
		}
		if other, ok := usedBy[dst]; ok {
			return nil, fmt.Errorf("asset registry: destination %s already used by %s", dst.Hex(), other.Hex())
		}

		byContract[a.Contract] = a
		usedBy[dst] = a.Contract
		r.destinations[a.Contract] = dst
		r.assets = append(r.assets, a)
	}

	return r, nil
}

// Assets returns a copy of the tracked assets.
func (r *Registry) Assets() []model.Asset {
	out := make([]model.Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Destination returns the destination contract for an asset.
func (r *Registry) Destination(a model.Asset) (common.Address, bool) {
	dst, ok := r.destinations[a.Contract]
	return dst, ok
}

// Len returns the number of tracked assets.
func (r *Registry) Len() int {
	return len(r.assets)
}
