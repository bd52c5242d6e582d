package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rickgao/redemption-relay/internal/model"
)

// TrackedAssets converts the asset list into model assets, in config order.
func (c *RelayConfig) TrackedAssets() []model.Asset {
	assets := make([]model.Asset, 0, len(c.Assets))
	for _, a := range c.Assets {
		assets = append(assets, model.Asset{
			Contract: common.HexToAddress(a.Contract),
			Decimals: a.Decimals,
			Base:     a.Base,
			Quote:    a.Quote,
		})
	}
	return assets
}

// ContractMap parses destination.contract_map. Keys are normalized so that
// checksummed and lowercase spellings of the same address collide.
func (c *RelayConfig) ContractMap() (map[common.Address]common.Address, error) {
	m := make(map[common.Address]common.Address, len(c.Destination.ContractMap))
	for src, dst := range c.Destination.ContractMap {
		if !common.IsHexAddress(src) {
			return nil, fmt.Errorf("destination.contract_map key %q is not a valid address", src)
		}
		if !common.IsHexAddress(dst) {
			return nil, fmt.Errorf("destination.contract_map[%s] %q is not a valid address", src, dst)
		}
		key := common.HexToAddress(src)
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("destination.contract_map has duplicate entries for %s", key.Hex())
		}
		m[key] = common.HexToAddress(dst)
	}
	return m, nil
}
