package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// maxDecimals keeps 10^decimals within a uint256.
const maxDecimals = 77

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Source.RPCURL == "" {
		return errors.New("source.rpc_url is required")
	}
	if c.Source.RequestsPerSecond < 0 {
		return errors.New("source.requests_per_second must be >= 0")
	}

	if err := c.Destination.validate(); err != nil {
		return err
	}

	if err := c.validateAssets(); err != nil {
		return err
	}

	if c.Relay.PriceVarianceThreshold <= 0 {
		return errors.New("relay.price_variance_threshold must be > 0")
	}
	if c.Relay.CheckVariancePeriod <= 0 {
		return errors.New("relay.check_variance_period must be > 0")
	}
	if c.Relay.SubmissionPeriod <= 0 {
		return errors.New("relay.submission_period must be > 0")
	}
	if c.Relay.MinTimeBetweenQuotes < 0 {
		return errors.New("relay.min_time_between_quotes must be >= 0")
	}

	if c.Journal.Enabled {
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	return nil
}

func (d *DestinationConfig) validate() error {
	if d.RPCURL == "" {
		return errors.New("destination.rpc_url is required")
	}
	if d.SigningKey == "" && d.SigningKeyPath == "" {
		return errors.New("destination.signing_key or destination.signing_key_path is required")
	}
	if d.ChainID < 0 {
		return errors.New("destination.chain_id must be >= 0")
	}
	for src, dst := range d.ContractMap {
		if !common.IsHexAddress(src) {
			return fmt.Errorf("destination.contract_map key %q is not a valid address", src)
		}
		if !common.IsHexAddress(dst) {
			return fmt.Errorf("destination.contract_map[%s] %q is not a valid address", src, dst)
		}
	}
	return nil
}

// validateAssets checks the asset list and fails fast when a tracked asset
// has no destination contract.
func (c *RelayConfig) validateAssets() error {
	if len(c.Assets) == 0 {
		return errors.New("assets is required")
	}

	destinations, err := c.ContractMap()
	if err != nil {
		return err
	}

	seen := make(map[common.Address]AssetConfig, len(c.Assets))
	usedBy := make(map[common.Address]common.Address, len(c.Assets))

	for i, a := range c.Assets {
		if !common.IsHexAddress(a.Contract) {
			return fmt.Errorf("assets[%d].contract %q is not a valid address", i, a.Contract)
		}
		if a.Decimals > maxDecimals {
			return fmt.Errorf("assets[%d].decimals must be <= %d, got %d", i, maxDecimals, a.Decimals)
		}

		contract := common.HexToAddress(a.Contract)
		if prev, ok := seen[contract]; ok {
			if prev.Decimals != a.Decimals || prev.Base != a.Base || prev.Quote != a.Quote {
				return fmt.Errorf("assets[%d].contract %s is already tracked with different decimals or symbols", i, contract.Hex())
			}
			continue
		}
		seen[contract] = a

		dst, ok := destinations[contract]
		if !ok {
			return fmt.Errorf("destination.contract_map is missing entry for %s", contract.Hex())
		}
		if other, ok := usedBy[dst]; ok {
			return fmt.Errorf("destination contract %s is mapped from both %s and %s", dst.Hex(), other.Hex(), contract.Hex())
		}
		usedBy[dst] = contract
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
