package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Assets
// -----------------------------------------------------------------------------

// Asset is a tracked vault whose redemption rate is relayed.
// Equality is by the full tuple; Asset is comparable and usable as a map key.
type Asset struct {
	Contract common.Address // Source ledger contract (ERC-4626 vault)
	Decimals uint8          // Share decimals used to normalize the raw reading
	Base     string         // Display only (e.g. "ETH")
	Quote    string         // Display only (e.g. "sommETH")
}

// Pair returns the display pair "quote/base".
func (a Asset) Pair() string {
	return a.Quote + "/" + a.Base
}

func (a Asset) String() string {
	return fmt.Sprintf("%s (%s)", a.Pair(), a.Contract.Hex())
}

// -----------------------------------------------------------------------------
// Observations
// -----------------------------------------------------------------------------

// Quote is one normalized reading of an asset's redemption rate.
// Quotes are immutable once created.
type Quote struct {
	ID        uuid.UUID       // Correlates logs, journal rows and metrics
	Asset     Asset           // Asset the reading belongs to
	Value     decimal.Decimal // Normalized redemption rate
	Timestamp int64           // Observation time (seconds since epoch)
	Trigger   Trigger         // Sweep that produced the reading
}

// NewQuote creates a quote with a fresh ID.
func NewQuote(asset Asset, value decimal.Decimal, timestamp int64, trigger Trigger) Quote {
	return Quote{
		ID:        uuid.New(),
		Asset:     asset,
		Value:     value,
		Timestamp: timestamp,
		Trigger:   trigger,
	}
}
