// Package model defines shared data types used across the relay.
//
// Conventions:
//   - Values: shopspring decimals, already normalized by the asset's decimals
//   - Timestamps: int64 seconds since Unix epoch
//   - IDs: uuid.UUID per quote, common.Address for contracts
package model
