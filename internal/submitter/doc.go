// Package submitter writes accepted quotes to the destination ledger.
//
// Each submission is a signed setPrice(uint256,uint64) transaction sent to
// the asset's destination contract. Submit returns only after the
// transaction is mined or the receipt timeout elapses.
package submitter
