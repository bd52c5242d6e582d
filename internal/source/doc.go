// Package source reads redemption rates from the source ledger.
//
// Each tracked asset is an ERC-4626 vault. The rate is the amount of
// underlying returned by previewRedeem for one whole share (10^decimals),
// normalized by the vault's decimals.
package source
