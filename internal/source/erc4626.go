package source

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
)

const erc4626ABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "shares", "type": "uint256"}],
		"name": "previewRedeem",
		"outputs": [{"internalType": "uint256", "name": "assets", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const previewRedeem = "previewRedeem"

var vaultABI = mustParseABI(erc4626ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse erc4626 abi: %v", err))
	}
	return parsed
}

// OneShare returns 10^decimals, the raw amount of one whole share.
func OneShare(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// packPreviewRedeem builds calldata for previewRedeem(shares).
func packPreviewRedeem(shares *big.Int) ([]byte, error) {
	return vaultABI.Pack(previewRedeem, shares)
}

// unpackPreviewRedeem decodes the uint256 returned by previewRedeem.
func unpackPreviewRedeem(out []byte) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s response", previewRedeem)
	}
	vals, err := vaultABI.Unpack(previewRedeem, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", previewRedeem, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", previewRedeem, len(vals))
	}
	raw, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", previewRedeem, vals[0])
	}
	return raw, nil
}

// Normalize scales a raw on-chain amount down by the asset's decimals.
func Normalize(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
