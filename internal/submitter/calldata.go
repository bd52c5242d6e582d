package submitter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
)

// PriceDecimals is the fixed-point precision of the destination contract.
const PriceDecimals = 18

const priceFeedABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "value", "type": "uint256"},
			{"internalType": "uint64", "name": "timestamp", "type": "uint64"}
		],
		"name": "setPrice",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const setPrice = "setPrice"

var feedABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(priceFeedABI))
	if err != nil {
		panic(fmt.Sprintf("parse price feed abi: %v", err))
	}
	return parsed
}()

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ScaleValue converts a normalized value to the destination's 18-decimal
// fixed point, truncating any further digits.
func ScaleValue(value decimal.Decimal) (*big.Int, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("negative value %s", value)
	}
	scaled := value.Shift(PriceDecimals).BigInt()
	if scaled.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("value %s overflows uint256", value)
	}
	return scaled, nil
}

// EncodeSetPrice builds calldata for setPrice(value, timestamp).
func EncodeSetPrice(value decimal.Decimal, timestamp int64) ([]byte, error) {
	if timestamp < 0 {
		return nil, fmt.Errorf("negative timestamp %d", timestamp)
	}
	scaled, err := ScaleValue(value)
	if err != nil {
		return nil, err
	}
	data, err := feedABI.Pack(setPrice, scaled, uint64(timestamp))
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", setPrice, err)
	}
	return data, nil
}
