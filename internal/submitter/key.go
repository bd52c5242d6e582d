package submitter

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LoadPrivateKey loads a secp256k1 signing key. The inline hex value wins
// over the key file when both are set.
func LoadPrivateKey(inline, path string) (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimSpace(inline)
	if hexKey == "" {
		if path == "" {
			return nil, fmt.Errorf("signing key or key path is required")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		hexKey = strings.TrimSpace(string(data))
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// AddressOf returns the account address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
