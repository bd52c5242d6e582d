package submitter

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// ErrReverted is returned when a submission was mined but failed on-chain.
var ErrReverted = errors.New("transaction reverted")

// ErrReceiptTimeout is returned when no receipt arrived in time. The
// transaction may still be mined later.
var ErrReceiptTimeout = errors.New("receipt timeout")

// Backend is the subset of the Ethereum client used for submissions.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config holds transaction parameters.
type Config struct {
	ChainID             *big.Int      // Nil resolves it from the backend once
	GasLimit            uint64        // Gas limit per transaction
	ReceiptTimeout      time.Duration // How long to wait for the transaction to be mined
	ReceiptPollInterval time.Duration // Delay between receipt lookups
}

// DefaultConfig returns default transaction parameters.
func DefaultConfig() Config {
	return Config{
		GasLimit:            1_000_000,
		ReceiptTimeout:      2 * time.Minute,
		ReceiptPollInterval: 2 * time.Second,
	}
}

// Result describes a mined submission.
type Result struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// EVMSubmitter signs and broadcasts price updates.
type EVMSubmitter struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     Config
	logger  *slog.Logger
	close   func()

	mu      sync.Mutex
	chainID *big.Int
}

// New creates a submitter that signs with key.
func New(backend Backend, key *ecdsa.PrivateKey, cfg Config, logger *slog.Logger) *EVMSubmitter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.GasLimit == 0 {
		cfg.GasLimit = def.GasLimit
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = def.ReceiptTimeout
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = def.ReceiptPollInterval
	}

	return &EVMSubmitter{
		backend: backend,
		key:     key,
		from:    AddressOf(key),
		cfg:     cfg,
		logger:  logger,
		chainID: cfg.ChainID,
	}
}

// Dial connects to rpcURL and returns a submitter backed by an ethclient.
func Dial(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey, cfg Config, logger *slog.Logger) (*EVMSubmitter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial destination rpc: %w", err)
	}
	s := New(client, key, cfg, logger)
	s.close = client.Close
	return s, nil
}

// Close releases the underlying RPC connection, if the submitter owns one.
func (s *EVMSubmitter) Close() {
	if s.close != nil {
		s.close()
	}
}

// Address returns the signer's account address.
func (s *EVMSubmitter) Address() common.Address {
	return s.from
}

// Submit writes value and timestamp to the destination contract and waits
// for the receipt.
func (s *EVMSubmitter) Submit(ctx context.Context, destination common.Address, value decimal.Decimal, timestamp int64) (Result, error) {
	data, err := EncodeSetPrice(value, timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("encode: %w", err)
	}

	chainID, err := s.resolveChainID(ctx)
	if err != nil {
		return Result{}, err
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return Result{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &destination,
		Value:    new(big.Int),
		Gas:      s.cfg.GasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return Result{}, fmt.Errorf("sign: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return Result{}, fmt.Errorf("broadcast: %w", err)
	}

	s.logger.Debug("transaction broadcast",
		"tx", signed.Hash().Hex(),
		"destination", destination.Hex(),
		"nonce", nonce,
	)

	receipt, err := s.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return Result{TxHash: signed.Hash()}, err
	}

	result := Result{
		TxHash:  signed.Hash(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, fmt.Errorf("tx %s: %w", signed.Hash().Hex(), ErrReverted)
	}
	return result, nil
}

func (s *EVMSubmitter) resolveChainID(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chainID != nil {
		return s.chainID, nil
	}
	id, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	s.chainID = id
	return id, nil
}

// waitReceipt polls for the receipt until it is found, the receipt timeout
// elapses or ctx ends. Lookup errors other than not-found are retried.
func (s *EVMSubmitter) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
			s.logger.Debug("receipt lookup failed", "tx", hash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if lastErr != nil {
					return nil, fmt.Errorf("tx %s: %w (last error: %v)", hash.Hex(), ErrReceiptTimeout, lastErr)
				}
				return nil, fmt.Errorf("tx %s: %w", hash.Hex(), ErrReceiptTimeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
