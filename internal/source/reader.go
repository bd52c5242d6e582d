package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/rickgao/redemption-relay/internal/model"
)

// Reader fetches redemption rates through an Ethereum JSON-RPC endpoint.
type Reader struct {
	caller  ethereum.ContractCaller
	logger  *slog.Logger
	timeout time.Duration
	limiter *rate.Limiter
	close   func()
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithTimeout bounds each contract call. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Reader) {
		r.timeout = d
	}
}

// WithRateLimit caps contract calls per second across all assets.
// Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(r *Reader) {
		if perSecond <= 0 {
			r.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a Reader on top of any contract caller.
func New(caller ethereum.ContractCaller, opts ...Option) *Reader {
	r := &Reader{
		caller: caller,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to rpcURL and returns a Reader backed by an ethclient.
func Dial(ctx context.Context, rpcURL string, opts ...Option) (*Reader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial source rpc: %w", err)
	}
	r := New(client, opts...)
	r.close = client.Close
	return r, nil
}

// Close releases the underlying RPC connection, if the Reader owns one.
func (r *Reader) Close() {
	if r.close != nil {
		r.close()
	}
}

// ReadQuote returns the asset's normalized redemption rate.
func (r *Reader) ReadQuote(ctx context.Context, asset model.Asset) (decimal.Decimal, error) {
	raw, err := r.RedemptionRate(ctx, asset)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read %s: %w", asset, err)
	}
	return Normalize(raw, asset.Decimals), nil
}

// RedemptionRate calls previewRedeem(10^decimals) and returns the raw result.
func (r *Reader) RedemptionRate(ctx context.Context, asset model.Asset) (*big.Int, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := packPreviewRedeem(OneShare(asset.Decimals))
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", previewRedeem, err)
	}

	r.logger.Debug("calling previewRedeem",
		"asset", asset.Pair(),
		"contract", asset.Contract.Hex(),
	)

	contract := asset.Contract
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", previewRedeem, err)
	}

	return unpackPreviewRedeem(out)
}
