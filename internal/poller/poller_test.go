package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/redemption-relay/internal/buffer"
	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/policy"
)

// mockAssetSource returns a fixed list of assets.
type mockAssetSource struct {
	assets []model.Asset
}

func (m *mockAssetSource) Assets() []model.Asset {
	return m.assets
}

// mockQuoteSource returns configurable values per contract.
type mockQuoteSource struct {
	mu     sync.Mutex
	values map[common.Address]decimal.Decimal
	errs   map[common.Address]error
	reads  int
}

func newMockQuoteSource() *mockQuoteSource {
	return &mockQuoteSource{
		values: make(map[common.Address]decimal.Decimal),
		errs:   make(map[common.Address]error),
	}
}

func (m *mockQuoteSource) set(a model.Asset, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[a.Contract] = decimal.RequireFromString(v)
}

func (m *mockQuoteSource) fail(a model.Asset, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[a.Contract] = err
}

func (m *mockQuoteSource) ReadQuote(_ context.Context, a model.Asset) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if err := m.errs[a.Contract]; err != nil {
		return decimal.Decimal{}, err
	}
	return m.values[a.Contract], nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testAssets(n int) []model.Asset {
	names := []string{"sommETH", "turboSTETH", "RYUSD", "RYBTC"}
	out := make([]model.Asset, n)
	for i := range out {
		var addr common.Address
		addr[19] = byte(i + 1)
		out[i] = model.Asset{Contract: addr, Decimals: 18, Base: "ETH", Quote: names[i%len(names)]}
	}
	return out
}

func drain(t *testing.T, h *buffer.Handoff[model.Quote]) []model.Quote {
	t.Helper()
	var out []model.Quote
	for h.Len() > 0 {
		q, err := h.Receive(context.Background())
		require.NoError(t, err)
		out = append(out, q)
	}
	return out
}

func newTestPoller(assets []model.Asset, src *mockQuoteSource, h Handoff, clock *fakeClock) *Poller {
	cfg := Config{
		CheckVariancePeriod: time.Hour,
		SubmissionPeriod:    time.Hour,
		Policy:              policy.DefaultConfig(),
	}
	return New(cfg, &mockAssetSource{assets: assets}, src, h, nil, WithClock(clock.Now))
}

func TestSweep_Policy(t *testing.T) {
	assets := testAssets(2)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")
	src.set(assets[1], "2.0")

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := buffer.NewHandoff[model.Quote](len(assets))
	p := newTestPoller(assets, src, h, clock)
	ctx := context.Background()

	// First quotes are always accepted, even on the variance trigger.
	require.NoError(t, p.Sweep(ctx, model.TriggerVarianceCheck))
	first := drain(t, h)
	require.Len(t, first, 2)
	assert.Equal(t, assets[0], first[0].Asset)
	assert.Equal(t, assets[1], first[1].Asset)

	// Unchanged values fail the variance gate.
	clock.Advance(15 * time.Second)
	require.NoError(t, p.Sweep(ctx, model.TriggerVarianceCheck))
	assert.Empty(t, drain(t, h))

	// A 0.5% move passes for one asset only.
	clock.Advance(15 * time.Second)
	src.set(assets[0], "1.005")
	require.NoError(t, p.Sweep(ctx, model.TriggerVarianceCheck))
	moved := drain(t, h)
	require.Len(t, moved, 1)
	assert.Equal(t, assets[0], moved[0].Asset)
	assert.Equal(t, model.TriggerVarianceCheck, moved[0].Trigger)

	last, ok := p.LastSubmitted(assets[0])
	require.True(t, ok)
	assert.Equal(t, moved[0].ID, last.ID)

	// Forced refresh within the debounce window is too soon for asset 0
	// but fine for asset 1.
	clock.Advance(time.Second)
	require.NoError(t, p.Sweep(ctx, model.TriggerForcedRefresh))
	refreshed := drain(t, h)
	require.Len(t, refreshed, 1)
	assert.Equal(t, assets[1], refreshed[0].Asset)
	assert.Equal(t, model.TriggerForcedRefresh, refreshed[0].Trigger)

	// Past the debounce window the forced refresh sends both regardless of change.
	clock.Advance(10 * time.Second)
	require.NoError(t, p.Sweep(ctx, model.TriggerForcedRefresh))
	assert.Len(t, drain(t, h), 2)
}

func TestSweep_ReadFailureIsolated(t *testing.T) {
	assets := testAssets(3)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")
	src.fail(assets[1], errors.New("rpc unavailable"))
	src.set(assets[2], "3.0")

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := buffer.NewHandoff[model.Quote](len(assets))
	p := newTestPoller(assets, src, h, clock)

	require.NoError(t, p.Sweep(context.Background(), model.TriggerForcedRefresh))

	got := drain(t, h)
	require.Len(t, got, 2)
	assert.Equal(t, assets[0], got[0].Asset)
	assert.Equal(t, assets[2], got[1].Asset)

	_, ok := p.LastSubmitted(assets[1])
	assert.False(t, ok)
	assert.Equal(t, 3, src.reads)
}

func TestSweep_TimestampFromClock(t *testing.T) {
	assets := testAssets(1)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")

	clock := &fakeClock{t: time.Unix(1_700_000_123, 0)}
	h := buffer.NewHandoff[model.Quote](1)
	p := newTestPoller(assets, src, h, clock)

	require.NoError(t, p.Sweep(context.Background(), model.TriggerForcedRefresh))
	got := drain(t, h)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1_700_000_123), got[0].Timestamp)
}

func TestSweep_BackpressureDelaysWithoutDropping(t *testing.T) {
	assets := testAssets(4)
	src := newMockQuoteSource()
	for i, a := range assets {
		src.set(a, decimal.NewFromInt(int64(i+1)).String())
	}

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := buffer.NewHandoff[model.Quote](1)
	p := newTestPoller(assets, src, h, clock)

	done := make(chan error, 1)
	go func() {
		done <- p.Sweep(context.Background(), model.TriggerForcedRefresh)
	}()

	// Nothing is received until the sweep is stuck on the full handoff.
	require.Eventually(t, func() bool {
		return h.Stats().BlockedSends >= 1
	}, 5*time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("sweep finished while the handoff was full")
	default:
	}

	var got []model.Quote
	for range assets {
		q, err := h.Receive(context.Background())
		require.NoError(t, err)
		got = append(got, q)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not finish")
	}

	require.Len(t, got, len(assets))
	for i, q := range got {
		assert.Equal(t, assets[i], q.Asset)
	}
}

func TestSweep_ClosedHandoffIsFatal(t *testing.T) {
	assets := testAssets(2)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")
	src.set(assets[1], "2.0")

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := buffer.NewHandoff[model.Quote](2)
	h.Close()
	p := newTestPoller(assets, src, h, clock)

	err := p.Sweep(context.Background(), model.TriggerForcedRefresh)
	require.Error(t, err)
	assert.ErrorIs(t, err, buffer.ErrClosed)

	// A quote that was never handed off is not recorded.
	_, ok := p.LastSubmitted(assets[0])
	assert.False(t, ok)
}

func TestSweep_NoAssets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	h := buffer.NewHandoff[model.Quote](1)
	p := newTestPoller(nil, newMockQuoteSource(), h, clock)

	require.NoError(t, p.Sweep(context.Background(), model.TriggerVarianceCheck))
	assert.Equal(t, 0, h.Len())
}

func TestRun_ForcedRefreshFiresImmediately(t *testing.T) {
	assets := testAssets(2)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")
	src.set(assets[1], "2.0")

	h := buffer.NewHandoff[model.Quote](len(assets))
	cfg := Config{
		CheckVariancePeriod: time.Hour,
		SubmissionPeriod:    time.Hour,
		Policy:              policy.DefaultConfig(),
	}
	p := New(cfg, &mockAssetSource{assets: assets}, src, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()
	for range assets {
		q, err := h.Receive(recvCtx)
		require.NoError(t, err)
		assert.Equal(t, model.TriggerForcedRefresh, q.Trigger)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_VarianceCheckRepeats(t *testing.T) {
	assets := testAssets(1)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")

	h := buffer.NewHandoff[model.Quote](1)
	cfg := Config{
		CheckVariancePeriod: 10 * time.Millisecond,
		SubmissionPeriod:    time.Hour,
		Policy: policy.Config{
			Threshold:            decimal.RequireFromString("0.0025"),
			MinTimeBetweenQuotes: 0,
		},
	}
	p := New(cfg, &mockAssetSource{assets: assets}, src, h, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recvCancel()

	first, err := h.Receive(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerForcedRefresh, first.Trigger)

	// Move the value; a later variance-check sweep picks it up.
	src.set(assets[0], "1.5")
	second, err := h.Receive(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerVarianceCheck, second.Trigger)
	assert.True(t, decimal.RequireFromString("1.5").Equal(second.Value))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_ClosedHandoffStops(t *testing.T) {
	assets := testAssets(1)
	src := newMockQuoteSource()
	src.set(assets[0], "1.0")

	h := buffer.NewHandoff[model.Quote](1)
	h.Close()
	p := New(DefaultConfig(), &mockAssetSource{assets: assets}, src, h, nil)

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, buffer.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
