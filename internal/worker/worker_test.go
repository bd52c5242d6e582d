package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/redemption-relay/internal/buffer"
	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/submitter"
)

type staticDestinations map[common.Address]common.Address

func (d staticDestinations) Destination(a model.Asset) (common.Address, bool) {
	dest, ok := d[a.Contract]
	return dest, ok
}

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []common.Address
	failFor  map[common.Address]error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeSubmitter) Submit(ctx context.Context, dest common.Address, _ decimal.Decimal, _ int64) (submitter.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return submitter.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, dest)
	err := f.failFor[dest]
	f.mu.Unlock()

	if err != nil {
		return submitter.Result{}, err
	}
	return submitter.Result{TxHash: common.BytesToHash(dest.Bytes()), BlockNumber: 1}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingRecorder struct {
	mu   sync.Mutex
	subs []model.Submission
}

func (r *recordingRecorder) RecordSubmission(s model.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
}

func (r *recordingRecorder) all() []model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Submission(nil), r.subs...)
}

func asset(i byte) model.Asset {
	var addr common.Address
	addr[19] = i
	return model.Asset{Contract: addr, Decimals: 18, Base: "ETH", Quote: "vault"}
}

func dest(i byte) common.Address {
	var addr common.Address
	addr[0] = 0xd0
	addr[19] = i
	return addr
}

func quote(a model.Asset, v int64) model.Quote {
	return model.NewQuote(a, decimal.NewFromInt(v), 1_700_000_000, model.TriggerForcedRefresh)
}

func startWorker(t *testing.T, w *Worker) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
		return nil
	}
}

func TestWorker_FailureDoesNotBlockNext(t *testing.T) {
	h := buffer.NewHandoff[model.Quote](3)
	dests := staticDestinations{
		asset(1).Contract: dest(1),
		asset(2).Contract: dest(2),
		asset(3).Contract: dest(3),
	}
	sub := &fakeSubmitter{failFor: map[common.Address]error{dest(2): errors.New("execution reverted")}}
	rec := &recordingRecorder{}
	w := New(h, dests, sub, nil, rec)

	for i := byte(1); i <= 3; i++ {
		require.NoError(t, h.Send(context.Background(), quote(asset(i), int64(i))))
	}

	cancel, done := startWorker(t, w)
	require.Eventually(t, func() bool { return len(rec.all()) == 3 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	subs := rec.all()
	assert.True(t, subs[0].Succeeded())
	assert.False(t, subs[1].Succeeded())
	assert.Equal(t, "failed", subs[1].Status())
	assert.True(t, subs[2].Succeeded())
	assert.Equal(t, dest(3), subs[2].Destination)

	assert.Equal(t, Stats{Submitted: 2, Failed: 1}, w.Stats())
}

func TestWorker_MissingDestination(t *testing.T) {
	h := buffer.NewHandoff[model.Quote](2)
	sub := &fakeSubmitter{}
	rec := &recordingRecorder{}
	w := New(h, staticDestinations{asset(2).Contract: dest(2)}, sub, nil, rec)

	require.NoError(t, h.Send(context.Background(), quote(asset(1), 1)))
	require.NoError(t, h.Send(context.Background(), quote(asset(2), 2)))

	cancel, done := startWorker(t, w)
	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	subs := rec.all()
	require.Error(t, subs[0].Err)
	assert.Equal(t, common.Address{}, subs[0].Destination)
	assert.True(t, subs[1].Succeeded())
	assert.Equal(t, 1, sub.callCount())
}

func TestWorker_OneSubmissionInFlight(t *testing.T) {
	h := buffer.NewHandoff[model.Quote](4)
	dests := staticDestinations{}
	for i := byte(1); i <= 4; i++ {
		dests[asset(i).Contract] = dest(i)
	}
	sub := &fakeSubmitter{delay: 5 * time.Millisecond}
	w := New(h, dests, sub, nil)

	cancel, done := startWorker(t, w)

	go func() {
		for i := byte(1); i <= 4; i++ {
			_ = h.Send(context.Background(), quote(asset(i), int64(i)))
		}
	}()

	require.Eventually(t, func() bool { return sub.callCount() == 4 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, int32(1), sub.maxSeen.Load())
	assert.Equal(t, []common.Address{dest(1), dest(2), dest(3), dest(4)}, sub.calls)
}

func TestWorker_ClosesHandoffOnExit(t *testing.T) {
	h := buffer.NewHandoff[model.Quote](1)
	w := New(h, staticDestinations{}, &fakeSubmitter{}, nil)

	cancel, done := startWorker(t, w)
	cancel()
	require.NoError(t, waitDone(t, done))

	assert.True(t, h.Closed())
	err := h.Send(context.Background(), quote(asset(1), 1))
	assert.ErrorIs(t, err, buffer.ErrClosed)
}

func TestWorker_HandoffClosedIsFatal(t *testing.T) {
	h := buffer.NewHandoff[model.Quote](1)
	w := New(h, staticDestinations{}, &fakeSubmitter{}, nil)

	cancel, done := startWorker(t, w)
	defer cancel()

	h.Close()
	err := waitDone(t, done)
	assert.ErrorIs(t, err, ErrHandoffClosed)
}
