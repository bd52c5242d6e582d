package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rickgao/redemption-relay/internal/buffer"
	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/submitter"
)

// ErrHandoffClosed is returned by Run when the handoff closes while the
// worker is still meant to be running.
var ErrHandoffClosed = errors.New("handoff closed unexpectedly")

// Queue is the receiving side of the handoff.
type Queue interface {
	Receive(ctx context.Context) (model.Quote, error)
	Close()
}

// Destinations resolves the destination contract of an asset.
type Destinations interface {
	Destination(asset model.Asset) (common.Address, bool)
}

// Submitter writes a value to a destination contract and waits for the result.
type Submitter interface {
	Submit(ctx context.Context, destination common.Address, value decimal.Decimal, timestamp int64) (submitter.Result, error)
}

// Recorder receives every submission outcome.
type Recorder interface {
	RecordSubmission(s model.Submission)
}

// Stats holds worker counters.
type Stats struct {
	Submitted int64
	Failed    int64
}

// Worker submits quotes sequentially.
type Worker struct {
	queue        Queue
	destinations Destinations
	submitter    Submitter
	recorders    []Recorder
	logger       *slog.Logger

	submitted atomic.Int64
	failed    atomic.Int64
}

// New creates a new Worker. Recorders may be omitted.
func New(queue Queue, destinations Destinations, sub Submitter, logger *slog.Logger, recorders ...Recorder) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:        queue,
		destinations: destinations,
		submitter:    sub,
		recorders:    recorders,
		logger:       logger,
	}
}

// Run processes quotes until ctx is cancelled, then closes the queue so a
// blocked producer sees the terminal state. Returns nil on cancellation and
// ErrHandoffClosed if the queue closed first.
func (w *Worker) Run(ctx context.Context) error {
	defer w.queue.Close()

	w.logger.Info("submission worker started")

	for {
		quote, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("submission worker stopped", "submitted", w.submitted.Load(), "failed", w.failed.Load())
				return nil
			}
			if errors.Is(err, buffer.ErrClosed) {
				return ErrHandoffClosed
			}
			return fmt.Errorf("receive quote: %w", err)
		}

		w.process(ctx, quote)
	}
}

// Stats returns current counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Submitted: w.submitted.Load(),
		Failed:    w.failed.Load(),
	}
}

func (w *Worker) process(ctx context.Context, quote model.Quote) {
	start := time.Now()
	sub := model.Submission{Quote: quote, SubmittedAt: start}

	defer func() {
		sub.Duration = time.Since(start)
		if sub.Err != nil {
			w.failed.Add(1)
		} else {
			w.submitted.Add(1)
		}
		for _, r := range w.recorders {
			r.RecordSubmission(sub)
		}
	}()

	destination, ok := w.destinations.Destination(quote.Asset)
	if !ok {
		sub.Err = fmt.Errorf("no destination contract for %s", quote.Asset)
		w.logger.Error("submission failed",
			"quote_id", quote.ID,
			"asset", quote.Asset.Pair(),
			"err", sub.Err,
		)
		return
	}
	sub.Destination = destination

	result, err := w.submitter.Submit(ctx, destination, quote.Value, quote.Timestamp)
	sub.TxHash = result.TxHash
	sub.BlockNumber = result.BlockNumber
	sub.GasUsed = result.GasUsed
	if err != nil {
		sub.Err = err
		w.logger.Error("submission failed",
			"quote_id", quote.ID,
			"asset", quote.Asset.Pair(),
			"destination", destination.Hex(),
			"value", quote.Value.String(),
			"trigger", quote.Trigger.String(),
			"err", err,
		)
		return
	}

	w.logger.Info("quote submitted",
		"quote_id", quote.ID,
		"asset", quote.Asset.Pair(),
		"destination", destination.Hex(),
		"value", quote.Value.String(),
		"timestamp", quote.Timestamp,
		"trigger", quote.Trigger.String(),
		"tx", result.TxHash.Hex(),
		"block", result.BlockNumber,
	)
}
