package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/redemption-relay/internal/asset"
	"github.com/rickgao/redemption-relay/internal/buffer"
	"github.com/rickgao/redemption-relay/internal/journal"
	"github.com/rickgao/redemption-relay/internal/metrics"
	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/poller"
	"github.com/rickgao/redemption-relay/internal/worker"
)

// Config holds relay configuration.
type Config struct {
	Poller poller.Config
}

// Deps holds the relay's collaborators. Metrics, Journal and Clock are optional.
type Deps struct {
	Registry  *asset.Registry
	Source    poller.QuoteSource
	Submitter worker.Submitter
	Metrics   *metrics.Metrics
	Journal   *journal.Writer
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Stats holds a snapshot of relay counters.
type Stats struct {
	Handoff buffer.HandoffStats
	Worker  worker.Stats
}

// Relay runs one scheduler and one submission worker connected by a
// handoff sized to the number of tracked assets.
type Relay struct {
	handoff *buffer.Handoff[model.Quote]
	poller  *poller.Poller
	worker  *worker.Worker
	journal *journal.Writer
	logger  *slog.Logger
}

// New wires the relay together.
func New(cfg Config, deps Deps) (*Relay, error) {
	if deps.Registry == nil {
		return nil, errors.New("relay: registry is required")
	}
	if deps.Source == nil {
		return nil, errors.New("relay: quote source is required")
	}
	if deps.Submitter == nil {
		return nil, errors.New("relay: submitter is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handoff := buffer.NewHandoff[model.Quote](deps.Registry.Len())

	var opts []poller.Option
	var recorders []worker.Recorder
	if deps.Clock != nil {
		opts = append(opts, poller.WithClock(deps.Clock))
	}
	if deps.Metrics != nil {
		opts = append(opts, poller.WithObserver(deps.Metrics))
		recorders = append(recorders, deps.Metrics)
		deps.Metrics.RegisterQueueDepth("handoff", handoff.Len)
	}
	if deps.Journal != nil {
		recorders = append(recorders, deps.Journal)
	}

	return &Relay{
		handoff: handoff,
		poller: poller.New(cfg.Poller, deps.Registry, deps.Source, handoff,
			logger.With("component", "scheduler"), opts...),
		worker: worker.New(handoff, deps.Registry, deps.Submitter,
			logger.With("component", "worker"), recorders...),
		journal: deps.Journal,
		logger:  logger,
	}, nil
}

// Run blocks until ctx is cancelled or a component fails. The first fatal
// error stops the other component and is returned; cancellation returns nil.
// The journal, if any, is flushed after both components have stopped.
func (r *Relay) Run(ctx context.Context) error {
	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := make(chan struct{})
	if r.journal != nil {
		go func() {
			defer close(journalDone)
			_ = r.journal.Run(journalCtx)
		}()
	} else {
		close(journalDone)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.poller.Run(gctx)
	})
	g.Go(func() error {
		return r.worker.Run(gctx)
	})

	err := g.Wait()

	stopJournal()
	<-journalDone

	stats := r.Stats()
	if err != nil {
		r.logger.Error("relay stopped", "err", err,
			"submitted", stats.Worker.Submitted, "failed", stats.Worker.Failed)
		return err
	}
	r.logger.Info("relay stopped",
		"submitted", stats.Worker.Submitted, "failed", stats.Worker.Failed)
	return nil
}

// Stats returns current counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Handoff: r.handoff.Stats(),
		Worker:  r.worker.Stats(),
	}
}
