package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/redemption-relay/internal/model"
	"github.com/rickgao/redemption-relay/internal/policy"
)

// AssetSource provides the assets to sweep.
type AssetSource interface {
	Assets() []model.Asset
}

// QuoteSource reads an asset's current redemption rate.
type QuoteSource interface {
	ReadQuote(ctx context.Context, asset model.Asset) (decimal.Decimal, error)
}

// Handoff accepts quotes for submission. Send blocks while the worker is busy.
type Handoff interface {
	Send(ctx context.Context, quote model.Quote) error
}

// Observer receives sweep outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRead(asset model.Asset, err error)
	ObserveDecision(trigger model.Trigger, decision policy.Decision)
	ObserveSweep(trigger model.Trigger, duration time.Duration)
}

// Config holds scheduler configuration.
type Config struct {
	CheckVariancePeriod time.Duration // Variance-check interval (default: 15s)
	SubmissionPeriod    time.Duration // Forced-refresh interval (default: 300s)
	Policy              policy.Config
}

// DefaultConfig returns the default schedule.
func DefaultConfig() Config {
	return Config{
		CheckVariancePeriod: 15 * time.Second,
		SubmissionPeriod:    300 * time.Second,
		Policy:              policy.DefaultConfig(),
	}
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock overrides the clock used for quote timestamps and scheduling.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// WithObserver registers an observer for reads, decisions and sweeps.
func WithObserver(o Observer) Option {
	return func(p *Poller) {
		p.observer = o
	}
}

// Poller runs the two sweep triggers and owns the last-submitted table.
type Poller struct {
	cfg      Config
	assets   AssetSource
	source   QuoteSource
	handoff  Handoff
	engine   *policy.Engine
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	// Keyed by source contract. Touched only by the goroutine running
	// Run or Sweep.
	last map[common.Address]model.Quote
}

// New creates a new Poller.
func New(cfg Config, assets AssetSource, source QuoteSource, handoff Handoff, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.CheckVariancePeriod <= 0 {
		cfg.CheckVariancePeriod = def.CheckVariancePeriod
	}
	if cfg.SubmissionPeriod <= 0 {
		cfg.SubmissionPeriod = def.SubmissionPeriod
	}

	p := &Poller{
		cfg:     cfg,
		assets:  assets,
		source:  source,
		handoff: handoff,
		engine:  policy.New(cfg.Policy),
		logger:  logger,
		now:     time.Now,
		last:    make(map[common.Address]model.Quote),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LastSubmitted returns the last quote handed off for asset. It must only be
// called from the goroutine running Run or Sweep, or after Run returned.
func (p *Poller) LastSubmitted(asset model.Asset) (model.Quote, bool) {
	q, ok := p.last[asset.Contract]
	return q, ok
}

// Run services both triggers until ctx is cancelled. Sweeps never overlap:
// a trigger that comes due during a sweep waits for it to finish.
// Returns nil on cancellation and an error if the handoff closed.
func (p *Poller) Run(ctx context.Context) error {
	start := p.now()
	varianceDeadline := start.Add(p.cfg.CheckVariancePeriod)
	refreshDeadline := start

	varianceTimer := time.NewTimer(varianceDeadline.Sub(start))
	defer varianceTimer.Stop()
	refreshTimer := time.NewTimer(0)
	defer refreshTimer.Stop()

	p.logger.Info("scheduler started",
		"check_variance_period", p.cfg.CheckVariancePeriod,
		"submission_period", p.cfg.SubmissionPeriod,
		"threshold", p.cfg.Policy.Threshold.String(),
		"min_time_between_quotes", p.cfg.Policy.MinTimeBetweenQuotes,
	)

	for {
		var err error
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopped")
			return nil

		case <-varianceTimer.C:
			err = p.Sweep(ctx, model.TriggerVarianceCheck)
			varianceDeadline = nextDeadline(model.TriggerVarianceCheck.MissedTickBehavior(),
				varianceDeadline, p.cfg.CheckVariancePeriod, p.now())
			varianceTimer.Reset(varianceDeadline.Sub(p.now()))

		case <-refreshTimer.C:
			err = p.Sweep(ctx, model.TriggerForcedRefresh)
			refreshDeadline = nextDeadline(model.TriggerForcedRefresh.MissedTickBehavior(),
				refreshDeadline, p.cfg.SubmissionPeriod, p.now())
			refreshTimer.Reset(refreshDeadline.Sub(p.now()))
		}

		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("scheduler stopped")
				return nil
			}
			return err
		}
	}
}

type reading struct {
	value     decimal.Decimal
	timestamp int64
	err       error
}

// Sweep reads every asset, evaluates each reading against the policy and
// hands accepted quotes to the worker. Read failures are logged and
// skipped. Returns an error only if the context ends or the handoff closed.
func (p *Poller) Sweep(ctx context.Context, trigger model.Trigger) error {
	start := time.Now()

	assets := p.assets.Assets()
	if len(assets) == 0 {
		p.logger.Debug("no assets to sweep", "trigger", trigger.String())
		return nil
	}

	readings := make([]reading, len(assets))

	var g errgroup.Group
	g.SetLimit(len(assets))
	for i, asset := range assets {
		g.Go(func() error {
			value, err := p.source.ReadQuote(ctx, asset)
			readings[i] = reading{value: value, timestamp: p.now().Unix(), err: err}
			if p.observer != nil {
				p.observer.ObserveRead(asset, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var read, accepted, rejected, failed int
	for i, asset := range assets {
		r := readings[i]
		if r.err != nil {
			p.logger.Warn("failed to read quote",
				"asset", asset.Pair(),
				"contract", asset.Contract.Hex(),
				"trigger", trigger.String(),
				"err", r.err,
			)
			failed++
			continue
		}
		read++

		quote := model.NewQuote(asset, r.value, r.timestamp, trigger)

		var previous *model.Quote
		if q, ok := p.last[asset.Contract]; ok {
			previous = &q
		}

		decision := p.engine.Evaluate(quote, previous, trigger)
		if p.observer != nil {
			p.observer.ObserveDecision(trigger, decision)
		}

		if !decision.Accepted() {
			p.logger.Debug("quote rejected",
				"asset", asset.Pair(),
				"quote_id", quote.ID,
				"value", quote.Value.String(),
				"decision", decision.String(),
				"trigger", trigger.String(),
			)
			rejected++
			continue
		}

		if err := p.handoff.Send(ctx, quote); err != nil {
			return fmt.Errorf("hand off quote %s for %s: %w", quote.ID, asset.Pair(), err)
		}
		p.last[asset.Contract] = quote
		accepted++

		p.logger.Debug("quote handed off",
			"asset", asset.Pair(),
			"quote_id", quote.ID,
			"value", quote.Value.String(),
			"decision", decision.String(),
			"trigger", trigger.String(),
		)
	}

	duration := time.Since(start)
	if p.observer != nil {
		p.observer.ObserveSweep(trigger, duration)
	}

	p.logger.Info("sweep complete",
		"trigger", trigger.String(),
		"assets", len(assets),
		"read", read,
		"accepted", accepted,
		"rejected", rejected,
		"errors", failed,
		"duration", duration,
	)

	return nil
}
