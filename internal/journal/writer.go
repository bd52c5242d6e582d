package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/redemption-relay/internal/buffer"
	"github.com/rickgao/redemption-relay/internal/model"
)

// Batcher sends a batch of statements. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds journal writer configuration.
type Config struct {
	BatchSize     int           // Rows per INSERT batch (default: 100)
	FlushInterval time.Duration // Max time between flushes (default: 5s)
	BufferSize    int           // Max queued outcomes before dropping the oldest (default: 1000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		BufferSize:    1000,
	}
}

// Stats holds writer counters.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// Writer batches submission outcomes into the submissions table.
type Writer struct {
	cfg    Config
	db     Batcher
	logger *slog.Logger
	input  *buffer.GrowableBuffer[model.Submission]
	notify chan struct{}

	mu    sync.Mutex // serializes flushes and guards stats
	stats Stats
}

// New creates a new Writer.
func New(cfg Config, db Batcher, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	initial := cfg.BatchSize
	if initial > cfg.BufferSize {
		initial = cfg.BufferSize
	}

	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  buffer.NewGrowableBuffer[model.Submission](initial, cfg.BufferSize),
		notify: make(chan struct{}, 1),
	}
}

// RecordSubmission queues an outcome. It never blocks.
func (w *Writer) RecordSubmission(s model.Submission) {
	if !w.input.Send(s) {
		return
	}
	if w.input.Len() >= w.cfg.BatchSize {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Run flushes queued outcomes until ctx is cancelled, then performs a final
// flush bounded by the flush interval.
func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
		"buffer_size", w.cfg.BufferSize,
	)

	for {
		select {
		case <-ctx.Done():
			w.input.Close()
			finalCtx, cancel := context.WithTimeout(context.Background(), w.cfg.FlushInterval)
			w.Flush(finalCtx)
			cancel()
			w.logger.Info("journal writer stopped")
			return nil
		case <-ticker.C:
			w.Flush(ctx)
		case <-w.notify:
			w.Flush(ctx)
		}
	}
}

// Flush writes everything queued so far in batches.
func (w *Writer) Flush(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		rows := w.input.DrainTo(w.cfg.BatchSize)
		if len(rows) == 0 {
			return
		}

		start := time.Now()
		conflicts, err := w.batchInsert(ctx, rows)
		if err != nil {
			w.logger.Error("journal batch insert failed", "err", err, "count", len(rows))
			w.stats.Errors++
			return
		}

		w.stats.Inserts += int64(len(rows) - conflicts)
		w.stats.Conflicts += int64(conflicts)
		w.stats.Flushes++

		w.logger.Debug("flushed submissions",
			"count", len(rows),
			"conflicts", conflicts,
			"duration", time.Since(start),
		)
	}
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.stats
	s.Dropped = w.input.Stats().Dropped
	return s
}

const insertSubmission = `
	INSERT INTO submissions (
		quote_id, asset_contract, pair, destination, value, quote_ts, trigger,
		status, tx_hash, block_number, gas_used, error, submitted_at, duration_ms
	)
	VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (quote_id) DO NOTHING
`

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []model.Submission) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, s := range rows {
		r := toRow(s)
		batch.Queue(insertSubmission,
			r.QuoteID, r.AssetContract, r.Pair, r.Destination, r.Value, r.QuoteTs, r.Trigger,
			r.Status, r.TxHash, r.BlockNumber, r.GasUsed, r.Error, r.SubmittedAt, r.DurationMs,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
