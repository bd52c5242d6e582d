package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/redemption-relay/internal/asset"
	"github.com/rickgao/redemption-relay/internal/config"
	"github.com/rickgao/redemption-relay/internal/database"
	"github.com/rickgao/redemption-relay/internal/journal"
	"github.com/rickgao/redemption-relay/internal/metrics"
	"github.com/rickgao/redemption-relay/internal/policy"
	"github.com/rickgao/redemption-relay/internal/poller"
	"github.com/rickgao/redemption-relay/internal/relay"
	"github.com/rickgao/redemption-relay/internal/source"
	"github.com/rickgao/redemption-relay/internal/submitter"
	"github.com/rickgao/redemption-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("relay failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting relay", append(version.Fields(), "config", configPath)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	contractMap, err := cfg.ContractMap()
	if err != nil {
		return err
	}
	registry, err := asset.NewRegistry(cfg.TrackedAssets(), contractMap)
	if err != nil {
		return err
	}
	for _, a := range registry.Assets() {
		dest, _ := registry.Destination(a)
		logger.Info("tracking asset",
			"asset", a.Pair(),
			"contract", a.Contract.Hex(),
			"decimals", a.Decimals,
			"destination", dest.Hex(),
		)
	}

	key, err := submitter.LoadPrivateKey(cfg.Destination.SigningKey, cfg.Destination.SigningKeyPath)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	reader, err := source.Dial(ctx, cfg.Source.RPCURL,
		source.WithLogger(logger.With("component", "source")),
		source.WithTimeout(cfg.Source.Timeout),
		source.WithRateLimit(cfg.Source.RequestsPerSecond),
	)
	if err != nil {
		return err
	}
	defer reader.Close()

	subCfg := submitter.Config{
		GasLimit:            cfg.Destination.GasLimit,
		ReceiptTimeout:      cfg.Destination.ReceiptTimeout,
		ReceiptPollInterval: cfg.Destination.ReceiptPollInterval,
	}
	if cfg.Destination.ChainID > 0 {
		subCfg.ChainID = big.NewInt(cfg.Destination.ChainID)
	}
	sub, err := submitter.Dial(ctx, cfg.Destination.RPCURL, key, subCfg, logger.With("component", "submitter"))
	if err != nil {
		return err
	}
	defer sub.Close()

	logger.Info("oracle signer", "address", sub.Address().Hex())

	g, gctx := errgroup.WithContext(ctx)

	var m *metrics.Metrics
	var server *metrics.Server
	if cfg.Metrics.Enabled {
		m = metrics.New()
		server = metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, m, logger.With("component", "metrics"))
	}

	var jw *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			return fmt.Errorf("connect journal database: %w", err)
		}
		defer pool.Close()

		if err := journal.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		jw = journal.New(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger.With("component", "journal"))

		if server != nil {
			server.AddCheck("journal", pool.Ping)
		}
		logger.Info("journal database connected")
	}

	r, err := relay.New(relay.Config{
		Poller: poller.Config{
			CheckVariancePeriod: cfg.Relay.CheckVariancePeriod,
			SubmissionPeriod:    cfg.Relay.SubmissionPeriod,
			Policy: policy.Config{
				Threshold:            decimal.NewFromFloat(cfg.Relay.PriceVarianceThreshold),
				MinTimeBetweenQuotes: cfg.Relay.MinTimeBetweenQuotes,
			},
		},
	}, relay.Deps{
		Registry:  registry,
		Source:    reader,
		Submitter: sub,
		Metrics:   m,
		Journal:   jw,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if server != nil {
		g.Go(func() error {
			return server.Run(gctx)
		})
	}
	g.Go(func() error {
		err := r.Run(gctx)
		// Stop the metrics server once the relay exits.
		cancel()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("relay stopped")
	return nil
}
