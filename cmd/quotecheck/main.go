// Command quotecheck reads every configured asset's redemption rate once
// and prints it next to its destination contract. It never signs or sends
// anything.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rickgao/redemption-relay/internal/config"
	"github.com/rickgao/redemption-relay/internal/source"
)

func main() {
	configPath := flag.String("config", "configs/relay.yaml", "path to config file")
	timeout := flag.Duration("timeout", 60*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := checkSource(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	contractMap, err := cfg.ContractMap()
	if err != nil {
		log.Fatalf("contract map: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reader, err := source.Dial(ctx, cfg.Source.RPCURL,
		source.WithTimeout(cfg.Source.Timeout),
		source.WithRateLimit(cfg.Source.RequestsPerSecond),
	)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer reader.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tCONTRACT\tRATE\tDESTINATION")

	failed := 0
	for _, a := range cfg.TrackedAssets() {
		dest := "-"
		if d, ok := contractMap[a.Contract]; ok {
			dest = d.Hex()
		}

		value, err := reader.ReadQuote(ctx, a)
		if err != nil {
			failed++
			fmt.Fprintf(tw, "%s\t%s\terror: %v\t%s\n", a.Pair(), a.Contract.Hex(), err, dest)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Pair(), a.Contract.Hex(), value.String(), dest)
	}
	tw.Flush()

	if failed > 0 {
		os.Exit(1)
	}
}

// checkSource validates only what a read-only check needs.
func checkSource(cfg *config.RelayConfig) error {
	if cfg.Source.RPCURL == "" {
		return errors.New("source.rpc_url is required")
	}
	if len(cfg.Assets) == 0 {
		return errors.New("assets is required")
	}
	return nil
}
