// Command cotdump runs a single poll against the CAD feed, or a recorded
// snapshot, and prints the resulting CoT events to stdout, one per line.
// Logs and the poll summary go to stderr.
//
// Usage:
//
//	go run ./cmd/cotdump -file data/mock/sfpd_cad_snapshot.json -at 2022-06-14T15:05:00Z
//	go run ./cmd/cotdump -url https://data.sfgov.org/resource/gnap-fj3t.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/adapter/feed"
	"github.com/couchcryptid/sfpd-cad-cot/internal/adapter/stdout"
	"github.com/couchcryptid/sfpd-cad-cot/internal/config"
	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/couchcryptid/sfpd-cad-cot/internal/observability"
	"github.com/couchcryptid/sfpd-cad-cot/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("cotdump", flag.ContinueOnError)
	fs.SetOutput(errOut)
	url := fs.String("url", config.DefaultCADURL, "CAD feed URL")
	file := fs.String("file", "", "read a recorded snapshot instead of the feed")
	stale := fs.Duration("stale", 120*time.Second, "CoT stale horizon")
	hostID := fs.String("host-id", "cotdump", "host id appended to remarks")
	at := fs.String("at", "", "RFC 3339 instant used as event time, for reproducible output")
	timeout := fs.Duration("timeout", 30*time.Second, "feed request timeout")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := observability.NewLogger(errOut, *logLevel, "text")

	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	var source pipeline.Fetcher
	if *file != "" {
		source = feed.NewFileSource(*file)
	} else {
		source = feed.NewClient(*url, *timeout, logger)
	}

	transformer := pipeline.NewTransformer(domain.CoTOptions{Stale: *stale, HostID: *hostID})
	p := pipeline.New(source, transformer, stdout.NewWriter(out), logger, observability.NewMetricsForTesting(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	result, err := p.Poll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(errOut, "fetched=%d eligible=%d submitted=%d skipped=%d failed=%d malformed=%d\n",
		result.Fetched, result.Eligible, result.Submitted, result.Skipped, result.Failed, result.Malformed)
	return nil
}
