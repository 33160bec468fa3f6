package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/fragwatch/internal/cache"
	"github.com/roach88/fragwatch/internal/fragment"
	"github.com/roach88/fragwatch/internal/metrics"
)

// maxBatchLine bounds one line of stdin input.
const maxBatchLine = 4 << 20

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	RequestFlags
	MetricsAddr string

	// IDGenerator allows overriding subscription ids (for testing).
	// If nil, defaults to fragment.UUIDv7Generator.
	IDGenerator fragment.IDGenerator
}

// WatchSummary is printed when watch ends.
type WatchSummary struct {
	Subscription string `json:"subscription"`
	Batches      int    `json:"batches"`
	Rejected     int    `json:"rejected"`
	Deliveries   int    `json:"deliveries"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to a fragment and print every change",
		Long: `Subscribe to one fragment of one record and print each delivered result.

Record batches are read from stdin, one JSON array of records per line,
and written to the store as they arrive. Every batch that changes the
subscribed data prints a new result. Blank lines and lines starting with
# are ignored. The command ends at end of input or on interrupt.

With --metrics-addr, Prometheus metrics are served at /metrics.

Example:
  fragwatch watch --db ./fragwatch.db --doc items.cue --from Item:1 --partial
  echo '[{"typename":"Item","fields":{"id":1,"text":"hi"}}]' | fragwatch watch --doc items.cue --from Item:1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	opts.RequestFlags.register(cmd, rootOpts.defaultDB)
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", rootOpts.defaultMetricsAddr, "serve Prometheus metrics on this address")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.newLogger(cmd.ErrOrStderr())

	doc, err := LoadDocument(opts.Document)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, "failed to load document", err)
	}
	fopts, err := opts.options(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "invalid request", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)

	st, c, err := openCache(ctx, opts.RootOptions, opts.Database, logger, cache.WithRecorder(recorder))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		c.Close()
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.MetricsAddr != "" {
		stop := serveMetrics(opts.MetricsAddr, reg, logger)
		defer stop()
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = fragment.UUIDv7Generator{}
	}

	summary := WatchSummary{}
	var printErr error
	listener := func(r *fragment.Result) {
		summary.Deliveries++
		if err := formatter.Result(newResultView(summary.Subscription, summary.Deliveries, r)); err != nil && printErr == nil {
			printErr = err
		}
	}

	// The immediate delivery reaches the listener inside Subscribe, before
	// the subscription id is known to this function.
	sub, _, err := fragment.Subscribe(ctx, c, fopts,
		fragment.WithListener(listener),
		fragment.WithLogger(logger),
		fragment.WithRecorder(recorder),
		fragment.WithIDGenerator(prefixed{ids: ids, into: &summary.Subscription}),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSubscription, "failed to subscribe", err)
	}
	defer sub.Stop()
	formatter.VerboseLog("Subscribed %s to %s", sub.ID(), sub.Request().ID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	inputDone := make(chan feedResult, 1)
	go func() {
		inputDone <- feedBatches(ctx, c, cmd.InOrStdin(), logger)
	}()

	var loopErr error
	select {
	case fed := <-inputDone:
		// Let the loop deliver what is queued, then stop it.
		c.Close()
		loopErr = <-runErr
		if fed.err != nil && !errors.Is(fed.err, context.Canceled) {
			return formatter.Fail(ExitCommandError, ErrCodeBadInput, "failed to read input", fed.err)
		}
		summary.Batches, summary.Rejected = fed.batches, fed.rejected
	case loopErr = <-runErr:
	}

	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return formatter.Fail(ExitFailure, ErrCodeSubscription, "broadcast failed", loopErr)
	}
	if printErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", printErr)
	}

	formatter.VerboseLog("Processed %d batch(es), rejected %d, delivered %d result(s)",
		summary.Batches, summary.Rejected, summary.Deliveries)
	return nil
}

type feedResult struct {
	batches  int
	rejected int
	err      error
}

// feedBatches writes one batch of records per input line. Lines that do
// not parse are logged and counted, not fatal.
func feedBatches(ctx context.Context, c *cache.Cache, r io.Reader, logger *slog.Logger) feedResult {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLine)

	var res feedResult
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		records, err := ParseRecords(text)
		if err == nil {
			err = c.Write(ctx, records...)
		}
		if err != nil {
			if errors.Is(err, cache.ErrClosed) {
				res.err = err
				return res
			}
			res.rejected++
			logger.Warn("rejected batch", "line", line, "error", err)
			continue
		}
		res.batches++
		logger.Debug("batch written", "line", line, "records", len(records))
	}
	if err := scanner.Err(); err != nil {
		res.err = fmt.Errorf("line %d: %w", line+1, err)
	}
	return res
}

// serveMetrics serves reg on addr until the returned stop function runs.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// prefixed records the generated subscription id before the subscription
// starts, so the immediate delivery prints with it.
type prefixed struct {
	ids  fragment.IDGenerator
	into *string
}

func (p prefixed) Generate() string {
	id := p.ids.Generate()
	*p.into = id
	return id
}
