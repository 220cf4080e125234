package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/engine"
	pthttp "github.com/fwojciec/pagetext/http"
	"github.com/fwojciec/pagetext/rod"
	ptslog "github.com/fwojciec/pagetext/slog"
	"github.com/fwojciec/pagetext/sqlite"
	"github.com/fwojciec/pagetext/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Fetchers for end-to-end testing. When nil, Run builds the HTTP and
	// browser fetchers.
	Static  pagetext.Fetcher
	Dynamic pagetext.Fetcher
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pagetext"),
		kong.Description("Extract the readable text of a web page"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	logger := newLogger(stderr, cli.Verbose)

	eng, cleanup, err := m.wire(ctx, cli, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.Extract(ctx, cli.URL, cli.Options())
	if err != nil {
		return err
	}

	return writeResult(stdout, cli.Format, result)
}

// wire builds the engine and returns a cleanup function that closes it
// together with anything it owns.
func (m *Main) wire(ctx context.Context, cli *CLI, logger *slog.Logger) (*engine.Engine, func(), error) {
	static := m.Static
	if static == nil {
		static = pthttp.NewFetcher()
	}
	dynamic := m.Dynamic
	if dynamic == nil {
		manager := rod.NewBrowserManager(
			rod.WithLogger(logger),
			rod.WithBrowserBin(cli.BrowserBin),
		)
		dynamic = rod.NewFetcher(manager)
	}

	eng := engine.New(
		ptslog.NewLoggingFetcher(static, pagetext.SourceStatic, logger),
		ptslog.NewLoggingFetcher(dynamic, pagetext.SourceDynamic, logger),
	)
	eng.Logger = logger

	var db *sqlite.DB
	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("closing engine", "err", err)
		}
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("closing cache", "err", err)
			}
		}
	}

	if cli.Policy != "" {
		policy, err := yaml.LoadPolicyFile(cli.Policy)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		eng.Policy = policy
	}

	if cli.Cache != "" {
		db = sqlite.NewDB(cli.Cache)
		if err := db.Open(); err != nil {
			db = nil
			cleanup()
			return nil, nil, fmt.Errorf("opening cache: %w", err)
		}
		cache := sqlite.NewResultCache(db, sqlite.WithTTL(cli.CacheTTL))
		if n, err := cache.Purge(ctx); err != nil {
			logger.Warn("purging cache", "err", err)
		} else if n > 0 {
			logger.Debug("purged expired cache entries", "count", n)
		}
		eng.Cache = ptslog.NewLoggingCache(cache, logger)
	}

	if cli.RPS > 0 {
		eng.Limiter = engine.NewDomainLimiter(cli.RPS)
	}

	return eng, cleanup, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatError renders extraction failures with their code.
func formatError(err error) string {
	var e *pagetext.Error
	if errors.As(err, &e) {
		return fmt.Sprintf("error (%s): %s", e.Code, e.Message)
	}
	return err.Error()
}
