package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog"
	"github.com/roach88/pokemart/internal/catalog/pokeapi"
	"github.com/roach88/pokemart/internal/config"
	"github.com/roach88/pokemart/internal/metrics"
	"github.com/roach88/pokemart/internal/store"
	badgerstore "github.com/roach88/pokemart/internal/store/badger"
	s3store "github.com/roach88/pokemart/internal/store/s3"
	"github.com/roach88/pokemart/internal/storefront"
)

// session is a storefront opened for one command: config, cart store,
// restored cart and a running controller.
type session struct {
	cfg    config.Config
	kv     store.KV
	ctrl   *storefront.Controller
	report cart.LoadReport

	cancel context.CancelFunc
	done   chan struct{}
}

type sessionOptions struct {
	loadCatalog bool
	metrics     *metrics.Metrics
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandContext returns cmd's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openSession loads config, restores the cart and starts the controller
// loop. Failures are reported through formatter before being returned.
func openSession(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, so sessionOptions) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, failf(formatter, ErrCodeConfig, "%v", err)
	}
	formatter.VerboseLog("Using %s store, %s catalog", cfg.Store.Driver, cfg.Catalog.Source)

	provider, err := newProvider(cfg.Catalog)
	if err != nil {
		return nil, failf(formatter, ErrCodeConfig, "%v", err)
	}

	kv, err := openKV(ctx, cfg.Store)
	if err != nil {
		return nil, failf(formatter, ErrCodeStore, "failed to open %s store: %v", cfg.Store.Driver, err)
	}

	carts := cart.NewStore(kv, cfg.Store.Key, so.metrics)
	c, report := cart.Restore(ctx, carts)
	if report.Err != nil {
		slog.Warn("cart record not restored", "outcome", report.Outcome(), "error", report.Err)
	}
	formatter.VerboseLog("Cart restored: %s (%d items, %d skipped)", report.Outcome(), report.Loaded, len(report.Skipped))

	ctrl := storefront.New(storefront.Options{
		Provider:  provider,
		Cart:      c,
		Processor: cfg.Processor(),
		Metrics:   so.metrics,
		Limit:     cfg.Catalog.Limit,
		Stock:     cfg.StockConfig(),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		cfg:    cfg,
		kv:     kv,
		ctrl:   ctrl,
		report: report,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := ctrl.Run(runCtx); err != nil {
			slog.Error("storefront loop failed", "error", err)
		}
	}()

	if so.loadCatalog {
		loadCtx := ctx
		if cfg.Catalog.Timeout > 0 {
			var cancelLoad context.CancelFunc
			loadCtx, cancelLoad = context.WithTimeout(ctx, cfg.Catalog.Timeout)
			defer cancelLoad()
		}
		if err := ctrl.Load(loadCtx); err != nil {
			s.Close()
			return nil, fail(formatter, err)
		}
		formatter.VerboseLog("Catalog loaded: %d items", ctrl.Catalog().Len())
	}
	return s, nil
}

// Close stops the controller and closes the store.
func (s *session) Close() {
	s.ctrl.Close()
	s.cancel()
	<-s.done
	if err := s.kv.Close(); err != nil {
		slog.Error("error closing cart store", "error", err)
	}
}

// newProvider builds the catalog provider named by cfg.Source.
func newProvider(cfg config.Catalog) (catalog.Provider, error) {
	switch cfg.Source {
	case config.SourcePokeAPI:
		return pokeapi.New(cfg.BaseURL,
			pokeapi.WithConcurrency(cfg.Concurrency),
			pokeapi.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		), nil
	case config.SourceDemo:
		return catalog.NewDemoProvider(), nil
	case config.SourceFixture:
		p, err := catalog.NewFixtureProvider(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}

// openKV opens the cart store backend named by cfg.Driver.
func openKV(ctx context.Context, cfg config.Store) (store.KV, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := store.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Path)
		bcfg.Logger = slog.Default()
		st, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverS3:
		st, err := s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
