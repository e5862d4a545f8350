package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/pokemart/internal/api"
	"github.com/roach88/pokemart/internal/metrics"
	"github.com/roach88/pokemart/internal/stock"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Listening is called with the bound address once the server accepts
	// connections (for testing).
	Listening func(addr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Long: `Run the storefront HTTP API.

The catalog is loaded and the persisted cart restored before the server
starts listening. The stock oscillator then runs until shutdown, pushing
changes to clients connected to /api/stock/stream.

Example:
  pokemart serve --addr :8080
  pokemart serve --config pokemart.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(opts.logLevel(slog.LevelInfo))
	formatter := newFormatter(opts.RootOptions, cmd)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sess, err := openSession(ctx, opts.RootOptions, formatter, sessionOptions{loadCatalog: true, metrics: m})
	if err != nil {
		return err
	}
	defer sess.Close()

	addr := opts.Addr
	if addr == "" {
		addr = sess.cfg.Server.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return failf(formatter, ErrCodeGeneric, "failed to listen on %s: %v", addr, err)
	}

	if _, err := sess.ctrl.StartStock(ctx, stock.NewIntervalScheduler(sess.cfg.Oscillator.Interval)); err != nil {
		_ = ln.Close()
		return fail(formatter, err)
	}

	srv := &http.Server{
		Handler: api.New(api.Options{
			Controller: sess.ctrl,
			PriceRange: sess.cfg.PriceRange(),
			Gatherer:   reg,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("storefront listening", "addr", ln.Addr().String(), "items", sess.ctrl.Catalog().Len())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Closing the storefront ends open stock streams, which Shutdown
		// does not wait for.
		sess.ctrl.Close()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Storefront listening on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.Listening != nil {
		opts.Listening(ln.Addr())
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	slog.Info("storefront stopped gracefully")
	return nil
}
