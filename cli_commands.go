package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mcts/config"
	"mcts/experiments/metrics"
	"mcts/searcher"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// app holds what every command shares once the root command has set it up.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string
	trace       bool

	cfg            config.Config
	registry       *prometheus.Registry
	metrics        *metrics.PromMetrics
	metricsServer  *http.Server
	tracerProvider *sdktrace.TracerProvider
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mcts",
		Short: "Monte Carlo tree search for tic-tac-toe",
		Long: `mcts plays tic-tac-toe against you, analyses positions and runs
agent-vs-agent experiments, all driven by Monte Carlo tree search.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn, error or disabled")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&a.trace, "trace", false, "export search spans to stderr")

	rootCmd.AddCommand(newPlayCmd(a))
	rootCmd.AddCommand(newBestCmd(a))
	rootCmd.AddCommand(newArenaCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = a.metricsAddr
	}
	if flags.Changed("trace") {
		cfg.Tracing.Enabled = a.trace
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	a.cfg = cfg

	setupLogging(cmd.ErrOrStderr(), cfg.Log)

	if cfg.Tracing.Enabled {
		tp, err := setupTracing(cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		a.tracerProvider = tp
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewPromMetrics(a.registry)
	if cfg.Metrics.Addr != "" {
		a.metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(a.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Msgf("serving metrics on %s", cfg.Metrics.Addr)
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.metricsServer != nil {
		errs = append(errs, a.metricsServer.Shutdown(ctx))
	}
	if a.tracerProvider != nil {
		errs = append(errs, a.tracerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// newSearcher builds a searcher from the search config, exporting its
// metrics under label.
func (a *app) newSearcher(label string) *searcher.MCTS[int] {
	options := []searcher.Option{
		searcher.WithExplorationConstant(a.cfg.Search.ExplorationConstant),
		searcher.WithMetrics(metrics.NewPromCollector(a.metrics, label)),
	}
	if a.cfg.Search.MaxIterations > 0 {
		options = append(options, searcher.WithMaxIterations(a.cfg.Search.MaxIterations))
	}
	if a.cfg.Search.Seed != 0 {
		options = append(options, searcher.WithSeed(a.cfg.Search.Seed))
	}
	return searcher.NewMCTS[int](options...)
}

func setupLogging(w io.Writer, c config.LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func setupTracing(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "mcts"))),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
