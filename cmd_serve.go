package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcts/game/tictactoe"
	"mcts/searcher/agent"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr   string
		budget time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer move requests over HTTP",
		Long: `Answer move requests over HTTP.

POST /move with {"state": "XX.|OO.|..."} replies with the chosen cell index
and the search statistics. GET /metrics exposes Prometheus metrics.
Requests are traced when --trace is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("budget") {
				budget = a.cfg.Search.TimeBudget
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, budget)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().DurationVarP(&budget, "budget", "b", 0, "search time per request (default from config)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string, budget time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.newRouter(budget),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("serving moves on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *app) newRouter(budget time.Duration) *gin.Engine {
	debug := a.cfg.Log.Level == "debug" || a.cfg.Log.Level == "trace"
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), otelgin.Middleware("mcts"))
	if debug {
		router.Use(gin.Logger())
	}

	moves := agent.NewServer(agent.NewEvaluationAgent(a.newSearcher("server"), budget), tictactoe.DecodeState)
	router.POST("/move", gin.WrapH(moves))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	return router
}
