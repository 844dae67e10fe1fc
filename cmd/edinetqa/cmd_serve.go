package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiConfig "edinet_qa/pkg/api/config"
	apiSkill "edinet_qa/pkg/api/skill"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill over HTTP",
	Long: `Starts an HTTP server with:
  GET  /api/config             enabled model providers and prompt ids
  GET  /api/skills             registered skills
  POST /api/skills/{id}/run    {"text","history","provider_id","model"} -> {"report"}
  GET  /metrics                Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.Validate(); err != nil {
		a.logger.Warn("configuration incomplete; runs will report it", zap.Error(err))
	}

	mux := http.NewServeMux()
	apiSkill.NewHandler(a.registry, a.logger).Register(mux)
	apiConfig.NewHandler(a.agents, a.qa.Prompts().IDs()).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", serveAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
