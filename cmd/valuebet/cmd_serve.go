package main

import (
	"context"
	"time"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/server"
	"github.com/richard-senior/valuebet/pkg/tools"
	"github.com/richard-senior/valuebet/pkg/transport"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction tools over JSON-RPC on stdin/stdout",
	Long: `Serve the prediction tools over JSON-RPC on stdin/stdout.
Logs go to the log file so they never mix with protocol traffic.
When metrics are enabled /metrics and /healthz are served on the metrics port.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.SetShowDateTime(true)
	ctx := cmd.Context()
	a, err := newApp(ctx, 'f')
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Metrics.Enabled {
		srv := a.metrics.StartServer(a.cfg.Metrics.Port, a.health)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown failed", err)
			}
		}()
	}

	s := server.New(transport.NewStdioTransport(), "valuebet", version)
	tools.NewHandlers(a.svc, a.renderer).Register(s)

	logger.Info("Starting valuebet tool server...")
	if err := s.Start(ctx); err != nil {
		logger.Error("Server error:", err)
		return err
	}
	logger.Info("valuebet tool server shutting down")
	return nil
}
