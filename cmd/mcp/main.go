package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/itinerary-agent/internal/adapters/mcp"
	"github.com/kirillkom/itinerary-agent/internal/bootstrap"
	"github.com/kirillkom/itinerary-agent/internal/config"
	"github.com/kirillkom/itinerary-agent/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol, so logs go to stderr.
	logger := logging.New(os.Stderr, mcpadapter.ServerName, cfg.LogLevel, "json")

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	handler := mcpadapter.NewHandler(app.TripsUC, app.TripsUC, logger)
	logger.Info("mcp_stdio_serving")
	if err := server.ServeStdio(handler.NewServer()); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
