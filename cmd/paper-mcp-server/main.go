package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/config"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/server"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// stdout belongs to the MCP transport
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.LogConfig{
		Output:   cfg.Log.Output,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting paper-assistant MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize: %v", err)
	}

	srv := server.CreateServer(a)
	runErr := srv.Run(ctx, &mcp.StdioTransport{})

	log.Info("Waiting for in-flight papers to finish")
	if err := a.Close(); err != nil {
		log.Error("Failed to close storage: %v", err)
	}
	if runErr != nil && ctx.Err() == nil {
		log.Fatal("Server failed: %v", runErr)
	}
}
