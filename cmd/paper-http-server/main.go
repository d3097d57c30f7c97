package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Epistemic-Technology/paper-assistant/internal/api"
	"github.com/Epistemic-Technology/paper-assistant/internal/app"
	"github.com/Epistemic-Technology/paper-assistant/internal/config"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	output := cfg.Log.Output
	if output == "" {
		output = "stderr"
	}
	log, err := logger.NewLogger(logger.LogConfig{
		Output:   output,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
		Encoding: cfg.Log.Encoding,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(a, api.RouterConfig{AllowOrigins: cfg.Server.AllowOrigins})

	// No write timeout: synchronous analysis waits on the model call, which
	// is bounded by llm.timeout.
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Starting paper-assistant HTTP server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	if err := a.Close(); err != nil {
		log.Error("Failed to close storage: %v", err)
	}

	log.Info("Server exited")
}
