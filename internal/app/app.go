// Package app assembles the paper pipeline, the chat service and their
// storage from configuration. Both server binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Epistemic-Technology/paper-assistant/internal/chat"
	"github.com/Epistemic-Technology/paper-assistant/internal/config"
	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/llm"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/operations"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
)

// App holds the long-lived components of a running server.
type App struct {
	Config       *config.Config
	Log          logger.Logger
	Store        storage.Store
	Fetcher      *documents.Fetcher
	Machine      *processing.Machine
	Orchestrator *operations.Orchestrator
	Runner       *operations.Runner
	Chat         *operations.ChatService

	closeChatState func() error
}

// Option configures New
type Option func(*options)

type options struct {
	completer llm.Completer
}

// WithCompleter replaces the configured completion client.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// New opens storage, restores saved papers and chat sessions, and wires the
// pipeline. Close must be called when done.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	completer := o.completer
	if completer == nil {
		limiter := llm.NewLimiter(cfg.LLM.TokensPerSecond, cfg.LLM.BurstTokens)
		client, err := llm.NewClient(llm.ClientConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			Timeout:   cfg.LLM.Timeout,
			SiteURL:   cfg.LLM.SiteURL,
			SiteTitle: cfg.LLM.SiteTitle,
		}, limiter, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion client: %w", err)
		}
		completer = client
	}

	log.Info("Initializing SQLite database at: %s", cfg.Storage.DBPath)
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}

	a := &App{Config: cfg, Log: log, Store: store}
	if err := a.init(ctx, completer); err != nil {
		if a.closeChatState != nil {
			a.closeChatState()
		}
		store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, completer llm.Completer) error {
	cfg, log := a.Config, a.Log

	chatState, err := a.openChatState()
	if err != nil {
		return err
	}
	chatStore, err := chat.Open(ctx, chatState, cfg.Chat.StorageName, log)
	if err != nil {
		return fmt.Errorf("failed to open chat store: %w", err)
	}

	papers := processing.NewPapers()
	saved, err := a.Store.ListPapers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved papers: %w", err)
	}
	for _, p := range saved {
		papers.Upsert(p)
	}
	log.Info("Restored %d saved papers", len(saved))

	a.Machine = processing.NewMachine(papers, log)
	a.Fetcher = documents.NewFetcher(documents.FetcherConfig{
		MaxBytes:        cfg.Upload.MaxBytes,
		ZoteroAPIKey:    cfg.Zotero.APIKey,
		ZoteroLibraryID: cfg.Zotero.LibraryID,
	})
	a.Orchestrator = operations.NewOrchestrator(completer, operations.OrchestratorConfig{
		MaxBytes:    cfg.Upload.MaxBytes,
		Temperature: cfg.LLM.AnalysisTemperature,
	}, log)
	a.Chat = operations.NewChatService(chatStore, papers, completer, operations.ChatConfig{
		Temperature:  cfg.LLM.ChatTemperature,
		ContextLimit: cfg.Chat.ContextLimit,
	}, log)
	if n := a.Chat.DropOrphanSessions(ctx); n > 0 {
		log.Info("Cleared %d chat sessions without a saved paper", n)
	}
	a.Runner = operations.NewRunner(operations.RunnerDeps{
		Orchestrator: a.Orchestrator,
		Machine:      a.Machine,
		Simulator: processing.NewSimulator(a.Machine, processing.SimulatorConfig{
			Interval: cfg.Processing.TickInterval,
			MaxStep:  cfg.Processing.TickMaxStep,
			Ceiling:  cfg.Processing.TickCeiling,
		}, log),
		Repository: a.Store,
		Chat:       a.Chat,
	}, log)
	return nil
}

func (a *App) openChatState() (storage.StateStore, error) {
	switch a.Config.Chat.Backend {
	case "redis":
		a.Log.Info("Using Redis at %s for chat state", a.Config.Redis.Addr)
		rs, err := storage.NewRedisStateStore(storage.RedisConfig{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis state store: %w", err)
		}
		a.closeChatState = rs.Close
		return rs, nil
	case "memory":
		a.Log.Warn("Chat state is kept in memory only")
		return storage.NewMemoryStateStore(), nil
	default:
		return a.Store, nil
	}
}

// Close waits for in-flight pipelines and closes storage.
func (a *App) Close() error {
	a.Runner.Wait()
	var errs []error
	if a.closeChatState != nil {
		errs = append(errs, a.closeChatState())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
