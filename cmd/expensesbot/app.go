package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/expensesbot/internal/analytics"
	"github.com/Veraticus/expensesbot/internal/assistant"
	"github.com/Veraticus/expensesbot/internal/bot"
	"github.com/Veraticus/expensesbot/internal/budget"
	"github.com/Veraticus/expensesbot/internal/categorize"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/config"
	"github.com/Veraticus/expensesbot/internal/export"
	"github.com/Veraticus/expensesbot/internal/llm"
	"github.com/Veraticus/expensesbot/internal/quickentry"
	"github.com/Veraticus/expensesbot/internal/receipt"
	"github.com/Veraticus/expensesbot/internal/recurring"
	"github.com/Veraticus/expensesbot/internal/session"
	"github.com/Veraticus/expensesbot/internal/sheets"
	"github.com/Veraticus/expensesbot/internal/storage"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.SQLStorage
	gateway *llm.Gateway
	closers []func() error
}

// openApp loads configuration and opens the migrated store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, common.NewUserError("Could not open the expense database; check DB_DRIVER, DB_PATH and DATABASE_URL",
			fmt.Errorf("failed to open database: %w", err))
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("Could not update the database schema; see the log for details",
			fmt.Errorf("failed to migrate database: %w", err))
	}

	a := &app{cfg: cfg, logger: logger, store: store}
	a.closers = append(a.closers, store.Close)

	a.gateway, err = newGateway(cfg.LLM, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases everything opened by the app, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// newGateway returns a gateway for the configured provider, or an
// unconfigured one when there is no key.
func newGateway(c config.LLMConfig, logger *slog.Logger) (*llm.Gateway, error) {
	quota := llm.NewQuota(c.DailyLimit)
	if !c.Configured() {
		logger.Warn("No LLM API key configured; AI features are disabled")
		return llm.NewGateway(nil, quota, llm.WithLogger(logger)), nil
	}

	client, err := llm.NewClient(llm.Config{Provider: c.Provider, APIKey: c.APIKey, Model: c.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	logger.Info("AI features enabled", "provider", c.Provider, "daily_limit", c.DailyLimit)
	return llm.NewGateway(client, quota, llm.WithLogger(logger)), nil
}

// exporter builds the exporter. Sheets export is attached only when its
// credentials are configured.
func (a *app) exporter(ctx context.Context) *export.Exporter {
	var opts []export.Option
	sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		a.logger.Debug("sheets export disabled", "reason", err)
		return export.New(a.store, a.cfg.DefaultCurrency, a.logger)
	}
	writer, err := sheets.NewWriter(ctx, *sheetsCfg, a.logger)
	if err != nil {
		a.logger.Warn("Sheets export disabled", "error", err)
	} else {
		opts = append(opts, export.WithSheets(writer))
	}
	return export.New(a.store, a.cfg.DefaultCurrency, a.logger, opts...)
}

// routerParts is what a transport needs besides the router itself.
type routerParts struct {
	router        *bot.Router
	conversations *session.Store
	files         *receipt.Files
	recurring     *recurring.Service
}

// newRouter wires the bot. Conversation state survives restarts when
// persist is set and STATE_PATH can be opened.
func (a *app) newRouter(ctx context.Context, persist bool) (*routerParts, error) {
	storeOpts := []session.StoreOption{session.WithStoreLogger(a.logger)}
	if persist {
		snap, err := session.OpenBoltSnapshotter(a.cfg.StatePath)
		if err != nil {
			a.logger.Warn("Conversation state will not survive restarts", "path", a.cfg.StatePath, "error", err)
		} else {
			a.closers = append(a.closers, snap.Close)
			storeOpts = append(storeOpts, session.WithSnapshotter(snap))
		}
	}
	conversations := session.NewStore(storeOpts...)

	categorizer := categorize.New(a.gateway,
		categorize.WithLearner(categorize.NewLearner(a.store, a.logger)),
		categorize.WithLogger(a.logger),
	)
	a.closers = append(a.closers, func() error {
		categorizer.Close()
		return nil
	})

	files := receipt.NewFiles(a.cfg.ReceiptDir, a.logger)
	recurringSvc := recurring.New(a.store, a.logger)
	deps := bot.Dependencies{
		Conversations: conversations,
		Entries:       quickentry.NewParser(a.gateway, a.cfg.DefaultCurrency, a.logger),
		Categorizer:   categorizer,
		Assistant: assistant.New(a.gateway,
			assistant.NewContextBuilder(a.store, a.cfg.DefaultCurrency),
			session.NewHistory(),
			a.logger),
		Budgets:     budget.New(a.store, a.logger),
		Recurring:   recurringSvc,
		Analytics:   analytics.New(a.store, a.logger),
		Exporter:    a.exporter(ctx),
		Interpreter: receipt.NewInterpreter(a.gateway, a.logger),
		Files:       files,
		Store:       a.store,
		Logger:      a.logger,
	}

	ocr, err := receipt.NewVisionOCR(ctx, a.cfg.VisionAPIKey)
	switch {
	case err == nil:
		deps.OCR = ocr
	case errors.Is(err, common.ErrNotConfigured):
		a.logger.Warn("No Vision API key configured; receipt scanning is disabled")
	default:
		return nil, fmt.Errorf("failed to create OCR client: %w", err)
	}

	router := bot.NewWithConfig(deps, bot.Config{
		Now:              time.Now,
		DefaultCurrency:  a.cfg.DefaultCurrency,
		DefaultTimezone:  a.cfg.DefaultTimezone,
		ReceiptRetention: a.cfg.ReceiptRetention,
	})
	return &routerParts{router: router, conversations: conversations, files: files, recurring: recurringSvc}, nil
}
