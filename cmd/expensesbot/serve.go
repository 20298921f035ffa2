package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/health"
	"github.com/Veraticus/expensesbot/internal/telegram"
)

const sweepInterval = time.Minute

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Long: `Run the bot on Telegram with long polling.

Besides answering messages, serve records due recurring expenses, deletes
receipt photos past their retention and exposes /health and /quota on
HEALTH_PORT (0 disables the health server).`,
		RunE: runServe,
	}

	cmd.Flags().Duration("charge-interval", time.Hour, "how often due recurring expenses are recorded")
	cmd.Flags().Duration("cleanup-interval", 24*time.Hour, "how often expired receipt photos are deleted")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	chargeEvery, _ := cmd.Flags().GetDuration("charge-interval")
	cleanupEvery, _ := cmd.Flags().GetDuration("cleanup-interval")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.TelegramToken == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required to serve", common.ErrMissingConfig)
	}

	parts, err := a.newRouter(ctx, true)
	if err != nil {
		return err
	}
	adapter, err := telegram.New(a.cfg.TelegramToken, parts.router, a.logger)
	if err != nil {
		return err
	}
	if err := adapter.RegisterCommands(); err != nil {
		a.logger.Warn("Failed to register bot commands", "error", err)
	}

	var wg sync.WaitGroup
	background := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	background(func() { parts.conversations.RunSweeper(ctx, sweepInterval) })
	background(func() {
		every(ctx, chargeEvery, func() {
			if _, err := parts.recurring.Charge(ctx, time.Now(), a.store); err != nil && ctx.Err() == nil {
				a.logger.Error("Failed to record recurring expenses", "error", err)
			}
		})
	})
	background(func() {
		every(ctx, cleanupEvery, func() {
			n, err := parts.files.Purge(ctx, a.store, a.cfg.ReceiptRetention)
			if err != nil && ctx.Err() == nil {
				a.logger.Error("Failed to purge receipt photos", "error", err)
				return
			}
			if n > 0 {
				a.logger.Info("Deleted expired receipt photos", "count", n)
			}
		})
	})

	if a.cfg.HealthPort > 0 {
		srv := health.NewServer(fmt.Sprintf(":%d", a.cfg.HealthPort), a.gateway, a.logger)
		background(func() {
			if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Health server stopped", "error", err)
			}
		})
	}

	a.logger.Info("Bot is running", "version", version)
	err = adapter.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// every runs fn now and then on every tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
