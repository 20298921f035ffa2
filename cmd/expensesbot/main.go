package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/expensesbot/internal/cli"
	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/config"
)

var (
	cfgFile string
	envFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "expensesbot",
		Short: "💰 Personal expense tracking chatbot",
		Long: `expensesbot: a chat assistant for personal spending.

Type "coffee 3.50" to log an expense, send a receipt photo, set monthly
budgets and recurring bills, and ask questions about where the money went.
Run it on Telegram with "serve" or locally with "chat".`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/expensesbot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importOFXCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := cli.NewInterruptHandler(os.Stderr).HandleInterrupts(context.Background(), "Shutting down gracefully...")

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		msg := common.UserMessage(err, err.Error())
		if msg != err.Error() {
			slog.Error("Command failed", "error", err)
		}
		fmt.Fprintln(os.Stderr, cli.FormatError(msg))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	var dotenv []string
	if envFile != "" {
		dotenv = append(dotenv, envFile)
	}
	if err := config.LoadDotEnv(dotenv...); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(filepath.Join(home, ".config", "expensesbot"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := config.Bind(viper.GetViper()); err != nil {
		return err
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("expensesbot", version)
		},
	}
}
