package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/expensesbot/internal/cli"
	"github.com/Veraticus/expensesbot/internal/config"
	"github.com/Veraticus/expensesbot/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on start, so this is only needed to prepare a
database ahead of time or to inspect it with --status.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show applied and pending migrations without applying them")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	slog.Info("Opening database", "driver", cfg.Database.Driver)
	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if !status {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		cmd.Println(cli.FormatSuccess("Database migrations completed"))
	}

	migrations, err := store.Migrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	cmd.Println(cli.FormatTitle(cli.FolderIcon + " Migrations"))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, cli.TableHeaderStyle.Render("VERSION")+"\t"+
		cli.TableHeaderStyle.Render("APPLIED")+"\t"+
		cli.TableHeaderStyle.Render("DESCRIPTION"))
	pending := 0
	for _, m := range migrations {
		applied := cli.WarningStyle.Render("pending")
		if m.AppliedAt != nil {
			applied = m.AppliedAt.Local().Format("2006-01-02 15:04")
		} else {
			pending++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, applied, m.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if pending > 0 {
		cmd.Println(cli.FormatWarning(fmt.Sprintf("%d migrations pending; run without --status to apply", pending)))
	}
	return nil
}
