package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/expensesbot/internal/tui"
	"github.com/Veraticus/expensesbot/internal/tui/themes"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal",
		Long: `Talk to the bot without Telegram.

Everything the Telegram bot understands works here. Menu buttons are
selected with Tab and pressed with Enter on an empty line. Send a receipt
with "/photo path/to/receipt.jpg". Exported files are written to --output.`,
		RunE: runChat,
	}

	cmd.Flags().String("user", "local", "user ID the conversation belongs to")
	cmd.Flags().String("theme", "default", "color theme (default, catppuccin-mocha)")
	cmd.Flags().StringP("output", "o", ".", "directory exported files are saved to")

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	theme, _ := cmd.Flags().GetString("theme")
	output, _ := cmd.Flags().GetString("output")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	parts, err := a.newRouter(ctx, false)
	if err != nil {
		return err
	}

	return tui.Run(ctx, parts.router,
		tui.WithUserID(userID),
		tui.WithTheme(themes.GetTheme(theme)),
		tui.WithOutputDir(output),
	)
}
