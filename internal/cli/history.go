package cli

import (
	"os"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/terminal"
	"github.com/spf13/cobra"
)

// NewHistoryCmd prints past results.
func NewHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past results, most recent first, with the average",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg, os.Stderr)

			d, err := buildDeps(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer d.Close()

			entries, err := d.history.List(cmd.Context())
			if err != nil {
				return err
			}
			return terminal.WriteLeaderboard(cmd.OutOrStdout(), app.NewLeaderboard(entries))
		},
	}
}
