package cli

import (
	"os"
	"os/signal"
	"syscall"

	"cbt-exam-runner/internal/terminal"
	"github.com/spf13/cobra"
)

// NewTakeCmd runs one exam in the terminal.
func NewTakeCmd(configPath *string) *cobra.Command {
	var subjects []string
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take an exam in this terminal",
		Example: `  cbt take
  cbt take --subject Mathematics --subject Physics --subject Biology`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			// Anything below warn would scribble over the exam screen.
			if cfg.Log.Level == "" || cfg.Log.Level == "info" || cfg.Log.Level == "debug" || cfg.Log.Level == "trace" {
				cfg.Log.Level = "warn"
			}
			log := newLogger(cfg, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer d.Close()

			service, err := newExamService(cfg, d, log)
			if err != nil {
				return err
			}
			return terminal.NewRunner(service, os.Stdin, os.Stdout, log).Run(ctx, subjects)
		},
	}
	cmd.Flags().StringArrayVar(&subjects, "subject", nil, "subject to take besides the compulsory one (repeatable)")
	return cmd
}
