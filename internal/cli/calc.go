package cli

import (
	"fmt"
	"strings"

	"cbt-exam-runner/internal/calc"
	"github.com/spf13/cobra"
)

// NewCalcCmd evaluates an arithmetic expression with the exam calculator.
func NewCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc <expression>",
		Short: "Evaluate + - * / and parentheses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := calc.Eval(strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), calc.Format(v))
			return err
		},
	}
}
