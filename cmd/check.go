package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Runs a single monitoring pass",
		Long: `Checks every product in the catalog once, sends notifications for
state changes, appends price history, and saves the state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			pass, err := appInstance.Pass()
			if err != nil {
				return fmt.Errorf("build pass: %w", err)
			}
			summary, err := pass.Run(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("check finished",
				zap.String("pass_id", summary.PassID),
				zap.Int("changed", summary.Changed),
			)
			return nil
		},
	}
}
