package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ralph/internal/saga"
)

func sagaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saga",
		Short: "Inspect the saga audit log",
	}

	cmd.AddCommand(sagaRecoverCmd())
	return cmd
}

func sagaRecoverCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "recover",
		Short:  "Check saga.log for a saga interrupted by a crash",
		Action: "saga_recover",
		Long: `Scans the workspace saga log for a saga that started but never
reached a terminal event. This is a diagnostic: nothing is compensated
automatically, the report just tells the operator what to look at.`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			report, err := saga.Recover(workspace)
			if err != nil {
				return err
			}
			fmt.Print(out.RecoveryReport(report))
			return nil
		},
	})
}
