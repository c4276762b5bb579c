package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ralph/internal/state"
)

func initCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "init [phase]",
		Short:  "Initialize workflow state for the workspace",
		Args:   cobra.MaximumNArgs(1),
		Action: "init",
		Long: `Creates state.json in the workspace. If state already exists it is
left untouched: the first initialization wins and later ones just
report the current phase.`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			phase := state.PhaseClarify
			if len(args) > 0 {
				phase = state.Phase(args[0])
				if !phase.Valid() || phase == state.PhaseNone {
					return fmt.Errorf("unknown phase %q", args[0])
				}
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			ws, err := svc.Initialize(phase)
			if err != nil {
				return err
			}

			fmt.Printf("Workflow initialized, phase: %s\n", ws.Phase)
			return nil
		},
	})
}
