package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ralph/internal/state"
)

func phaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Inspect and advance the workflow phase",
	}

	cmd.AddCommand(phaseToCmd())
	return cmd
}

func phaseToCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "to <phase>",
		Short:  "Transition the workflow to the given phase",
		Args:   cobra.ExactArgs(1),
		Action: "phase_to",
		Long: `Validates the transition against the phase graph, runs the phase's
guarding saga (breakdown setup, implement backup, deliver branch and
commit) and commits the new phase only if the saga succeeds. A failed
saga is rolled back and the phase stays put.`,
		Example: `  ralph phase to breakdown
  ralph phase to implement`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			next := state.Phase(args[0])
			if !next.Valid() || next == state.PhaseNone {
				return fmt.Errorf("unknown phase %q", args[0])
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			result, ws, err := svc.EnterPhase(cmd.Context(), next)
			if len(result.CompletedSteps) > 0 || !result.Success {
				fmt.Print(out.SagaResult(result))
			}
			if err != nil {
				return err
			}

			fmt.Printf("Phase: %s\n", ws.Phase)
			return nil
		},
	})
}
