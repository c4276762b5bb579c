package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func circuitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Inspect and reset the healing circuit breaker",
	}

	cmd.AddCommand(circuitStatusCmd(), circuitResetCmd())
	return cmd
}

func circuitStatusCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "status",
		Short:  "Show the circuit breaker state",
		Action: "circuit_status",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			fmt.Print(out.CircuitSnapshot(svc.Healer().GetCircuitSnapshot()))
			return nil
		},
	})
}

func circuitResetCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "reset",
		Short:  "Replace the circuit breaker with a fresh closed one",
		Action: "circuit_reset",
		Long: `Forces the healing circuit back to CLOSED. Per-task attempt counters
and aggregate statistics are kept; only the breaker itself is replaced.`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			svc.Healer().ResetCircuit()
			fmt.Println("Circuit breaker reset to CLOSED")
			return nil
		},
	})
}
