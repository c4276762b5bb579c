package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/joss/ralph/internal/config"
	"github.com/joss/ralph/internal/healing"
)

func healCmd() *cobra.Command {
	var execCmd string

	cmd := newCommand(CommandConfig{
		Use:    "heal <task-id>",
		Short:  "Attempt to heal a failed task through the circuit breaker",
		Args:   cobra.ExactArgs(1),
		Action: "heal",
		Long: `Runs the heal command for a task under circuit-breaker protection.
The command is executed with the shell in the workspace; exit 0 means
the task is fixed and goes back to pending. After enough consecutive
failures the breaker opens and further attempts are rejected until the
reset timeout elapses.`,
		Example: `  ralph heal auth.login --exec "go test ./internal/auth/..."`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if execCmd == "" {
				return fmt.Errorf("--exec is required: tell ralph how to verify the fix")
			}

			svc, err := newService()
			if err != nil {
				return err
			}

			op := shellHealOp(workspace, execCmd)
			result, err := svc.HealTask(cmd.Context(), args[0], op)
			if err != nil {
				return err
			}

			if result.Success {
				fmt.Printf("Task %s healed (attempt %d)\n", result.TaskID, result.AttemptNumber)
			} else if result.ErrMessage != "" {
				fmt.Printf("Healing failed (attempt %d): %s\n", result.AttemptNumber, result.ErrMessage)
			} else {
				fmt.Printf("Healing did not fix task %s (attempt %d)\n", result.TaskID, result.AttemptNumber)
			}
			fmt.Print(out.HealingStats(svc.Healer().GetHealingStats()))
			return nil
		},
	})

	cmd.Flags().StringVar(&execCmd, "exec", "", "shell command whose exit status decides the heal outcome")
	cmd.AddCommand(healHistoryCmd())
	return cmd
}

// shellHealOp runs a shell command in the workspace; exit 0 is a
// successful heal, a non-zero exit is "ran but did not fix".
func shellHealOp(dir, command string) healing.HealOperation {
	return healing.HealFunc(func(ctx context.Context) (bool, error) {
		c := exec.CommandContext(ctx, "sh", "-c", command)
		c.Dir = dir
		if err := c.Run(); err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

func healHistoryCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "history <task-id>",
		Short:  "Show recorded healing attempts for a task",
		Args:   cobra.ExactArgs(1),
		Action: "heal_history",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			history, err := healing.OpenHistory(config.PathsFor(workspace).HistoryDB)
			if err != nil {
				return err
			}
			defer history.Close()

			attempts, err := history.ListForTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Println("No healing attempts recorded")
				return nil
			}

			for _, a := range attempts {
				outcome := "failed"
				if a.Success {
					outcome = "ok"
				}
				line := fmt.Sprintf("[%s] #%d %s circuit=%s",
					a.CreatedAt.Format("2006-01-02 15:04:05"), a.AttemptNumber, outcome, a.CircuitState)
				if a.Error != "" {
					line += " error=" + a.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	})
}
