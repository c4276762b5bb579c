package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// CommandFunc defines the function signature for command execution.
type CommandFunc func(cmd *cobra.Command, args []string) error

// CommandConfig holds configuration for creating standardized commands.
type CommandConfig struct {
	Use     string
	Short   string
	Long    string
	Args    cobra.PositionalArgs
	Action  string
	RunFunc CommandFunc
	Example string
	Aliases []string
}

// newCommand creates a Cobra command with structured logging and
// uniform error handling around the run function.
func newCommand(cfg CommandConfig) *cobra.Command {
	return &cobra.Command{
		Use:     cfg.Use,
		Short:   cfg.Short,
		Long:    cfg.Long,
		Args:    cfg.Args,
		Example: cfg.Example,
		Aliases: cfg.Aliases,
		Run: func(cmd *cobra.Command, args []string) {
			start := time.Now()

			if err := cfg.RunFunc(cmd, args); err != nil {
				logger.Error("command_failed", map[string]interface{}{
					"action":      cfg.Action,
					"duration_ms": time.Since(start).Milliseconds(),
				}, err)
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			logger.TimedEvent("command_ok", start, map[string]interface{}{
				"action": cfg.Action,
			})
		},
	}
}
