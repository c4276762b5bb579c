// Package main provides the ralph CLI entrypoint.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/ralph/internal/logging"
	"github.com/joss/ralph/internal/render"
	"github.com/joss/ralph/internal/workflow"
)

var (
	version   = "0.1.0"
	workspace string
	plain     bool
	pretty    = true
	logger    *logging.Logger
	out       *render.Renderer
)

func main() {
	defer logging.Recover("cli")

	rootCmd := &cobra.Command{
		Use:   "ralph",
		Short: "State-driven task orchestration for autonomous dev loops",
		Long: `ralph tracks tasks, workflow phases and healing attempts for an
autonomous development loop driven by an external agent.

The workspace holds all state as plain files: tasks/index.json,
state.json, saga.log and backups/. Point --workspace at a project
root, or run from inside one.

Use 'ralph status' to see where the workflow stands.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if workspace == "" {
				workspace, _ = os.Getwd()
			}
			if abs, err := filepath.Abs(workspace); err == nil {
				workspace = abs
			}

			pretty = !plain && term.IsTerminal(int(os.Stdout.Fd()))
			out = render.New(pretty)
			logger = logging.New("cli").WithWorkspace(workspace)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "plain output, no color or box drawing")

	rootCmd.AddCommand(
		initCmd(),
		statusCmd(),
		taskCmd(),
		phaseCmd(),
		healCmd(),
		circuitCmd(),
		sagaCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newService wires a workflow service for the resolved workspace.
func newService() (*workflow.Service, error) {
	return workflow.NewService(workspace)
}

func versionCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "version",
		Short:  "Print the ralph version",
		Action: "version",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("ralph %s\n", version)
			return nil
		},
	})
}
