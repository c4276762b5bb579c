package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "status",
		Short:  "Show workflow phase and task progress",
		Action: "status",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			ws, err := svc.States().Load()
			if err != nil {
				return err
			}
			next, err := svc.NextTask()
			if err != nil {
				return err
			}
			counts, err := svc.StatusCounts()
			if err != nil {
				return err
			}

			fmt.Print(out.Status(ws, next, counts))
			return nil
		},
	})
}
