package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/ralph/internal/task"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Query and mutate the task index",
	}

	cmd.AddCommand(
		taskListCmd(),
		taskNextCmd(),
		taskShowCmd(),
		taskAddCmd(),
		taskStartCmd(),
		taskCompleteCmd(),
		taskFailCmd(),
	)
	return cmd
}

func taskListCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "list",
		Short:   "List all tasks in the index",
		Aliases: []string{"ls"},
		Action:  "task_list",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			idx, err := svc.Tasks().ReadIndex()
			if err != nil {
				return err
			}
			ids, err := svc.Tasks().List()
			if err != nil {
				return err
			}

			fmt.Print(out.TaskList(idx, ids))
			return nil
		},
	})
}

func taskNextCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "next",
		Short:  "Print the next eligible task id",
		Action: "task_next",
		Long: `Prints the id of the task the driver should work on next: an
interrupted in_progress task first, otherwise the pending task with
the lowest priority value. Prints nothing when no work remains.`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			next, err := svc.NextTask()
			if err != nil {
				return err
			}
			if next == "" {
				fmt.Println("No tasks remaining")
				return nil
			}
			fmt.Println(next)
			return nil
		},
	})
}

func taskShowCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "show <task-id>",
		Short:  "Show one task's record and detail-document path",
		Args:   cobra.ExactArgs(1),
		Action: "task_show",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			t, err := svc.Tasks().GetTask(args[0])
			if err != nil {
				return err
			}
			path, err := svc.Tasks().GetTaskFilePath(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:          %s\n", t.ID)
			fmt.Printf("Module:      %s\n", t.Module)
			fmt.Printf("Status:      %s\n", t.Status)
			fmt.Printf("Priority:    %d\n", t.Priority)
			fmt.Printf("Description: %s\n", t.Description)
			if len(t.Dependencies) > 0 {
				fmt.Printf("Depends on:  %v\n", t.Dependencies)
			}
			if t.EstimatedMinutes > 0 {
				fmt.Printf("Estimate:    %dm\n", t.EstimatedMinutes)
			}
			fmt.Printf("Detail file: %s\n", path)
			return nil
		},
	})
}

func taskAddCmd() *cobra.Command {
	var priority, estimate int
	var deps []string

	cmd := newCommand(CommandConfig{
		Use:    "add <task-id> <description>",
		Short:  "Insert or overwrite a task in the index",
		Args:   cobra.ExactArgs(2),
		Action: "task_add",
		Example: `  ralph task add auth.login "Implement login endpoint" --priority 1
  ralph task add auth.session "Session storage" --deps auth.login`,
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			t := task.New(args[0], args[1], priority)
			t.Dependencies = deps
			t.EstimatedMinutes = estimate

			if err := svc.Tasks().UpsertTask(t, ""); err != nil {
				return err
			}
			fmt.Printf("Task %s added\n", t.ID)
			return nil
		},
	})

	cmd.Flags().IntVarP(&priority, "priority", "p", 10, "priority, lower runs first")
	cmd.Flags().IntVar(&estimate, "estimate", 0, "estimated minutes")
	cmd.Flags().StringSliceVar(&deps, "deps", nil, "task ids this task depends on")
	return cmd
}

func taskStartCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "start <task-id>",
		Short:  "Move a pending task to in_progress",
		Args:   cobra.ExactArgs(1),
		Action: "task_start",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			t, err := svc.StartTask(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Task %s started\n", t.ID)
			return nil
		},
	})
}

func taskCompleteCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "complete <task-id>",
		Short:   "Move an in_progress task to completed",
		Args:    cobra.ExactArgs(1),
		Aliases: []string{"done"},
		Action:  "task_complete",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			t, err := svc.CompleteTask(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Task %s completed\n", t.ID)
			return nil
		},
	})
}

func taskFailCmd() *cobra.Command {
	var reason string

	cmd := newCommand(CommandConfig{
		Use:    "fail <task-id>",
		Short:  "Move an in_progress task to failed",
		Args:   cobra.ExactArgs(1),
		Action: "task_fail",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			t, err := svc.FailTask(args[0], reason)
			if err != nil {
				return err
			}
			fmt.Printf("Task %s failed\n", t.ID)
			return nil
		},
	})

	cmd.Flags().StringVar(&reason, "reason", "", "failure reason recorded on the workflow state")
	return cmd
}
