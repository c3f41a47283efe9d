package cli

import (
	"fmt"
	"text/tabwriter"

	"task-tracking-client/internal/models"
	"task-tracking-client/internal/validation"

	"github.com/spf13/cobra"
)

func newSubtasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtasks",
		Short: "Manage a task's daily work-log entries",
	}
	cmd.AddCommand(newSubtasksListCmd(app))
	cmd.AddCommand(newSubtasksAddCmd(app))
	cmd.AddCommand(newSubtasksUpdateCmd(app))
	cmd.AddCommand(newSubtasksDeleteCmd(app))
	return cmd
}

func printTaskWithSubtasks(cmd *cobra.Command, task models.Task) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  [%s, %d%%]\n", task.ID, task.Title, task.Status, task.Progress)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tDATE\tDESCRIPTION\tSTATUS\tHOURS")
	for _, st := range task.SubTasks {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%.1f\n", st.ID, st.Date, st.Description, st.Status, st.HoursSpent)
	}
	_ = w.Flush()
}

func subtaskInputFlags(cmd *cobra.Command, in *validation.SubTaskInput, status *string) {
	cmd.Flags().StringVar(&in.Date, "date", "", "entry date (YYYY-MM-DD, within the task window)")
	cmd.Flags().StringVar(&in.Description, "description", "", "work description")
	cmd.Flags().StringVar(status, "status", "", "pending|in-progress|completed|delayed")
	cmd.Flags().StringVar(&in.HoursSpent, "hours", "", "hours spent")
	cmd.Flags().StringVar(&in.Remarks, "remarks", "", "optional remarks")
}

func newSubtasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Actor(); err != nil {
				return err
			}
			task, err := fetchIntoCache(cmd, app, args[0])
			if err != nil {
				return err
			}
			printTaskWithSubtasks(cmd, task)
			return nil
		},
	}
}

func newSubtasksAddCmd(app *App) *cobra.Command {
	var in validation.SubTaskInput
	var status string

	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Add a daily entry to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if _, err := fetchIntoCache(cmd, app, args[0]); err != nil {
				return err
			}
			in.Status = models.TaskStatus(status)
			task, err := app.Coordinator().AddSubTask(cmd.Context(), actor, args[0], in)
			if err != nil {
				return err
			}
			printTaskWithSubtasks(cmd, task)
			return nil
		},
	}

	subtaskInputFlags(cmd, &in, &status)
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func newSubtasksUpdateCmd(app *App) *cobra.Command {
	var in validation.SubTaskInput
	var status string

	cmd := &cobra.Command{
		Use:   "update <task-id> <subtask-id>",
		Short: "Update a daily entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			cached, err := fetchIntoCache(cmd, app, args[0])
			if err != nil {
				return err
			}
			// Unchanged flags keep their stored values; the server
			// expects the full entry on update.
			if prev := cached.FindSubTask(args[1]); prev != nil {
				if !cmd.Flags().Changed("date") {
					in.Date = prev.Date
				}
				if !cmd.Flags().Changed("description") {
					in.Description = prev.Description
				}
				if !cmd.Flags().Changed("status") {
					status = string(prev.Status)
				}
				if !cmd.Flags().Changed("hours") {
					in.HoursSpent = fmt.Sprintf("%g", prev.HoursSpent)
				}
				if !cmd.Flags().Changed("remarks") {
					in.Remarks = prev.Remarks
				}
			}
			in.Status = models.TaskStatus(status)
			task, err := app.Coordinator().UpdateSubTask(cmd.Context(), actor, args[0], args[1], in)
			if err != nil {
				return err
			}
			printTaskWithSubtasks(cmd, task)
			return nil
		},
	}

	subtaskInputFlags(cmd, &in, &status)

	return cmd
}

func newSubtasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id> <subtask-id>",
		Short: "Delete a daily entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if _, err := fetchIntoCache(cmd, app, args[0]); err != nil {
				return err
			}
			task, err := app.Coordinator().DeleteSubTask(cmd.Context(), actor, args[0], args[1])
			if err != nil {
				return err
			}
			printTaskWithSubtasks(cmd, task)
			return nil
		},
	}
}
