package cli

import (
	"fmt"
	"text/tabwriter"

	"task-tracking-client/internal/apiclient"
	"task-tracking-client/internal/models"
	"task-tracking-client/internal/validation"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and mutate tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func printTasks(cmd *cobra.Command, tasks []models.Task) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tASSIGNEE\tWINDOW\tPRIORITY\tSTATUS\tPROGRESS")
	for _, t := range tasks {
		assignee := t.AssignedTo.Name
		if assignee == "" {
			assignee = t.AssignedTo.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\t%s\t%d%%\n",
			t.ID, t.Title, assignee, t.StartDate, t.EndDate, t.Priority, t.Status, t.Progress)
	}
	_ = w.Flush()
}

func newTasksListCmd(app *App) *cobra.Command {
	var filters apiclient.TaskFilters
	var status, priority string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks visible to the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Actor(); err != nil {
				return err
			}
			filters.Status = models.TaskStatus(status)
			filters.Priority = models.TaskPriority(priority)
			tasks, err := app.Coordinator().RefreshTasks(cmd.Context(), filters)
			if err != nil {
				return err
			}
			printTasks(cmd, tasks)
			_, pages, total := app.Coordinator().Tasks().PageInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d task(s), %d page(s)\n", total, pages)
			return nil
		},
	}

	cmd.Flags().IntVar(&filters.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filters.Limit, "limit", 10, "page size")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&filters.AssignedTo, "assignee", "", "filter by assignee user id")
	cmd.Flags().StringVar(&filters.Search, "search", "", "search in title/description")

	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var in validation.TaskInput
	var priority string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (admin/manager only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			in.Priority = models.TaskPriority(priority)
			task, err := app.Coordinator().CreateTask(cmd.Context(), actor, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "task description")
	cmd.Flags().StringVar(&in.AssignedTo, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&in.Company, "company", "", "company id")
	cmd.Flags().StringVar(&in.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.EndDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("assignee")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var title, description, assignee, start, end, priority string

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if _, err := fetchIntoCache(cmd, app, args[0]); err != nil {
				return err
			}

			var req apiclient.UpdateTaskRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("assignee") {
				req.AssignedTo = &assignee
			}
			if cmd.Flags().Changed("start") {
				req.StartDate = &start
			}
			if cmd.Flags().Changed("end") {
				req.EndDate = &end
			}
			if cmd.Flags().Changed("priority") {
				p := models.TaskPriority(priority)
				req.Priority = &p
			}

			task, err := app.Coordinator().UpdateTask(cmd.Context(), actor, args[0], req)
			if err != nil {
				return err
			}
			printTasks(cmd, []models.Task{task})
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high")

	return cmd
}

func newTasksStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <pending|in-progress|completed|delayed>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if _, err := fetchIntoCache(cmd, app, args[0]); err != nil {
				return err
			}
			task, err := app.Coordinator().UpdateTaskStatus(cmd.Context(), actor, args[0], models.TaskStatus(args[1]))
			if err != nil {
				return err
			}
			printTasks(cmd, []models.Task{task})
			return nil
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its subtasks (admin/manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			if _, err := fetchIntoCache(cmd, app, args[0]); err != nil {
				return err
			}
			if err := app.Coordinator().DeleteTask(cmd.Context(), actor, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// fetchIntoCache primes the coordinator's store with the target task so a
// single-shot CLI invocation has the same cache view a long-lived client
// would.
func fetchIntoCache(cmd *cobra.Command, app *App, taskID string) (models.Task, error) {
	return app.Coordinator().RefreshTask(cmd.Context(), taskID)
}
