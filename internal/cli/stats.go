package cli

import (
	"encoding/json"
	"fmt"

	"task-tracking-client/internal/realtime"

	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard task counts for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.Actor()
			if err != nil {
				return err
			}
			raw, err := app.Coordinator().DashboardStats(cmd.Context(), actor)
			if err != nil {
				return err
			}
			// The shape varies by role; pretty-print whatever came back.
			var pretty map[string]any
			if err := json.Unmarshal(raw, &pretty); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream task change events and refresh the local view",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Actor(); err != nil {
				return err
			}

			listener := realtime.NewListener(app.ServerURL, app.Token, func(evt realtime.Event) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", evt.Type, evt.TaskID)
				app.Coordinator().InvalidateStats()
				if evt.Type == "task_deleted" || evt.TaskID == "" {
					return
				}
				if _, err := app.Coordinator().RefreshTask(cmd.Context(), evt.TaskID); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh %s: %v\n", evt.TaskID, err)
				}
			})
			listener.Run(cmd.Context())
			return nil
		},
	}
}
