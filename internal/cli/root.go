// Package cli wires the task-tracking client core into a scriptable
// command-line surface. Commands authenticate with a server-issued token,
// derive the acting user from its claims, and hand all mutations to the
// coordinator.
package cli

import (
	"errors"
	"os"

	"task-tracking-client/internal/apiclient"
	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/coordinator"

	"github.com/spf13/cobra"
)

// App holds the per-invocation configuration shared by all commands.
type App struct {
	ServerURL string
	Token     string

	client *apiclient.Client
	coord  *coordinator.Coordinator
}

// Client returns the API client, building it on first use.
func (a *App) Client() *apiclient.Client {
	if a.client == nil {
		a.client = apiclient.New(a.ServerURL)
		if a.Token != "" {
			a.client.SetToken(a.Token)
		}
	}
	return a.client
}

// Coordinator returns the mutation coordinator, building it on first use.
func (a *App) Coordinator() *coordinator.Coordinator {
	if a.coord == nil {
		a.coord = coordinator.New(a.Client())
	}
	return a.coord
}

// Actor derives the acting user from the configured token.
func (a *App) Actor() (auth.Actor, error) {
	if a.Token == "" {
		return auth.Actor{}, errors.New("no token configured; run `trackctl login` and export TRACKCTL_TOKEN")
	}
	return auth.ActorFromToken(a.Token)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewRootCmd builds the trackctl command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "trackctl",
		Short:        "Task tracking client",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", getEnv("TRACKCTL_SERVER", "http://localhost:8008/api"), "API base URL")
	cmd.PersistentFlags().StringVar(&app.Token, "token", os.Getenv("TRACKCTL_TOKEN"), "bearer token (defaults to TRACKCTL_TOKEN)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newSubtasksCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newWatchCmd(app))

	return cmd
}
