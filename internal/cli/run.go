package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"NewsRelay/internal/app"
	"NewsRelay/internal/usecase"
)

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the background scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx)
			})
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show background tasks and the next scheduled posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				status, err := a.Scheduler().Status(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, status, func(w io.Writer) { printStatus(w, status) })
			})
		},
	}
}

func printStatus(w io.Writer, s usecase.SchedulerStatus) {
	for _, t := range s.Tasks {
		fmt.Fprintf(w, "%-12s every %s", t.Name, t.Every)
		if !t.LastRun.IsZero() {
			fmt.Fprintf(w, " last %s", t.LastRun.Format(time.RFC3339))
		}
		if t.LastError != "" {
			fmt.Fprintf(w, " error=%s", t.LastError)
		}
		fmt.Fprintln(w)
	}
	if len(s.Upcoming) == 0 {
		fmt.Fprintln(w, "no posts scheduled")
		return
	}
	for _, p := range s.Upcoming {
		fmt.Fprintf(w, "post %d at %s\n", p.ID, p.ScheduledAt.Format(time.RFC3339))
	}
}

func (c *cli) triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Run one background task now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{usecase.TaskIngest, usecase.TaskPublish, usecase.TaskEngagement, usecase.TaskCleanup, usecase.TaskAnalytics},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Scheduler().Trigger(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s done\n", args[0])
				return nil
			})
		},
	}
}
