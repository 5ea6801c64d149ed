package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"NewsRelay/internal/app"
	"NewsRelay/internal/publisher"
)

func (c *cli) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Establish or restore the platform session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if _, err := a.Publisher().Connect(ctx); err != nil {
					return fmt.Errorf("connect: %w", err)
				}
				status, err := a.Publisher().AuthStatus(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, status, func(w io.Writer) { printAuth(w, status) })
			})
		},
	}
}

func (c *cli) authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-status",
		Short: "Show the persisted session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				status, err := a.Publisher().AuthStatus(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, status, func(w io.Writer) { printAuth(w, status) })
			})
		},
	}
}

func printAuth(w io.Writer, s publisher.AuthStatus) {
	fmt.Fprintf(w, "account: %s\n", s.Account)
	fmt.Fprintf(w, "connected: %t\n", s.Connected)
	if !s.HasSession {
		fmt.Fprintln(w, "session: none")
		return
	}
	state := "valid"
	if s.Expired {
		state = "expired"
	}
	fmt.Fprintf(w, "session: %s (created %s)\n", state, s.CreatedAt.Format(time.RFC3339))
	if s.Age != "" {
		fmt.Fprintf(w, "last validated: %s ago\n", s.Age)
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Publisher().Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "session removed")
				return nil
			})
		},
	}
}

func (c *cli) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the connected account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				info, err := a.Publisher().AccountInfo(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, info, func(w io.Writer) {
					fmt.Fprintf(w, "%s (id %s) followers=%d\n", info.Username, info.UserID, info.Followers)
				})
			})
		},
	}
}
