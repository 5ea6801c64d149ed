// Package cli exposes the pipeline operations as cobra commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"NewsRelay/internal/app"
	"NewsRelay/internal/config"
	"NewsRelay/internal/logging"
)

type loader func(path string) (config.Config, error)

// cli holds the state shared by every subcommand.
type cli struct {
	load       loader
	logOut     io.Writer
	configPath string
	jsonOutput bool
	verbose    bool
}

// NewRootCommand builds the newsrelay command tree.
func NewRootCommand() *cobra.Command {
	return newRoot(config.Load, os.Stderr)
}

func newRoot(load loader, logOut io.Writer) *cobra.Command {
	c := &cli{load: load, logOut: logOut}

	root := &cobra.Command{
		Use:   "newsrelay",
		Short: "Collect news, turn it into posts and publish them on schedule",
		Long: `newsrelay ingests articles from configured news sites, analyses them,
drafts social posts and publishes them into free time slots.

Example usage:
  newsrelay ingest --source globalnews   # Collect one source
  newsrelay generate --article 42        # Draft a post for an article
  newsrelay schedule 7                   # Put post 7 into the next free slot
  newsrelay publish-due                  # Publish everything that is due
  newsrelay run                          # Start the background scheduler`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $NEWSRELAY_CONFIG)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.ingestCmd(),
		c.analyzeCmd(),
		c.generateCmd(),
		c.scheduleCmd(),
		c.publishCmd(),
		c.publishDueCmd(),
		c.engagementCmd(),
		c.analyticsCmd(),
		c.cleanupCmd(),
		c.connectCmd(),
		c.authStatusCmd(),
		c.logoutCmd(),
		c.accountCmd(),
		c.runCmd(),
		c.statusCmd(),
		c.triggerCmd(),
	)
	return root
}

// withApp loads the configuration, builds the application and runs fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := c.load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(c.logOut, level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", slog.Any("error", cerr))
		}
	}()
	return fn(ctx, application)
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (c *cli) print(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if c.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}
