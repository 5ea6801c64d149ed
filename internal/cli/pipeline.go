package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"NewsRelay/internal/app"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/usecase"
)

func (c *cli) ingestCmd() *cobra.Command {
	var (
		sources []string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Collect articles from configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().Ingest(ctx, usecase.IngestRequest{Sources: sources, Limit: limit})
				if err != nil {
					return err
				}
				if perr := c.print(cmd, report, func(w io.Writer) { printIngest(w, report) }); perr != nil {
					return perr
				}
				if len(report.Sources) > 0 && report.FailedSource == len(report.Sources) {
					return errors.New("every source failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "source names to collect (default: all enabled)")
	cmd.Flags().IntVar(&limit, "limit", 0, "articles per source (default from config)")
	return cmd
}

func printIngest(w io.Writer, r usecase.IngestReport) {
	for _, s := range r.Sources {
		line := fmt.Sprintf("%-16s found=%d stored=%d duplicates=%d insufficient=%d failed=%d",
			s.Source, s.Found, s.Stored, s.Duplicates, s.Insufficient, s.Failed)
		if s.Error != "" {
			line += " error=" + s.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "total: found=%d stored=%d duplicates=%d failed_sources=%d\n",
		r.Found, r.Stored, r.Duplicates, r.FailedSource)
}

func (c *cli) analyzeCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse ingested articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().Analyze(ctx, limit)
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) {
					fmt.Fprintf(w, "candidates=%d processed=%d skipped=%d retrying=%d failed=%d\n",
						report.Candidates, report.Processed, report.Skipped, report.Retrying, report.Failed)
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "articles to analyse (default from config)")
	return cmd
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		articleID int64
		template  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft posts for eligible articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().Generate(ctx, usecase.GenerateRequest{
					ArticleID: articleID,
					Template:  template,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) {
					for _, p := range report.Posts {
						printPost(w, p)
					}
					fmt.Fprintf(w, "considered=%d drafted=%d ineligible=%d failed=%d\n",
						report.Considered, len(report.Posts), report.Ineligible, report.Failed)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&articleID, "article", 0, "article id (skips eligibility rules)")
	cmd.Flags().StringVar(&template, "template", "", "breaking, analysis or feature (default: chosen from content)")
	cmd.Flags().IntVar(&limit, "limit", 0, "articles to consider")
	return cmd
}

func (c *cli) scheduleCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "schedule <post-id>",
		Short: "Schedule a draft post at a time or in the next free slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var when *time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				when = &t
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				post, err := a.Pipeline().Schedule(ctx, id, when)
				if err != nil {
					return err
				}
				return c.print(cmd, post, func(w io.Writer) { printPost(w, post) })
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time (default: next free slot)")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "publish [post-id]",
		Short: "Publish a post now (default: the latest draft)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				parsed, err := parseID(args[0])
				if err != nil {
					return err
				}
				id = parsed
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result := a.Pipeline().Publish(ctx, id, caption)
				if err := c.print(cmd, result, func(w io.Writer) { printResult(w, result) }); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("publish failed: %s", result.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "replace the stored caption")
	return cmd
}

func (c *cli) publishDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Publish every scheduled post whose time has come",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().PublishDue(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) {
					for _, r := range report.Results {
						printResult(w, r)
					}
					fmt.Fprintf(w, "due=%d published=%d rescheduled=%d failed=%d\n",
						report.Due, report.Published, report.Rescheduled, report.Failed)
				})
			})
		},
	}
}

func (c *cli) engagementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engagement",
		Short: "Refresh likes and comments of recent posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().RefreshEngagement(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) {
					fmt.Fprintf(w, "checked=%d updated=%d failed=%d\n", report.Checked, report.Updated, report.Failed)
				})
			})
		},
	}
}

func (c *cli) analyticsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show per-day activity and the posting queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().Analytics(ctx, days)
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) { printAnalytics(w, report) })
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "days to report")
	return cmd
}

func printAnalytics(w io.Writer, r usecase.AnalyticsReport) {
	for _, d := range r.Days {
		fmt.Fprintf(w, "%s articles=%d published=%d\n", d.Day.Format(time.DateOnly), d.ArticlesIngested, d.PostsPublished)
	}
	fmt.Fprintf(w, "total: articles=%d published=%d avg_articles=%.1f avg_posts=%.1f scheduled=%d\n",
		r.TotalArticles, r.TotalPublished, r.AvgArticlesPerDay, r.AvgPostsPerDay, r.Scheduled)
	if r.NextPostAt != nil {
		fmt.Fprintf(w, "next post: %s\n", r.NextPostAt.Format(time.RFC3339))
	}
}

func (c *cli) cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete data older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Pipeline().Cleanup(ctx, days)
				if err != nil {
					return err
				}
				return c.print(cmd, report, func(w io.Writer) {
					fmt.Fprintf(w, "articles=%d posts=%d jobs=%d images=%d\n",
						report.Articles, report.Posts, report.Jobs, report.Images)
				})
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from config)")
	return cmd
}

func printPost(w io.Writer, p domain.Post) {
	fmt.Fprintf(w, "post %d article=%d status=%s template=%s", p.ID, p.ArticleID, p.Status, p.Template)
	if !p.ScheduledAt.IsZero() {
		fmt.Fprintf(w, " scheduled=%s", p.ScheduledAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	if p.Caption != "" {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(p.Caption, "\n", "\n  "))
	}
}

func printResult(w io.Writer, r domain.PublishResult) {
	if r.Success {
		fmt.Fprintf(w, "post %d published id=%s url=%s\n", r.PostID, r.ExternalID, r.ExternalURL)
		return
	}
	fmt.Fprintf(w, "post %d failed (%s): %s\n", r.PostID, r.Kind, r.Error)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
