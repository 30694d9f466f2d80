package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"NewsPipeline/internal/app"
	"NewsPipeline/internal/domain"
)

// filterOptions are the AND-combined filters shared by search and list.
type filterOptions struct {
	category string
	source   string
	tag      string
	from     string
	to       string
	page     int
	pageSize int
}

func (f *filterOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.category, "category", "", "only articles in this category")
	fs.StringVar(&f.source, "source", "", "only articles from this source")
	fs.StringVar(&f.tag, "tag", "", "only articles carrying this tag")
	fs.StringVar(&f.from, "from", "", "published on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "published on or before this date (YYYY-MM-DD)")
	fs.IntVar(&f.page, "page", 1, "1-based page number")
	fs.IntVar(&f.pageSize, "page-size", domain.DefaultPageSize, "results per page")
}

func (f *filterOptions) filters() (domain.Filters, error) {
	out := domain.Filters{Category: f.category, Source: f.source, Tag: f.tag}
	if f.from != "" {
		t, err := time.Parse(time.DateOnly, f.from)
		if err != nil {
			return out, fmt.Errorf("--from: %w", err)
		}
		out.FromDate = &t
	}
	if f.to != "" {
		t, err := time.Parse(time.DateOnly, f.to)
		if err != nil {
			return out, fmt.Errorf("--to: %w", err)
		}
		// inclusive of the whole day
		end := t.AddDate(0, 0, 1).Add(-time.Millisecond)
		out.ToDate = &end
	}
	if out.FromDate != nil && out.ToDate != nil && out.ToDate.Before(*out.FromDate) {
		return out, fmt.Errorf("--to is before --from")
	}
	return out, nil
}

func newSearchCommand(opts *RootOptions) *cobra.Command {
	f := &filterOptions{}
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search processed articles by title and content",
		Long: `Search processed articles. The term matches title or content
case-insensitively; filters narrow the result further.

Examples:
  newspipeline search "interest rates" --category business
  newspipeline search ai --tag machine-learning --from 2025-01-01 --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := f.filters()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Service().Search(ctx, args[0], filters, f.page, f.pageSize)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	f := &filterOptions{}
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles in any status, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := f.filters()
			if err != nil {
				return err
			}
			if status != "" {
				if filters.Status, err = domain.ParseStatus(status); err != nil {
					return err
				}
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				page, err := a.Service().ListArticles(ctx, filters, f.page, f.pageSize)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	f.bind(cmd.Flags())
	cmd.Flags().StringVar(&status, "status", "", "pending, processing, processed, failed or dead")
	return cmd
}

func newGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one article with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				article, err := a.Service().GetArticle(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), article)
			})
		},
	}
}

func newSuggestCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest tags and titles for a typed prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				s, err := a.Service().GetSuggestions(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum suggestions per kind")
	return cmd
}

func newTagsCommand(opts *RootOptions) *cobra.Command {
	var (
		limit int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Show the most used tags on processed articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if all {
					tags, err := a.Service().GetTags(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), tags)
				}
				tags, err := a.Service().GetPopularTags(ctx, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), tags)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of tags")
	cmd.Flags().BoolVar(&all, "all", false, "list every tag alphabetically instead")
	return cmd
}

func newCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List known categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				cats, err := a.Service().GetCategories(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cats)
			})
		},
	}
}

func newSourcesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List known sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				sources, err := a.Service().GetSources(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), sources)
			})
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	var dashboardOnly bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the analytics bundle as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if dashboardOnly {
					d, err := a.Service().GetDashboardStats(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), d)
				}
				bundle, err := a.Service().GetAnalytics(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), bundle)
			})
		},
	}
	cmd.Flags().BoolVar(&dashboardOnly, "dashboard", false, "only the dashboard counts")
	return cmd
}
