package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsPipeline/internal/app"
	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/usecase"
)

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and worker pool until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx)
			})
		},
	}
}

type fetchOptions struct {
	categories []string
	query      string
	process    bool
}

type fetchOutput struct {
	domain.FetchResult
	Error     string                `json:"error,omitempty"`
	Processed *usecase.ProcessStats `json:"processed,omitempty"`
}

func newFetchCommand(opts *RootOptions) *cobra.Command {
	f := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch articles once for a query or for categories",
		Long: `Fetch articles once and store the ones not seen before.

Examples:
  newspipeline fetch --query "fusion energy"
  newspipeline fetch --category business --category science
  newspipeline fetch --process`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				svc := a.Service()

				var (
					result domain.FetchResult
					err    error
				)
				if f.query != "" {
					result, err = svc.TriggerFetch(ctx, domain.Criteria{Query: f.query})
				} else {
					categories := f.categories
					if len(categories) == 0 {
						categories = a.Config().Source.Categories
					}
					result, err = svc.TriggerFetchCategories(ctx, categories)
				}

				out := fetchOutput{FetchResult: result}
				if err != nil {
					out.Error = err.Error()
				}
				if f.process {
					stats, perr := svc.ProcessNow(ctx)
					err = errors.Join(err, perr)
					out.Processed = &stats
				}
				if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
					return werr
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&f.categories, "category", "c", nil, "category to fetch (repeatable; default from config)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "free-text query (takes precedence over categories)")
	cmd.Flags().BoolVar(&f.process, "process", false, "drain the enrichment queue after fetching")
	return cmd
}

func newProcessCommand(opts *RootOptions) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Enrich every claimable article once and exit",
		Long: `Enrich every claimable article once and exit. With --id only that
article is processed; an article that is already processed or held by
another worker is reported in the outcome field.

Examples:
  newspipeline process
  newspipeline process --id 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if cmd.Flags().Changed("id") {
					result, err := a.Service().ProcessArticle(ctx, id)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), result)
				}
				stats, err := a.Service().ProcessNow(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "process only this article")
	return cmd
}

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reset stuck claims and release due retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Service().Sweep(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}
