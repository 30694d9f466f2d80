package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"NewsPipeline/internal/app"
	"NewsPipeline/internal/config"
	"NewsPipeline/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the newspipeline command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "newspipeline",
		Short: "News ingestion, deduplication and enrichment pipeline",
		Long: `newspipeline fetches articles from a news provider, stores each URL once,
enriches new articles with a summary and tags on a worker pool, and serves
search, suggestions and analytics over the processed set.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $NEWS_PIPELINE_CONFIG)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newFetchCommand(opts))
	cmd.AddCommand(newProcessCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newSuggestCommand(opts))
	cmd.AddCommand(newTagsCommand(opts))
	cmd.AddCommand(newCategoriesCommand(opts))
	cmd.AddCommand(newSourcesCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.ConfigPath == "" {
		return config.Load(), nil
	}
	return config.LoadFrom(o.ConfigPath)
}

// withApp builds the application, runs fn and closes the store. Logs go to stderr
// so stdout carries only command output.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	return fn(ctx, application)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
