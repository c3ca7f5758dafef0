package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/pthm/htmlinclude"
	"github.com/spf13/cobra"
)

// newFetcher builds the fetcher for documents in dir, a slash-separated
// path relative to the configured root.
func newFetcher(c FetchConfig, dir string, logger *slog.Logger) (htmlinclude.Fetcher, error) {
	opts := []htmlinclude.FetcherOption{
		htmlinclude.WithClient(&http.Client{Timeout: c.Timeout}),
		htmlinclude.WithMaxBodySize(c.MaxBodySize),
		htmlinclude.WithFetchLogger(logger),
	}
	if c.Base != "" {
		base, err := url.Parse(c.Base)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		return htmlinclude.NewHTTPFetcher(append(opts, htmlinclude.WithBaseURL(base))...), nil
	}
	return htmlinclude.NewFSFetcher(os.DirFS(c.Root), dir, htmlinclude.NewHTTPFetcher(opts...)), nil
}

func newExpander(cfg *Config, f htmlinclude.Fetcher, logger *slog.Logger) *htmlinclude.Expander {
	opts := []htmlinclude.ExpanderOption{
		htmlinclude.WithExpanderFetcher(f),
		htmlinclude.WithExpanderLogger(logger),
		htmlinclude.WithMaxDepth(cfg.Expand.MaxDepth),
	}
	if cfg.Expand.Minify {
		opts = append(opts, htmlinclude.WithMinify())
	}
	if cfg.Expand.LegacyOrdering {
		opts = append(opts, htmlinclude.WithElementOptions(htmlinclude.WithLegacyOrdering()))
	}
	return htmlinclude.NewExpander(opts...)
}

func logReport(logger *slog.Logger, name string, r *htmlinclude.Report) {
	logger.Info("expanded", "document", name, "includes", r.Includes, "loaded", r.Loaded, "failed", r.Failed)
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetBool(name)
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}
