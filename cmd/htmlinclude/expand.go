package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pthm/htmlinclude"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var expandCmd = &cobra.Command{
	Use:   "expand [files...]",
	Short: "Write documents with their includes resolved",
	Long: `Expands every <html-include> element in the given documents, including
includes inside included content, and writes the result. Each include's
content is written as a declarative shadow root inside the element.

Without files the document is read from stdin. Without --out results are
written to stdout in argument order.

Local src paths resolve inside --root, relative ones against the
document's own directory. With --base every src is fetched over HTTP
relative to that URL instead.

Example:
  htmlinclude expand --root site --out dist site/index.html site/about.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrideString(cmd, "root", &cfg.Fetch.Root)
		overrideString(cmd, "base", &cfg.Fetch.Base)
		overrideString(cmd, "out", &cfg.Expand.Out)
		overrideBool(cmd, "minify", &cfg.Expand.Minify)
		overrideBool(cmd, "strict", &cfg.Expand.Strict)
		overrideInt(cmd, "max-depth", &cfg.Expand.MaxDepth)

		return runExpand(cmd.Context(), cfg, logger, args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	f := expandCmd.Flags()
	f.String("root", ".", "directory local src paths resolve inside")
	f.String("base", "", "fetch every src over HTTP relative to this URL")
	f.StringP("out", "o", "", "write expanded documents into this directory")
	f.Bool("minify", false, "minify expanded documents")
	f.Bool("strict", false, "exit non-zero when an include fails")
	f.Int("max-depth", htmlinclude.DefaultMaxDepth, "levels of nested includes to expand")
}

func runExpand(ctx context.Context, cfg *Config, logger *slog.Logger, files []string, stdin io.Reader, stdout io.Writer) error {
	if len(files) == 0 {
		report, err := expandDocument(ctx, cfg, logger, ".", stdin, stdout)
		if err != nil {
			return err
		}
		logReport(logger, "-", report)
		return checkFailed(cfg, report.Failed)
	}

	outputs := make([][]byte, len(files))
	reports := make([]*htmlinclude.Report, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range files {
		g.Go(func() error {
			in, err := os.Open(name)
			if err != nil {
				return err
			}
			defer in.Close()

			rel := relToRoot(cfg.Fetch.Root, name)
			var buf bytes.Buffer
			report, err := expandDocument(gctx, cfg, logger, filepath.ToSlash(filepath.Dir(rel)), in, &buf)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			reports[i] = report

			if cfg.Expand.Out == "" {
				outputs[i] = buf.Bytes()
				return nil
			}
			dst := filepath.Join(cfg.Expand.Out, rel)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			return os.WriteFile(dst, buf.Bytes(), 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var failed int
	for i, report := range reports {
		logReport(logger, files[i], report)
		failed += report.Failed
		if outputs[i] != nil {
			if _, err := stdout.Write(outputs[i]); err != nil {
				return err
			}
		}
	}
	return checkFailed(cfg, failed)
}

func expandDocument(ctx context.Context, cfg *Config, logger *slog.Logger, dir string, r io.Reader, w io.Writer) (*htmlinclude.Report, error) {
	fetcher, err := newFetcher(cfg.Fetch, dir, logger)
	if err != nil {
		return nil, err
	}
	return newExpander(cfg, fetcher, logger).Expand(ctx, r, w)
}

// relToRoot returns name relative to root, or its base name when it lies
// outside root.
func relToRoot(root, name string) string {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(name)
	}
	return rel
}

func checkFailed(cfg *Config, failed int) error {
	if cfg.Expand.Strict && failed > 0 {
		return fmt.Errorf("%d includes failed", failed)
	}
	return nil
}
