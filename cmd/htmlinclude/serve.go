package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pthm/htmlinclude"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a directory, resolving includes on each request",
	Long: `Serves the files under --root. HTML documents are expanded on each
request, so edits to included files show up on reload. The include
handler for HTMX pages is mounted at the configured prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrideString(cmd, "root", &cfg.Fetch.Root)
		overrideString(cmd, "addr", &cfg.Serve.Addr)
		overrideBool(cmd, "minify", &cfg.Expand.Minify)
		overrideInt(cmd, "max-depth", &cfg.Expand.MaxDepth)

		router, err := newRouter(cfg, logger)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg.Serve.Addr, router, logger)
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("root", ".", "directory to serve")
	f.String("addr", ":8080", "address to listen on")
	f.Bool("minify", false, "minify expanded documents")
	f.Int("max-depth", htmlinclude.DefaultMaxDepth, "levels of nested includes to expand")
}

func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newRouter(cfg *Config, logger *slog.Logger) (http.Handler, error) {
	key := []byte(cfg.Serve.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		logger.Warn("no serve.key configured, include URLs are valid until restart")
	}

	fetcher, err := newFetcher(cfg.Fetch, ".", logger)
	if err != nil {
		return nil, err
	}
	opts := []htmlinclude.HandlerOption{
		htmlinclude.WithPrefix(cfg.Serve.Prefix),
		htmlinclude.WithExpander(newExpander(cfg, fetcher, logger)),
		htmlinclude.WithHandlerLogger(logger),
	}
	if cfg.Serve.Sensitive {
		opts = append(opts, htmlinclude.Sensitive())
	}
	includes, err := htmlinclude.NewHandler(key, opts...)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(cfg.Fetch.Root)
	p := &pages{
		cfg:    cfg,
		fsys:   fsys,
		files:  http.FileServerFS(fsys),
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Handle(includes.Prefix()+"*", includes)
	r.Get("/*", p.ServeHTTP)
	return r, nil
}

// pages serves files, expanding HTML documents first.
type pages struct {
	cfg    *Config
	fsys   fs.FS
	files  http.Handler
	logger *slog.Logger
}

func (p *pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if path.Ext(name) != ".html" {
		p.files.ServeHTTP(w, r)
		return
	}

	data, err := fs.ReadFile(p.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		p.logger.Error("read document", "document", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	report, err := expandDocument(r.Context(), p.cfg, p.logger, path.Dir(name), bytes.NewReader(data), &buf)
	if err != nil {
		p.logger.Error("expand document", "document", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	logReport(p.logger, name, report)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
