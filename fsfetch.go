package htmlinclude

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// FSFetcher resolves src paths against a file system, the way a static
// file server would answer them.
//
// Relative paths resolve against Dir, absolute paths against the root of
// the file system. Missing files answer 404 Not Found. URIs with a scheme
// or host are passed to the next fetcher; without one they fail.
type FSFetcher struct {
	fsys fs.FS
	dir  string
	next Fetcher
}

// NewFSFetcher creates a fetcher reading from fsys. dir is the directory,
// relative to the root of fsys, that relative src paths resolve against.
// next may be nil.
func NewFSFetcher(fsys fs.FS, dir string, next Fetcher) *FSFetcher {
	return &FSFetcher{fsys: fsys, dir: dir, next: next}
}

// Resolve returns the name of the file uri refers to.
func (f *FSFetcher) Resolve(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "" || u.Host != "" {
		return "", fmt.Errorf("%q is not a local path", uri)
	}
	name := u.Path
	if !strings.HasPrefix(name, "/") {
		name = path.Join("/", f.dir, name)
	}
	name = strings.TrimPrefix(path.Clean(name), "/")
	if name == "" {
		name = "."
	}
	return name, nil
}

// Fetch reads the file uri refers to.
func (f *FSFetcher) Fetch(ctx context.Context, uri string) (Response, error) {
	if f.next != nil {
		if u, err := url.Parse(uri); err == nil && (u.Scheme != "" || u.Host != "") {
			return f.next.Fetch(ctx, uri)
		}
	}

	name, err := f.Resolve(uri)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", uri, err)
	}

	data, err := fs.ReadFile(f.fsys, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &fileResponse{status: http.StatusNotFound}, nil
	case errors.Is(err, fs.ErrPermission):
		return &fileResponse{status: http.StatusForbidden}, nil
	case err != nil:
		return nil, err
	}
	return &fileResponse{status: http.StatusOK, body: string(data)}, nil
}

type fileResponse struct {
	status int
	body   string
}

func (r *fileResponse) OK() bool           { return r.status == http.StatusOK }
func (r *fileResponse) Status() int        { return r.status }
func (r *fileResponse) StatusText() string { return http.StatusText(r.status) }

func (r *fileResponse) Text(ctx context.Context) (string, error) {
	return r.body, nil
}
