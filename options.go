package htmlinclude

import (
	"context"
	"log/slog"
)

// Option configures an IncludeElement.
type Option func(*options)

type options struct {
	fetcher Fetcher
	loop    *Loop
	logger  *slog.Logger
	legacy  bool
}

// WithFetcher sets the network capability. Defaults to an HTTPFetcher
// with no base URL.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithLoop sets the loop the element schedules its continuations on.
// Elements sharing a document must share its loop.
func WithLoop(l *Loop) Option {
	return func(o *options) {
		o.loop = l
	}
}

// WithLogger sets the sink for diagnostic traces. Traces are only emitted
// while the element's debug attribute is "true", at slog.LevelDebug.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLegacyOrdering disables the generation check, so whichever load
// completes last decides the element's state even if src changed in the
// meantime.
func WithLegacyOrdering() Option {
	return func(o *options) {
		o.legacy = true
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fetcher == nil {
		o.fetcher = NewHTTPFetcher()
	}
	if o.loop == nil {
		o.loop = NewLoop(context.Background())
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
