package watchman

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Option configures [NewPendingCollection], [NewChangeSet], and
// [NewNotifySource]. Options are applied in order.
type Option func(*options)

// WithCookiePredicate registers the predicate that recognizes
// synchronization-marker paths.
//
// Cookies are sentinel files the watch service creates to confirm that
// all prior filesystem events have been delivered. They are liveness
// signals, not content changes, so the collection never discards or
// prunes them no matter what recursive entries cover them.
//
// If nil (the default), no path is treated as a cookie.
func WithCookiePredicate(fn func(path string) bool) Option {
	return func(o *options) {
		o.Cookie = fn
	}
}

// WithLogger sets a structured logger for diagnostic events (entry
// added, entries pruned, notification discarded as redundant). Events
// are emitted at debug level.
//
// If nil (the default), nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.Logger = logger
	}
}

// WithIgnoreGlobs sets glob patterns (doublestar syntax, e.g.
// ".git/**") matched against paths relative to the watch root.
// Matching paths produce no pending entries and matching directories
// are not watched.
//
// Only used by [NewNotifySource].
func WithIgnoreGlobs(globs ...string) Option {
	return func(o *options) {
		o.IgnoreGlobs = globs
	}
}

// DefaultCookiePredicate returns a predicate matching paths whose base
// name starts with prefix, the usual naming convention for cookie
// files (e.g. ".watchman-cookie-").
func DefaultCookiePredicate(prefix string) func(path string) bool {
	return func(path string) bool {
		return strings.HasPrefix(filepath.Base(path), prefix)
	}
}

type options struct {
	// Cookie recognizes synchronization-marker paths.
	Cookie func(path string) bool
	// Logger receives debug-level diagnostic events.
	Logger *slog.Logger
	// IgnoreGlobs filters paths in NotifySource.
	IgnoreGlobs []string
}

// applyOptions merges option values.
func applyOptions(opts []Option) options {
	cfg := options{}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
