package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/nbform/pkg/core"
)

// options collects everything Open needs: which repository to build, how to
// build it, and how the service around it behaves.
type options struct {
	adapter    string
	repository core.Repository
	logger     *slog.Logger

	mustExist bool
	readOnly  bool
	strict    bool
	pattern   string
	systemDir string
	debounce  time.Duration
	onError   func(error)

	eventBuffer int
	serializers map[string]any
}

// Option defines a functional option for configuring nbform.
type Option func(*options)

func apply(opts []Option) *options {
	o := &options{
		adapter:     "fs",
		serializers: map[string]any{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSerializer registers a serializer for an extension such as ".ipynb".
// s must implement fs.Serializer; this is checked when the repository is built.
func WithSerializer(ext string, s any) Option {
	return func(o *options) { o.serializers[ext] = s }
}

// WithMustExist requires the notebook directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) { o.mustExist = must }
}

// WithLogger sets the logger shared by the service, repository and transcoder.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRepository injects a custom storage adapter. The filesystem adapter is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) { o.repository = repo }
}

// WithAdapter selects the storage adapter by name. Only "fs" is built in.
func WithAdapter(name string) Option {
	return func(o *options) { o.adapter = name }
}

// WithSystemDir sets the hidden directory holding repository state. Defaults to ".nbform".
func WithSystemDir(name string) Option {
	return func(o *options) { o.systemDir = name }
}

// WithPattern restricts List and Watch to files matching a doublestar glob.
// Defaults to "**/*.ipynb".
func WithPattern(pattern string) Option {
	return func(o *options) { o.pattern = pattern }
}

// WithEventBuffer sets the size of the watch event buffer. Zero means the default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) { o.eventBuffer = size }
}

// WithDebounce sets the quiet period before a file change is reported.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithStrict makes decoding fail with ErrShape on multi-line fields that are
// neither a string, a list of strings nor a mime-bundle.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithWatcherErrorHandler registers a callback for errors raised while
// watching, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithReadOnly enables read-only mode:
// Save, Delete and Format return ErrReadOnly, the directory is never created
// and the summary index is not persisted.
func WithReadOnly(enabled bool) Option {
	return func(o *options) { o.readOnly = enabled }
}
