package nbform

import (
	"log/slog"
	"time"

	"github.com/aretw0/nbform/internal/platform"
	"github.com/aretw0/nbform/pkg/core"
	"github.com/aretw0/nbform/pkg/transcode"
)

// --- Types ---

// Notebook is a public alias for the notebook record.
type Notebook = core.Notebook

// Cell is a public alias for a notebook cell.
type Cell = core.Cell

// Output is a public alias for a cell output.
type Output = core.Output

// Multiline is a public alias for the fields that switch between a string and a list of lines.
type Multiline = core.Multiline

// Metadata is a public alias for opaque notebook and cell metadata.
type Metadata = core.Metadata

// Service is a public alias for the notebook service.
type Service = core.Service

// Transcoder is a public alias for the model/file form converter.
type Transcoder = transcode.Transcoder

// --- Transcoding ---

// Decode parses notebook file contents and returns the notebook in model form,
// with every source and output data field joined into a single string.
func Decode(contents []byte) (*Notebook, error) {
	return transcode.Decode(contents)
}

// Encode returns a file-form copy of nb, with every source and output data
// field split into lines. nb is not modified.
func Encode(nb *Notebook) (*Notebook, error) {
	return transcode.Encode(nb)
}

// NewNotebook returns a fresh notebook with a single empty python code cell.
func NewNotebook() *Notebook {
	return core.NewNotebook()
}

// Text returns a model-form multi-line value.
func Text(s string) *Multiline {
	return core.Text(s)
}

// NewTranscoder builds a Transcoder honoring WithStrict and WithLogger.
func NewTranscoder(opts ...Option) *Transcoder {
	return platform.NewTranscoder(opts...)
}

// --- Configuration ---

// Option defines a functional option for configuring nbform.
type Option = platform.Option

// WithMustExist requires the notebook directory to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSystemDir sets the hidden state directory (e.g. ".nbform").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithPattern restricts listing and watching to a doublestar glob.
func WithPattern(pattern string) Option {
	return platform.WithPattern(pattern)
}

// WithEventBuffer sets the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithDebounce sets the quiet period before a file change is reported.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// WithStrict rejects multi-line fields of unexpected shape with ErrShape.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithReadOnly opens the notebooks without ever writing to them.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithSerializer registers a serializer (an fs.Serializer) for an extension.
func WithSerializer(ext string, s any) Option {
	return platform.WithSerializer(ext, s)
}

// WithWatcherErrorHandler receives errors raised while watching.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// Open returns a Service over the notebook directory at path.
func Open(path string, opts ...Option) (*Service, error) {
	return platform.New(path, opts...)
}

// Init initializes a repository explicitly.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// FindRoot looks upwards from startDir for a directory holding .nbform or nbform.yaml.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Errors ---

var (
	ErrParse             = core.ErrParse
	ErrShape             = core.ErrShape
	ErrNotFound          = core.ErrNotFound
	ErrExists            = core.ErrExists
	ErrReadOnly          = core.ErrReadOnly
	ErrUnsupportedFormat = core.ErrUnsupportedFormat
	ErrInvalidID         = core.ErrInvalidID
)
