package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/nbform/pkg/core"
	"github.com/aretw0/nbform/pkg/transcode"
)

const (
	// DefaultExt is appended to IDs that carry no registered extension.
	DefaultExt = ".ipynb"
	// DefaultPattern selects the files List and Watch consider notebooks.
	DefaultPattern = "**/*.ipynb"
	// DefaultSystemDir holds repository state such as the summary index.
	DefaultSystemDir = ".nbform"
	// DefaultDebounce is the quiet period before a file change is reported.
	DefaultDebounce = 50 * time.Millisecond
)

// Repository implements core.Repository on a directory of notebook files.
type Repository struct {
	Path        string
	config      Config
	transcoder  *transcode.Transcoder
	serializers map[string]Serializer
	cache       *cache

	mu            sync.RWMutex
	watcherActive bool
	lastEvent     *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	ReadOnly  bool
	Strict    bool
	Pattern   string // doublestar glob relative to Path, e.g. "**/*.ipynb"
	SystemDir string // e.g. ".nbform"
	Logger    *slog.Logger

	// Transcoder overrides the one built from Strict and Logger.
	Transcoder *transcode.Transcoder
	// Serializers maps extensions (".ipynb") to formats. Defaults to DefaultSerializers.
	Serializers map[string]Serializer

	Debounce     time.Duration
	ErrorHandler func(error) // receives watcher errors; nil logs them
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	t := config.Transcoder
	if t == nil {
		t = transcode.New(
			transcode.WithStrict(config.Strict),
			transcode.WithLogger(config.Logger),
		)
	}
	serializers := config.Serializers
	if serializers == nil {
		serializers = DefaultSerializers(t)
	}

	return &Repository{
		Path:        config.Path,
		config:      config,
		transcoder:  t,
		serializers: serializers,
		cache:       newCache(config.Path, config.SystemDir),
	}
}

// Transcoder returns the transcoder used by the repository serializers.
func (r *Repository) Transcoder() *transcode.Transcoder {
	return r.transcoder
}

// Initialize checks the configuration and prepares the notebook directory.
func (r *Repository) Initialize(ctx context.Context) error {
	if !doublestar.ValidatePattern(r.config.Pattern) {
		return fmt.Errorf("invalid pattern: %q", r.config.Pattern)
	}
	if _, ok := r.serializers[DefaultExt]; !ok {
		return fmt.Errorf("%w: no serializer registered for %s", core.ErrUnsupportedFormat, DefaultExt)
	}

	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("notebook directory does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("notebook path is not a directory: %s", r.Path)
		}
		return nil
	}

	if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create notebook directory: %w", err)
	}
	return nil
}

// resolve maps an ID to its file path and extension.
// IDs are slash-separated paths relative to the repository root; a missing
// or unknown extension means DefaultExt.
func (r *Repository) resolve(id string) (fullPath, relPath, ext string, err error) {
	if strings.TrimSpace(id) == "" {
		return "", "", "", fmt.Errorf("%w: notebook ID cannot be empty", core.ErrInvalidID)
	}
	if filepath.IsAbs(id) || strings.HasPrefix(id, "/") {
		return "", "", "", fmt.Errorf("%w: %s is absolute", core.ErrInvalidID, id)
	}

	relPath = filepath.ToSlash(filepath.Clean(filepath.FromSlash(id)))
	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, "../") {
		return "", "", "", fmt.Errorf("%w: %s escapes the notebook directory", core.ErrInvalidID, id)
	}
	if relPath == r.config.SystemDir || strings.HasPrefix(relPath, r.config.SystemDir+"/") {
		return "", "", "", fmt.Errorf("%w: %s is reserved", core.ErrInvalidID, id)
	}

	ext = filepath.Ext(relPath)
	if _, ok := r.serializers[ext]; !ok {
		relPath += DefaultExt
		ext = DefaultExt
	}
	return filepath.Join(r.Path, filepath.FromSlash(relPath)), relPath, ext, nil
}

// idFromRel is the inverse of resolve.
func idFromRel(relPath string) string {
	return strings.TrimSuffix(relPath, DefaultExt)
}

// Get reads and decodes a notebook. The result is in model form.
func (r *Repository) Get(ctx context.Context, id string) (*core.Notebook, error) {
	fullPath, _, ext, err := r.resolve(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	defer f.Close()

	nb, err := r.serializers[ext].Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read notebook %s: %w", id, err)
	}
	return nb, nil
}

// Save encodes nb to file form and writes it atomically.
func (r *Repository) Save(ctx context.Context, id string, nb *core.Notebook) error {
	if r.config.ReadOnly {
		return fmt.Errorf("%w: cannot save %s", core.ErrReadOnly, id)
	}
	if nb == nil {
		return errors.New("notebook cannot be nil")
	}
	fullPath, relPath, ext, err := r.resolve(id)
	if err != nil {
		return err
	}

	data, err := r.serializers[ext].Serialize(nb)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", id, err)
	}
	if err := r.write(fullPath, data); err != nil {
		return err
	}

	r.index(fullPath, relPath, nb)
	r.config.Logger.Info("notebook saved", "id", id, "path", relPath)
	return nil
}

func (r *Repository) write(fullPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeFileAtomic(fullPath, data, 0644)
}

// index refreshes the summary entry of a freshly written file.
func (r *Repository) index(fullPath, relPath string, nb *core.Notebook) {
	info, err := os.Stat(fullPath)
	if err != nil {
		return
	}
	r.cache.Set(relPath, newIndexEntry(idFromRel(relPath), nb, info.ModTime()))
}

// Delete removes a notebook file.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return fmt.Errorf("%w: cannot delete %s", core.ErrReadOnly, id)
	}
	fullPath, relPath, _, err := r.resolve(id)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	r.cache.Delete(relPath)
	r.config.Logger.Info("notebook deleted", "id", id)
	return nil
}

// List returns the IDs of every file matching the configured pattern, sorted.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.walk(ctx, func(relPath string, _ fs.DirEntry) error {
		ids = append(ids, idFromRel(relPath))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// walk visits every notebook file under the root, skipping hidden
// directories and temp files.
func (r *Repository) walk(ctx context.Context, fn func(relPath string, d fs.DirEntry) error) error {
	return filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != r.Path && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(r.Path, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if !r.matches(relPath) {
			return nil
		}
		return fn(relPath, d)
	})
}

// matches reports whether relPath names a notebook this repository manages.
func (r *Repository) matches(relPath string) bool {
	if isTempFile(relPath) {
		return false
	}
	for _, part := range strings.Split(relPath, "/") {
		if isHidden(part) {
			return false
		}
	}
	if _, ok := r.serializers[filepath.Ext(relPath)]; !ok {
		return false
	}
	ok, err := doublestar.Match(r.config.Pattern, relPath)
	return err == nil && ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Summaries lists every notebook with a short description, served from the
// index in SystemDir while files are unchanged. Unreadable files are skipped.
func (r *Repository) Summaries(ctx context.Context) ([]core.Summary, error) {
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("failed to load summary index", "error", err)
	}

	var summaries []core.Summary
	seen := make(map[string]bool)

	err := r.walk(ctx, func(relPath string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime()
		seen[relPath] = true

		if entry, hit := r.cache.Get(relPath, mtime); hit {
			summaries = append(summaries, entry.summary())
			return nil
		}

		id := idFromRel(relPath)
		nb, err := r.Get(ctx, id)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable notebook", "id", id, "error", err)
			return nil
		}
		entry := newIndexEntry(id, nb, mtime)
		r.cache.Set(relPath, entry)
		summaries = append(summaries, entry.summary())
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Warn("failed to save summary index", "error", err)
		}
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

// Export renders a stored notebook with the serializer registered for ext.
func (r *Repository) Export(ctx context.Context, id, ext string) ([]byte, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	s, ok := r.serializers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}

	nb, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Serialize(nb)
}

// Format rewrites a notebook in canonical file form. It reports whether the
// file changed.
func (r *Repository) Format(ctx context.Context, id string) (bool, error) {
	if r.config.ReadOnly {
		return false, fmt.Errorf("%w: cannot format %s", core.ErrReadOnly, id)
	}
	fullPath, relPath, ext, err := r.resolve(id)
	if err != nil {
		return false, err
	}

	original, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		return false, err
	}

	s := r.serializers[ext]
	nb, err := s.Parse(bytes.NewReader(original))
	if err != nil {
		return false, fmt.Errorf("failed to read notebook %s: %w", id, err)
	}
	data, err := s.Serialize(nb)
	if err != nil {
		return false, fmt.Errorf("failed to serialize %s: %w", id, err)
	}
	if bytes.Equal(original, data) {
		return false, nil
	}

	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return false, err
	}
	r.index(fullPath, relPath, nb)
	r.config.Logger.Info("notebook formatted", "id", id)
	return true, nil
}

var (
	_ core.Repository    = (*Repository)(nil)
	_ core.Watchable     = (*Repository)(nil)
	_ core.Transactional = (*Repository)(nil)
	_ core.Summarizer    = (*Repository)(nil)
)
