// Package transcode converts notebooks between model form, where multi-line
// fields are plain strings, and file form, where the same fields are arrays
// of line fragments (IPEP 17).
//
// Only cells[*].source and cells[*].outputs[*].data are touched. Every other
// field is carried through untouched. Both directions return a new notebook
// and never modify their input.
package transcode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/nbform/pkg/core"
)

// Role tells which kind of multi-line field a TransformFunc is looking at.
type Role int

const (
	RoleSource Role = iota // cells[*].source
	RoleData               // cells[*].outputs[*].data
)

// TransformFunc rewrites one multi-line field. path locates the field, e.g. "cells[0].source".
type TransformFunc func(path string, role Role, field *core.Multiline) (*core.Multiline, error)

// Walk applies fn to every present source and data field of nb, in place.
// Absent fields and explicit nulls are skipped. An empty string is present.
func Walk(nb *core.Notebook, fn TransformFunc) error {
	if nb == nil {
		return nil
	}
	for i := range nb.Cells {
		cell := &nb.Cells[i]
		if !cell.Source.IsNull() {
			out, err := fn(fmt.Sprintf("cells[%d].source", i), RoleSource, cell.Source)
			if err != nil {
				return err
			}
			cell.Source = out
		}
		for j := range cell.Outputs {
			output := &cell.Outputs[j]
			if output.Data.IsNull() {
				continue
			}
			out, err := fn(fmt.Sprintf("cells[%d].outputs[%d].data", i, j), RoleData, output.Data)
			if err != nil {
				return err
			}
			output.Data = out
		}
	}
	return nil
}

// Transcoder converts notebooks between model form and file form.
// It holds configuration only and is safe for concurrent use.
type Transcoder struct {
	strict bool
	logger *slog.Logger
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithStrict makes the transcoder reject multi-line fields that are neither
// a string nor a string array, instead of passing them through. Output data
// may also be a mime-bundle; a source may not.
func WithStrict(strict bool) Option {
	return func(t *Transcoder) {
		t.strict = strict
	}
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcoder) {
		t.logger = logger
	}
}

// New creates a Transcoder. It is lenient unless WithStrict(true) is given.
func New(opts ...Option) *Transcoder {
	t := &Transcoder{}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// Strict reports whether shape errors are raised.
func (t *Transcoder) Strict() bool {
	return t.strict
}

// Decode parses file contents and returns the notebook in model form.
// Fields already in model form are accepted unchanged.
func (t *Transcoder) Decode(contents []byte) (*core.Notebook, error) {
	var nb core.Notebook
	if err := json.Unmarshal(contents, &nb); err != nil {
		return nil, &core.ParseError{Err: err}
	}
	// nb is our own copy, so it can be joined in place.
	if err := Walk(&nb, t.join); err != nil {
		return nil, err
	}
	t.logger.Debug("decoded notebook", "cells", len(nb.Cells), "bytes", len(contents))
	return &nb, nil
}

// ToModel returns a model-form copy of nb, which may be in either form.
func (t *Transcoder) ToModel(nb *core.Notebook) (*core.Notebook, error) {
	if nb == nil {
		return nil, nil
	}
	out := nb.Clone()
	if err := Walk(out, t.join); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode returns a file-form copy of nb. nb is left unmodified.
// Fields that are not plain strings pass through, so encoding is idempotent.
func (t *Transcoder) Encode(nb *core.Notebook) (*core.Notebook, error) {
	if nb == nil {
		return nil, nil
	}
	out := nb.Clone()
	if err := Walk(out, t.split); err != nil {
		return nil, err
	}
	t.logger.Debug("encoded notebook", "cells", len(out.Cells))
	return out, nil
}

// Marshal encodes nb to file form and renders it the way Jupyter writes
// .ipynb files: sorted keys, one-space indent, trailing newline.
func (t *Transcoder) Marshal(nb *core.Notebook) ([]byte, error) {
	if nb == nil {
		return nil, fmt.Errorf("cannot marshal a nil notebook")
	}
	encoded, err := t.Encode(nb)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", " ")
	if err := encoder.Encode(encoded); err != nil {
		return nil, fmt.Errorf("failed to marshal notebook: %w", err)
	}
	return buf.Bytes(), nil
}

func (t *Transcoder) join(path string, role Role, field *core.Multiline) (*core.Multiline, error) {
	switch {
	case field.Kind == core.KindText:
		return field, nil
	case field.Kind == core.KindLines:
		return core.Text(JoinLines(field.Lines)), nil
	case field.Kind == core.KindBundle && role == RoleData:
		return mapBundle(field, joinEntry), nil
	default:
		return t.other(path, field)
	}
}

func (t *Transcoder) split(path string, role Role, field *core.Multiline) (*core.Multiline, error) {
	switch {
	case field.Kind == core.KindText:
		return core.Lines(SplitLines(field.Text)...), nil
	case field.Kind == core.KindLines:
		return field, nil
	case field.Kind == core.KindBundle && role == RoleData:
		return mapBundle(field, splitEntry), nil
	default:
		return t.other(path, field)
	}
}

func (t *Transcoder) other(path string, field *core.Multiline) (*core.Multiline, error) {
	if t.strict {
		return nil, &core.ShapeError{Path: path, Kind: field.Kind}
	}
	t.logger.Debug("passing through unexpected field shape", "path", path, "kind", field.Kind.String())
	return field, nil
}

// joinEntry joins any line array outside the JSON payloads, so files
// written by other tools with split binary data still decode to strings.
func joinEntry(mime string, m *core.Multiline) *core.Multiline {
	if m.Kind == core.KindLines && !isJSONMime(mime) {
		return core.Text(JoinLines(m.Lines))
	}
	return m
}

// splitEntry splits textual payloads only. Base64 images stay single strings.
func splitEntry(mime string, m *core.Multiline) *core.Multiline {
	if m.Kind == core.KindText && isTextMime(mime) {
		return core.Lines(SplitLines(m.Text)...)
	}
	return m
}

// mapBundle applies entry to every value of a mime-bundle.
func mapBundle(field *core.Multiline, entry func(string, *core.Multiline) *core.Multiline) *core.Multiline {
	out := make(map[string]*core.Multiline, len(field.Bundle))
	for mime, value := range field.Bundle {
		if value == nil {
			out[mime] = nil
			continue
		}
		out[mime] = entry(mime, value)
	}
	return core.Bundle(out)
}

func isJSONMime(mime string) bool {
	return mime == "application/json" || strings.HasSuffix(mime, "+json")
}

// isTextMime lists the mime types Jupyter stores as line arrays.
func isTextMime(mime string) bool {
	switch {
	case strings.HasPrefix(mime, "text/"):
		return true
	case mime == "application/javascript", mime == "image/svg+xml":
		return true
	}
	return false
}

var defaultTranscoder = New()

// Decode parses file contents into a model-form notebook using lenient defaults.
func Decode(contents []byte) (*core.Notebook, error) {
	return defaultTranscoder.Decode(contents)
}

// Encode returns a file-form copy of nb using lenient defaults.
func Encode(nb *core.Notebook) (*core.Notebook, error) {
	return defaultTranscoder.Encode(nb)
}
