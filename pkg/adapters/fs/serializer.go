package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/nbform/pkg/core"
	"github.com/aretw0/nbform/pkg/transcode"
)

// Serializer defines how to read and write a specific file format.
// Notebooks go in and come out in model form; the on-disk shape is the serializer's business.
type Serializer interface {
	// Parse reads from r and returns a model-form notebook.
	Parse(r io.Reader) (*core.Notebook, error)
	// Serialize converts a notebook to bytes.
	Serialize(nb *core.Notebook) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers sharing one transcoder.
func DefaultSerializers(t *transcode.Transcoder) map[string]Serializer {
	if t == nil {
		t = transcode.New()
	}
	nb := NewNotebookSerializer(t)
	ym := NewYAMLSerializer(t)
	return map[string]Serializer{
		".ipynb": nb,
		".json":  nb,
		".yaml":  ym,
		".yml":   ym,
	}
}

// Extensions returns the registered extensions, sorted.
func Extensions(serializers map[string]Serializer) []string {
	exts := make([]string, 0, len(serializers))
	for ext := range serializers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// --- Notebook (file form) Serializer ---

// NotebookSerializer reads and writes .ipynb files: file-form JSON with line arrays.
type NotebookSerializer struct {
	Transcoder *transcode.Transcoder
}

// NewNotebookSerializer creates a new .ipynb serializer.
func NewNotebookSerializer(t *transcode.Transcoder) *NotebookSerializer {
	return &NotebookSerializer{Transcoder: t}
}

func (s *NotebookSerializer) Parse(r io.Reader) (*core.Notebook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return s.Transcoder.Decode(data)
}

func (s *NotebookSerializer) Serialize(nb *core.Notebook) ([]byte, error) {
	return s.Transcoder.Marshal(nb)
}

// --- YAML Serializer ---

// YAMLSerializer exports notebooks as YAML in model form, where multi-line
// fields read as block text. It accepts either form on input.
type YAMLSerializer struct {
	Transcoder *transcode.Transcoder
}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer(t *transcode.Transcoder) *YAMLSerializer {
	return &YAMLSerializer{Transcoder: t}
}

func (s *YAMLSerializer) Parse(r io.Reader) (*core.Notebook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if payload == nil {
		return nil, &core.ParseError{Err: fmt.Errorf("yaml document is empty")}
	}

	// yaml.v3 yields JSON-compatible values for string-keyed documents.
	asJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, &core.ParseError{Err: err}
	}
	return s.Transcoder.Decode(asJSON)
}

func (s *YAMLSerializer) Serialize(nb *core.Notebook) ([]byte, error) {
	model, err := s.Transcoder.ToModel(nb)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("cannot serialize a nil notebook")
	}

	asJSON, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(asJSON))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlValue(generic)); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yamlValue turns json.Number leaves into real numbers so YAML does not quote them.
func yamlValue(val interface{}) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = yamlValue(val)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(v))
		for i, val := range v {
			l[i] = yamlValue(val)
		}
		return l
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
