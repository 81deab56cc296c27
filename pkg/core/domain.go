// Package core holds the notebook domain: the Notebook, Cell and Output
// records, the Multiline field that switches between model form and file
// form, and the errors shared by every adapter.
package core

import "time"

// Metadata represents the opaque key-value pairs attached to a notebook or a cell.
// Numbers decoded from JSON are kept as json.Number.
type Metadata map[string]any

// Well-known cell types.
const (
	CellTypeCode     = "code"
	CellTypeMarkdown = "markdown"
	CellTypeRaw      = "raw"
)

// Notebook is the central entity of the domain.
// Fields the module does not understand are kept in Extra and written back untouched.
type Notebook struct {
	Cells         []Cell // nil when the document has no "cells" key
	Metadata      Metadata
	NBFormat      int
	NBFormatMinor int
	Extra         Metadata
}

// Cell is a unit of notebook content.
type Cell struct {
	CellType string
	Source   *Multiline // nil when absent
	Outputs  []Output   // nil when absent, empty when present but empty
	Language string
	Metadata Metadata
	Extra    Metadata
}

// Output is the result of executing a code cell.
// Only Data is interpreted; output_type, text, execution_count and friends live in Extra.
type Output struct {
	Data  *Multiline // nil when absent
	Extra Metadata
}

// OutputType returns the nbformat output_type of o, if any.
func (o Output) OutputType() string {
	s, _ := o.Extra["output_type"].(string)
	return s
}

// EventType represents the type of change in a notebook directory.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a notebook on disk.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}

// Summary is a short description of a stored notebook.
type Summary struct {
	ID           string    `json:"id"`
	Cells        int       `json:"cells"`
	Language     string    `json:"language,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// SummaryOf describes nb. The language comes from the kernel metadata when
// present, falling back to the first code cell.
func SummaryOf(id string, nb *Notebook) Summary {
	s := Summary{ID: id}
	if nb == nil {
		return s
	}
	s.Cells = len(nb.Cells)
	s.Language = notebookLanguage(nb)
	return s
}

func notebookLanguage(nb *Notebook) string {
	if info, ok := nb.Metadata["language_info"].(map[string]any); ok {
		if name, ok := info["name"].(string); ok && name != "" {
			return name
		}
	}
	if spec, ok := nb.Metadata["kernelspec"].(map[string]any); ok {
		if lang, ok := spec["language"].(string); ok && lang != "" {
			return lang
		}
	}
	for _, c := range nb.Cells {
		if c.CellType == CellTypeCode && c.Language != "" {
			return c.Language
		}
	}
	return ""
}
