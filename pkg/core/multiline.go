package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells which shape a Multiline currently holds.
type Kind int

const (
	// KindText is a plain string (model form).
	KindText Kind = iota
	// KindLines is an array of line fragments (file form).
	KindLines
	// KindBundle is an nbformat v4 mime-bundle: an object keyed by mime type.
	KindBundle
	// KindOther is any other JSON value, kept verbatim.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindLines:
		return "lines"
	case KindBundle:
		return "bundle"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Multiline is a field that may hold multi-line text.
// Exactly one of Text, Lines, Bundle or Raw is meaningful, as selected by Kind.
type Multiline struct {
	Kind   Kind
	Text   string
	Lines  []string
	Bundle map[string]*Multiline
	Raw    json.RawMessage
}

// Text returns a model-form Multiline holding s.
func Text(s string) *Multiline {
	return &Multiline{Kind: KindText, Text: s}
}

// Lines returns a file-form Multiline holding the given fragments.
func Lines(fragments ...string) *Multiline {
	if fragments == nil {
		fragments = []string{}
	}
	return &Multiline{Kind: KindLines, Lines: fragments}
}

// Bundle returns a mime-bundle Multiline.
func Bundle(entries map[string]*Multiline) *Multiline {
	if entries == nil {
		entries = map[string]*Multiline{}
	}
	return &Multiline{Kind: KindBundle, Bundle: entries}
}

// IsNull reports whether m is missing or an explicit JSON null.
func (m *Multiline) IsNull() bool {
	if m == nil {
		return true
	}
	return m.Kind == KindOther && bytes.Equal(bytes.TrimSpace(m.Raw), []byte("null"))
}

// String returns the text content of m regardless of its form.
// Bundles and other values render as their JSON encoding.
func (m *Multiline) String() string {
	if m == nil {
		return ""
	}
	switch m.Kind {
	case KindText:
		return m.Text
	case KindLines:
		return strings.Join(m.Lines, "")
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// MarshalJSON implements json.Marshaler.
func (m Multiline) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindText:
		return marshalValue(m.Text)
	case KindLines:
		if m.Lines == nil {
			return []byte("[]"), nil
		}
		return marshalValue(m.Lines)
	case KindBundle:
		if m.Bundle == nil {
			return []byte("{}"), nil
		}
		return marshalValue(m.Bundle)
	case KindOther:
		if len(m.Raw) == 0 {
			return []byte("null"), nil
		}
		return m.Raw, nil
	default:
		return nil, fmt.Errorf("multiline: unknown kind %d", int(m.Kind))
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// Arrays holding anything but strings are kept as KindOther.
func (m *Multiline) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("multiline: empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*m = Multiline{Kind: KindText, Text: s}
		return nil
	case '[':
		if lines, ok := stringArray(trimmed); ok {
			*m = Multiline{Kind: KindLines, Lines: lines}
			return nil
		}
	case '{':
		var entries map[string]*Multiline
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		*m = Multiline{Kind: KindBundle, Bundle: entries}
		return nil
	}

	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	*m = Multiline{Kind: KindOther, Raw: raw}
	return nil
}

// stringArray decodes a JSON array whose items are all strings. A null item
// would silently become "" through []string, so items are checked one by one.
func stringArray(data []byte) ([]string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	lines := make([]string, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '"' {
			return nil, false
		}
		if err := json.Unmarshal(item, &lines[i]); err != nil {
			return nil, false
		}
	}
	return lines, true
}

// Clone returns a deep copy of m.
func (m *Multiline) Clone() *Multiline {
	if m == nil {
		return nil
	}
	c := &Multiline{Kind: m.Kind, Text: m.Text}
	if m.Lines != nil {
		c.Lines = make([]string, len(m.Lines))
		copy(c.Lines, m.Lines)
	}
	if m.Bundle != nil {
		c.Bundle = make(map[string]*Multiline, len(m.Bundle))
		for k, v := range m.Bundle {
			c.Bundle[k] = v.Clone()
		}
	}
	if m.Raw != nil {
		c.Raw = make(json.RawMessage, len(m.Raw))
		copy(c.Raw, m.Raw)
	}
	return c
}
