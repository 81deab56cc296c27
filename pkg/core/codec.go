package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Reserved JSON keys. Everything else is opaque.
const (
	keyCells         = "cells"
	keyMetadata      = "metadata"
	keyNBFormat      = "nbformat"
	keyNBFormatMinor = "nbformat_minor"
	keyCellType      = "cell_type"
	keySource        = "source"
	keyOutputs       = "outputs"
	keyLanguage      = "language"
	keyData          = "data"
)

// decodeValue decodes raw with json.Number for numbers so opaque integers keep their precision.
func decodeValue(raw []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	return decoder.Decode(v)
}

// marshalValue encodes v without escaping HTML; notebook outputs are mostly HTML.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// splitObject decodes a JSON object into its raw fields.
func splitObject(data []byte, what string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%s: %w", what, &json.UnmarshalTypeError{Value: "null", Type: reflect.TypeOf(fields)})
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// putExtra stores an opaque field.
func putExtra(extra *Metadata, key string, raw json.RawMessage) error {
	var v any
	if err := decodeValue(raw, &v); err != nil {
		return err
	}
	if *extra == nil {
		*extra = make(Metadata)
	}
	(*extra)[key] = v
	return nil
}

// decodeMetadata decodes a metadata object. A value that is not an object is
// reported as not ok so the caller can keep it as an opaque field instead.
func decodeMetadata(raw json.RawMessage) (Metadata, bool) {
	var m Metadata
	if err := decodeValue(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// payload seeds an output object with the opaque fields.
func payload(extra Metadata) map[string]any {
	out := make(map[string]any, len(extra)+6)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler.
// Fields with an unexpected shape are not rejected: they are kept in Extra.
func (n *Notebook) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data, "notebook")
	if err != nil {
		return err
	}

	*n = Notebook{}
	for key, raw := range fields {
		switch key {
		case keyCells:
			var cells []Cell
			if isNull(raw) {
				if err := putExtra(&n.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			if err := json.Unmarshal(raw, &cells); err != nil {
				var typeErr *json.UnmarshalTypeError
				if !errors.As(err, &typeErr) {
					return fmt.Errorf("cells: %w", err)
				}
				if err := putExtra(&n.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			n.Cells = cells
		case keyMetadata:
			if m, ok := decodeMetadata(raw); ok {
				n.Metadata = m
				continue
			}
			if err := putExtra(&n.Extra, key, raw); err != nil {
				return err
			}
		case keyNBFormat, keyNBFormatMinor:
			var v int
			if err := json.Unmarshal(raw, &v); err != nil {
				if err := putExtra(&n.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			if key == keyNBFormat {
				n.NBFormat = v
			} else {
				n.NBFormatMinor = v
			}
		default:
			if err := putExtra(&n.Extra, key, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Keys come out sorted, as Jupyter writes them.
func (n Notebook) MarshalJSON() ([]byte, error) {
	out := payload(n.Extra)
	if n.Cells != nil {
		out[keyCells] = n.Cells
	}
	if n.Metadata != nil {
		out[keyMetadata] = n.Metadata
	}
	if _, opaque := n.Extra[keyNBFormat]; !opaque {
		out[keyNBFormat] = n.NBFormat
	}
	if _, opaque := n.Extra[keyNBFormatMinor]; !opaque {
		out[keyNBFormatMinor] = n.NBFormatMinor
	}
	return marshalValue(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data, "cell")
	if err != nil {
		return err
	}

	*c = Cell{}
	for key, raw := range fields {
		switch key {
		case keyCellType, keyLanguage:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				if err := putExtra(&c.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			if key == keyCellType {
				c.CellType = s
			} else {
				c.Language = s
			}
		case keySource:
			var m Multiline
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("source: %w", err)
			}
			c.Source = &m
		case keyOutputs:
			var outputs []Output
			if isNull(raw) {
				if err := putExtra(&c.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			if err := json.Unmarshal(raw, &outputs); err != nil {
				var typeErr *json.UnmarshalTypeError
				if !errors.As(err, &typeErr) {
					return fmt.Errorf("outputs: %w", err)
				}
				if err := putExtra(&c.Extra, key, raw); err != nil {
					return err
				}
				continue
			}
			c.Outputs = outputs
		case keyMetadata:
			if m, ok := decodeMetadata(raw); ok {
				c.Metadata = m
				continue
			}
			if err := putExtra(&c.Extra, key, raw); err != nil {
				return err
			}
		default:
			if err := putExtra(&c.Extra, key, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Cell) MarshalJSON() ([]byte, error) {
	out := payload(c.Extra)
	if c.CellType != "" {
		out[keyCellType] = c.CellType
	}
	if c.Source != nil {
		out[keySource] = c.Source
	}
	if c.Outputs != nil {
		out[keyOutputs] = c.Outputs
	}
	if c.Language != "" {
		out[keyLanguage] = c.Language
	}
	if c.Metadata != nil {
		out[keyMetadata] = c.Metadata
	}
	return marshalValue(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Output) UnmarshalJSON(data []byte) error {
	fields, err := splitObject(data, "output")
	if err != nil {
		return err
	}

	*o = Output{}
	for key, raw := range fields {
		if key == keyData {
			var m Multiline
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("data: %w", err)
			}
			o.Data = &m
			continue
		}
		if err := putExtra(&o.Extra, key, raw); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Output) MarshalJSON() ([]byte, error) {
	out := payload(o.Extra)
	if o.Data != nil {
		out[keyData] = o.Data
	}
	return marshalValue(out)
}
