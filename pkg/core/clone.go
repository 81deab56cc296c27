package core

// Clone returns a deep copy of n. Nil and empty slices keep their distinction.
func (n *Notebook) Clone() *Notebook {
	if n == nil {
		return nil
	}
	c := &Notebook{
		Metadata:      n.Metadata.Clone(),
		NBFormat:      n.NBFormat,
		NBFormatMinor: n.NBFormatMinor,
		Extra:         n.Extra.Clone(),
	}
	if n.Cells != nil {
		c.Cells = make([]Cell, len(n.Cells))
		for i, cell := range n.Cells {
			c.Cells[i] = cell.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of c.
func (c Cell) Clone() Cell {
	out := Cell{
		CellType: c.CellType,
		Source:   c.Source.Clone(),
		Language: c.Language,
		Metadata: c.Metadata.Clone(),
		Extra:    c.Extra.Clone(),
	}
	if c.Outputs != nil {
		out.Outputs = make([]Output, len(c.Outputs))
		for i, o := range c.Outputs {
			out.Outputs[i] = o.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of o.
func (o Output) Clone() Output {
	return Output{Data: o.Data.Clone(), Extra: o.Extra.Clone()}
}

// Clone returns a deep copy of m. A nil map stays nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers JSON decoding produces; scalars are immutable.
func cloneValue(val any) any {
	switch v := val.(type) {
	case Metadata:
		return v.Clone()
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, val := range v {
			l[i] = cloneValue(val)
		}
		return l
	case []string:
		l := make([]string, len(v))
		copy(l, v)
		return l
	case *Multiline:
		return v.Clone()
	default:
		return v
	}
}
