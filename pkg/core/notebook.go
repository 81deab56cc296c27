package core

// Format version written by NewNotebook.
const (
	DefaultNBFormat      = 4
	DefaultNBFormatMinor = 0
	DefaultLanguage      = "python"
)

// NewNotebook returns a notebook holding a single empty python code cell.
func NewNotebook() *Notebook {
	return &Notebook{
		Cells: []Cell{{
			CellType: CellTypeCode,
			Source:   Text(""),
			Outputs:  []Output{},
			Language: DefaultLanguage,
			Metadata: Metadata{},
		}},
		Metadata:      Metadata{},
		NBFormat:      DefaultNBFormat,
		NBFormatMinor: DefaultNBFormatMinor,
	}
}
