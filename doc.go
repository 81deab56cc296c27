// Package nbform reads and writes Jupyter notebooks.
//
// A notebook exists in two forms. On disk (file form, IPEP 17) every cell
// source and output data field is a list of line fragments, each keeping its
// trailing newline. In memory (model form) the same fields are single strings.
// Decode turns file contents into model form, Encode turns a model-form
// notebook back into file form. Everything else in the document is carried
// through untouched.
//
// Usage:
//
//	nb, err := nbform.Decode(contents)
//	nb.Cells[0].Source = nbform.Text("print('hi')")
//	fileForm, err := nbform.Encode(nb)
//
// For a directory of notebooks, Open returns a service backed by the
// filesystem adapter:
//
//	svc, err := nbform.Open("./notebooks", nbform.WithStrict(true))
//	nb, err := svc.GetNotebook(ctx, "analysis")
package nbform
