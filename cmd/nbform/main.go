// Command nbform converts Jupyter notebooks between file form and model form
// and manages a directory of notebooks.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
