package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/nbform/pkg/adapters/fs"
)

// ConfigFile is the name of the optional configuration file marking a notebook root.
const ConfigFile = "nbform.yaml"

// FindRoot looks upwards from startDir for a notebook root, marked by a
// .nbform directory or an nbform.yaml file, and returns its absolute path.
// The nearest marker wins.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if isRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no notebook root found above %s", abs)
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, fs.DefaultSystemDir)); err == nil && info.IsDir() {
		return true
	}
	info, err := os.Stat(filepath.Join(dir, ConfigFile))
	return err == nil && info.Mode().IsRegular()
}
