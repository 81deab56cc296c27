package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/nbform"
	"github.com/aretw0/nbform/pkg/adapters/fs"
	"github.com/aretw0/nbform/pkg/core"
)

// readInput reads the file named by the first argument, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Debug("wrote output", "path", path, "bytes", len(data))
	return nil
}

// marshalModel renders a model-form notebook with the same layout as .ipynb files.
func marshalModel(nb *core.Notebook) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", " ")
	if err := encoder.Encode(nb); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serviceOptions() []core.ServiceOption {
	opts := []core.ServiceOption{core.WithServiceLogger(slog.Default())}
	if size := cfg.GetInt("event_buffer"); size > 0 {
		opts = append(opts, core.WithEventBufferSize(size))
	}
	return opts
}

// openRepository opens the notebook directory with the configured options.
func openRepository(mustExist bool) (*fs.Repository, *core.Service, error) {
	dir, err := notebookDir()
	if err != nil {
		return nil, nil, err
	}

	repo, err := nbform.Init(dir, append(options(), nbform.WithMustExist(mustExist))...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	fsRepo, ok := repo.(*fs.Repository)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected repository type %T", repo)
	}
	return fsRepo, core.NewService(repo, serviceOptions()...), nil
}
