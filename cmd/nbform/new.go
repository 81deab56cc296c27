package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/nbform"
	"github.com/aretw0/nbform/pkg/core"
)

var newCmd = &cobra.Command{
	Use:   "new [ids...]",
	Short: "Create empty notebooks",
	Long: `New creates a notebook with a single empty python code cell for every ID.
IDs are paths relative to the notebook directory, without the .ipynb extension.
Either all notebooks are created or none: an existing ID aborts the command.

Without IDs, the new notebook is printed to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			out, err := nbform.NewTranscoder(options()...).Marshal(nbform.NewNotebook())
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", out)
		}

		_, svc, err := openRepository(false)
		if err != nil {
			return err
		}

		ctx := context.Background()
		err = svc.WithTransaction(ctx, func(tx core.Transaction) error {
			for _, id := range args {
				_, err := tx.Get(ctx, id)
				if err == nil {
					return fmt.Errorf("%w: %s", core.ErrExists, id)
				}
				if !errors.Is(err, core.ErrNotFound) {
					return err
				}
				if err := tx.Save(ctx, id, core.NewNotebook()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, id := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
