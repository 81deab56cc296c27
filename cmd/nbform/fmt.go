package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [ids...]",
	Short: "Rewrite notebooks in canonical file form",
	Long: `Fmt re-encodes notebooks the way Jupyter writes them, splitting sources
and output data into lines. Without IDs every notebook in the directory is
formatted. Files already in canonical form are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, svc, err := openRepository(true)
		if err != nil {
			return err
		}
		ctx := context.Background()

		ids := args
		if len(ids) == 0 {
			if ids, err = svc.ListNotebooks(ctx); err != nil {
				return err
			}
		}

		changed := 0
		for _, id := range ids {
			ok, err := repo.Format(ctx, id)
			if err != nil {
				return err
			}
			if ok {
				changed++
				fmt.Fprintf(cmd.OutOrStdout(), "formatted %s\n", id)
			}
		}
		slog.Debug("format finished", "checked", len(ids), "changed", changed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
}
