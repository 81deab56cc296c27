package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	listLong bool
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the notebooks in the directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, svc, err := openRepository(true)
		if err != nil {
			return err
		}
		ctx := context.Background()
		out := cmd.OutOrStdout()

		if !listLong {
			ids, err := svc.ListNotebooks(ctx)
			if err != nil {
				return err
			}
			if listJSON {
				if ids == nil {
					ids = []string{}
				}
				return json.NewEncoder(out).Encode(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		summaries, err := svc.Summaries(ctx)
		if err != nil {
			return err
		}
		if listJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(summaries)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCELLS\tLANGUAGE\tMODIFIED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, s.Cells, s.Language, s.LastModified.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "show cell count, language and modification time")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
