package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/nbform"
)

var encodeOutput string

var encodeCmd = &cobra.Command{
	Use:   "encode [file|-]",
	Short: "Print a notebook in file form (sources and data as lists of lines)",
	Long: `Encode reads a notebook in either form and writes it the way Jupyter
stores .ipynb files: keys sorted, one-space indent, multi-line fields split
into lines that keep their trailing newline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		t := nbform.NewTranscoder(options()...)
		nb, err := t.Decode(data)
		if err != nil {
			return err
		}
		out, err := t.Marshal(nb)
		if err != nil {
			return err
		}
		return writeOutput(cmd, encodeOutput, out)
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(encodeCmd)
}
