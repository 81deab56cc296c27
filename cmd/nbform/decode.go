package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/nbform"
)

var decodeOutput string

var decodeCmd = &cobra.Command{
	Use:   "decode [file|-]",
	Short: "Print a notebook in model form (sources and data as plain strings)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		nb, err := nbform.NewTranscoder(options()...).Decode(data)
		if err != nil {
			return err
		}
		out, err := marshalModel(nb)
		if err != nil {
			return err
		}
		return writeOutput(cmd, decodeOutput, out)
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(decodeCmd)
}
