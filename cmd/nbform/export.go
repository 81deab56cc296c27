package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Render a stored notebook in another format",
	Long: `Export renders a notebook from the directory with the serializer registered
for the given format. "yaml" writes model form, where sources read as block
text; "json" and "ipynb" write file form.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _, err := openRepository(true)
		if err != nil {
			return err
		}

		data, err := repo.Export(context.Background(), args[0], exportFormat)
		if err != nil {
			return err
		}
		return writeOutput(cmd, exportOutput, data)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "target format (yaml, yml, json, ipynb)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
