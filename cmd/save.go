package cmd

import (
	"github.com/spf13/cobra"

	"loraset/core/review"
	"loraset/logger"
	"loraset/model"
)

var (
	saveOutput  string
	saveName    string
	saveCatalog bool
	exportPath  string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the dataset file with the tag applied to every caption",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		st, err := b.Save(saveOutput, saveName)
		if err != nil {
			return printStatus(st, err)
		}
		if err := saveSession(b); err != nil {
			return err
		}
		if saveCatalog {
			if err := syncCatalog(cmd.Context(), b, nil); err != nil {
				logger.Warn("catalog update failed", logger.ErrorField(err))
			}
		}
		return printStatus(st, nil)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <dataset.json>",
	Short: "Replace the working session with a saved dataset file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		st, err := b.Load(args[0])
		if err != nil {
			return printStatus(st, err)
		}
		if err := saveSession(b); err != nil {
			return err
		}
		return printStatus(st, nil)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the working session to an XLSX review sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := requireSamples()
		if err != nil {
			return err
		}
		if err := review.ExportSheet(exportPath, b.Metadata(), b.Samples()); err != nil {
			return err
		}
		return printStatus(model.Success("Review sheet written to %s (%d samples)", exportPath, b.SampleCount()), nil)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd, loadCmd, exportCmd)

	saveCmd.Flags().StringVarP(&saveOutput, "output", "o", "dataset.json", "dataset file")
	saveCmd.Flags().StringVarP(&saveName, "name", "n", "", "rename the dataset")
	saveCmd.Flags().BoolVar(&saveCatalog, "catalog", false, "also record the samples in the catalog database")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "review.xlsx", "sheet file")
}

