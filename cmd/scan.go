package cmd

import (
	"github.com/spf13/cobra"
)

var scanName string

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a folder of audio files into a new working session",
	Long: `Scan replaces the working session with one sample per audio file found under dir
(wav, mp3, flac, ogg, opus). A .txt file with the same base name is loaded as the
track's lyrics and marks it as vocal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		if scanName != "" {
			b.SetName(scanName)
		}
		report, err := b.ScanDirectory(args[0])
		if err != nil {
			return err
		}
		if err := saveSession(b); err != nil {
			return err
		}
		return printStatus(report.Status(), nil)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanName, "name", "n", "", "dataset name")
}
