package cmd

import (
	"github.com/spf13/cobra"

	"loraset/core/dataset"
	"loraset/logger"
)

var watchSettle string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Rescan a folder into the working session whenever its audio or lyrics change",
	Long: `Watch scans dir once, then rescans it after audio or .txt files stop changing for
the settle delay. Each rescan replaces the session, so labels are lost; use it while
collecting audio, before labeling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		settle, err := parseDuration(watchSettle, dataset.DefaultSettleDelay)
		if err != nil {
			return err
		}
		b, err := openSession()
		if err != nil {
			return err
		}
		rescan := func() error {
			report, err := b.ScanDirectory(dir)
			if err != nil {
				return err
			}
			if err := saveSession(b); err != nil {
				return err
			}
			return printStatus(report.Status(), nil)
		}
		if err := rescan(); err != nil {
			return err
		}

		w, err := dataset.NewWatcher(dir, settle)
		if err != nil {
			return err
		}
		logger.Info("watching for changes", logger.String("dir", dir), logger.Duration("settle", settle))
		err = w.Run(cmd.Context(), func(paths []string) {
			logger.Info("change detected, rescanning", logger.Strings("paths", paths))
			if err := rescan(); err != nil {
				logger.Error("rescan failed", logger.ErrorField(err))
			}
		})
		if cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchSettle, "settle", dataset.DefaultSettleDelay.String(), "quiet period before rescanning")
}
