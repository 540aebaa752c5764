package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loraset/cache"
	"loraset/core/labeling"
	"loraset/logger"
)

var (
	labelFormatLyrics bool
	labelNoCache      bool
	labelTemperature  float64
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Caption every sample with the understanding engines",
	Long: `Label sends each sample's audio to the DiT engine for audio codes and asks the
LLM engine for a caption plus bpm, key, time signature, language and lyrics.
Audio codes are cached in Redis when it is reachable. A failed sample is reported
and skipped; the rest of the batch continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := requireSamples()
		if err != nil {
			return err
		}

		var encoder labeling.AudioEncoder = newDiTClient()
		if !labelNoCache {
			if err := cache.ConnectRedis(cfg); err != nil {
				logger.Warn("audio codes cache disabled", logger.ErrorField(err))
			} else {
				defer cache.CloseRedis()
				encoder = labeling.NewCachingEncoder(encoder, cache.NewCodesCache(cache.RedisClient, cfg.CodesCacheTTL))
			}
		}
		orch := labeling.NewOrchestrator(encoder, newLLMClient())

		opts := labeling.DefaultOptions()
		opts.FormatLyrics = labelFormatLyrics
		opts.Constrained = cfg.LabelConstrained
		opts.Temperature = cfg.LabelTemperature
		if cmd.Flags().Changed("temperature") {
			opts.Temperature = labelTemperature
		}
		opts.Progress = func(msg string) { logger.Debug(msg) }

		bar := newBatchBar("Labeling", b.SampleCount())
		opts.Step = bar.step
		report, runErr := orch.LabelAll(cmd.Context(), b.Samples(), opts)
		bar.finish()

		// Keep whatever was labeled, even when the batch was interrupted.
		if err := saveSession(b); err != nil {
			return err
		}
		for _, f := range report.Failures() {
			fmt.Printf("  %s %s\n", f.Filename, f.Status.String())
		}
		if runErr != nil {
			return runErr
		}
		return printStatus(report.Status(), nil)
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
	labelCmd.Flags().BoolVar(&labelFormatLyrics, "format-lyrics", false, "let the LM rewrite sidecar lyrics instead of keeping them raw")
	labelCmd.Flags().BoolVar(&labelNoCache, "no-cache", false, "do not use the Redis audio codes cache")
	labelCmd.Flags().Float64Var(&labelTemperature, "temperature", labeling.DefaultTemperature, "LM sampling temperature")
}
