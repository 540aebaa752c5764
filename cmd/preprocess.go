package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loraset/core/audio"
	"loraset/core/preprocess"
	"loraset/logger"
	"loraset/model"
	"loraset/storage"
)

var (
	preprocessOutput      string
	preprocessMaxDuration float64
	preprocessUpload      bool
	preprocessCatalog     bool
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Turn labeled samples into tensor bundles for training",
	Long: `Preprocess decodes every labeled sample, encodes audio, caption and lyrics with
the DiT engine and writes one .safetensors bundle per sample plus manifest.json.
Nothing is written when the engine is not ready or no sample is labeled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := requireSamples()
		if err != nil {
			return err
		}

		pre := preprocess.NewPreprocessor(audio.NewFFmpegProcessor(), newDiTClient())
		pre.SetTokenLengths(cfg.TextMaxLength, cfg.LyricMaxLength)

		opts := preprocess.Options{
			OutputDir:   cfg.PreprocessOutputDir,
			MaxDuration: cfg.MaxDuration,
			Progress:    func(msg string) { logger.Debug(msg) },
		}
		if preprocessOutput != "" {
			opts.OutputDir = preprocessOutput
		}
		if cmd.Flags().Changed("max-duration") {
			opts.MaxDuration = preprocessMaxDuration
		}

		bar := newBatchBar("Preprocessing", b.LabeledCount())
		opts.Step = bar.step
		res, err := pre.Run(cmd.Context(), b.Samples(), b.Metadata(), opts)
		bar.finish()
		if err != nil {
			return printStatus(model.FailureStatus(err), err)
		}
		if err := printStatus(res.Status(), nil); err != nil {
			return err
		}

		if preprocessCatalog {
			if err := syncCatalog(cmd.Context(), b, res.Paths); err != nil {
				logger.Warn("catalog update failed", logger.ErrorField(err))
			}
		}
		if preprocessUpload {
			return uploadManifest(cmd, res.ManifestPath)
		}
		return nil
	},
}

// uploadManifest pushes a finished run to object storage.
func uploadManifest(cmd *cobra.Command, manifestPath string) error {
	store, err := storage.NewBundleStore(cfg)
	if err != nil {
		return err
	}
	res, err := store.UploadRun(cmd.Context(), manifestPath, nil)
	if err != nil {
		return err
	}
	fmt.Printf("%s Uploaded %d objects (%s) to bucket %s\n",
		model.SuccessMark, len(res.Objects), storage.FormatSize(res.Bytes), store.Bucket())
	return nil
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
	preprocessCmd.Flags().StringVarP(&preprocessOutput, "output", "o", "", "output directory (default PREPROCESS_OUTPUT_DIR)")
	preprocessCmd.Flags().Float64Var(&preprocessMaxDuration, "max-duration", preprocess.DefaultMaxDuration, "seconds of audio kept per sample")
	preprocessCmd.Flags().BoolVar(&preprocessUpload, "upload", false, "upload the run to MinIO afterwards")
	preprocessCmd.Flags().BoolVar(&preprocessCatalog, "catalog", false, "record the bundles in the catalog database")
}
