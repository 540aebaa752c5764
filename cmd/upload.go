package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loraset/model"
	"loraset/repository"
	"loraset/storage"
)

var uploadDataset string

var uploadCmd = &cobra.Command{
	Use:   "upload <manifest.json>",
	Short: "Upload a preprocessed run to MinIO",
	Long: `Upload copies every bundle listed in the manifest, then the manifest itself, to
<bucket>/<prefix>/<dataset>/. With --dataset the saved dataset file goes along.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := args[0]
		manifest, err := repository.LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		var total int64
		for _, f := range append(append([]string{}, manifest.Samples...), manifestPath) {
			info, err := os.Stat(f)
			if err != nil {
				return fmt.Errorf("stat %s: %v: %w", f, err, model.ErrIO)
			}
			total += info.Size()
		}

		store, err := storage.NewBundleStore(cfg)
		if err != nil {
			return err
		}

		p, bar := newBytesBar("Uploading", total)
		res, err := store.UploadRun(cmd.Context(), manifestPath, func(object string, size int64) {
			bar.IncrInt64(size)
		})
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
		if err != nil {
			return err
		}

		if uploadDataset != "" {
			key, err := store.UploadDataset(cmd.Context(), manifest.Metadata.Name, uploadDataset)
			if err != nil {
				return err
			}
			res.Objects = append(res.Objects, key)
		}
		return printStatus(model.Success("Uploaded %d objects (%s) to bucket %s",
			len(res.Objects), storage.FormatSize(res.Bytes), store.Bucket()), nil)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDataset, "dataset", "", "dataset file to upload with the run")
}
