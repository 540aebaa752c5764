package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loraset/core/dataset"
	"loraset/db"
	"loraset/logger"
	"loraset/model"
	"loraset/repository"
)

var (
	catalogDataset      string
	catalogLanguage     string
	catalogLabeled      bool
	catalogInstrumental string
	catalogLimit        int
)

// openCatalog connects the catalog database and migrates its schema.
func openCatalog() (repository.CatalogRepository, error) {
	if db.GormDB == nil {
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, err
		}
		if err := db.AutoMigrateModels(db.GormDB, &model.CatalogEntry{}); err != nil {
			return nil, err
		}
	}
	return repository.NewGormCatalogRepository(db.GormDB), nil
}

// syncCatalog records the session samples and, when given, their tensor bundles.
func syncCatalog(ctx context.Context, b *dataset.Builder, bundles []string) error {
	repo, err := openCatalog()
	if err != nil {
		return err
	}
	meta := b.Metadata()
	n, err := repo.Sync(ctx, meta.Name, b.Samples(), meta.TagPosition)
	if err != nil {
		return fmt.Errorf("catalog sync: %w", err)
	}
	if len(bundles) > 0 {
		if err := repo.AttachBundles(ctx, meta.Name, bundles); err != nil {
			return fmt.Errorf("catalog bundles: %w", err)
		}
	}
	fmt.Printf("Catalog: %d samples recorded for '%s'\n", n, meta.Name)
	return nil
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the sample catalog database",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		db.CloseGormDB()
		logger.Sync()
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Record the working session in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := requireSamples()
		if err != nil {
			return err
		}
		return syncCatalog(cmd.Context(), b, nil)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openCatalog()
		if err != nil {
			return err
		}
		f := model.CatalogFilter{
			Dataset:     catalogDataset,
			Language:    catalogLanguage,
			LabeledOnly: catalogLabeled,
			Limit:       catalogLimit,
		}
		switch catalogInstrumental {
		case "":
		case "yes", "true":
			v := true
			f.Instrumental = &v
		case "no", "false":
			v := false
			f.Instrumental = &v
		default:
			return fmt.Errorf("--instrumental must be yes or no")
		}

		entries, err := repo.List(cmd.Context(), f)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Dataset\tID\tFile\tLabeled\tLanguage\tBundle\tCaption")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\t%s\n",
				e.Dataset, e.SampleID, e.Filename, e.Labeled, e.Language, e.Bundle, e.Caption)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("%d entries\n", len(entries))
		return nil
	},
}

var catalogDatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the datasets recorded in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openCatalog()
		if err != nil {
			return err
		}
		names, err := repo.Datasets(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSyncCmd, catalogListCmd, catalogDatasetsCmd)

	f := catalogListCmd.Flags()
	f.StringVarP(&catalogDataset, "dataset", "d", "", "only this dataset")
	f.StringVar(&catalogLanguage, "language", "", "only this vocal language")
	f.BoolVar(&catalogLabeled, "labeled", false, "only labeled samples")
	f.StringVar(&catalogInstrumental, "instrumental", "", "yes or no")
	f.IntVar(&catalogLimit, "limit", 0, "maximum entries")
}
