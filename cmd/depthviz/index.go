package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/platform"
)

var (
	indexDataset string
	indexRoot    string
	indexDB      string
	indexArchive string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index extracted frames of a dataset",
	Long: `Scans <root>/<split>/<clip>/<time>.<png|jpg|webp> and records every frame
in the sqlite frame index. With --archive the bundle is unpacked into root first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db := indexDB
		if db == "" {
			db = cfg.IndexPath
		}
		root := indexRoot
		if root == "" {
			root = filepath.Join(platform.GetDataDir(), "datasets", indexDataset)
		}
		log := logger.WithField("dataset", indexDataset)

		if indexArchive != "" {
			archive, err := fetchArchive(cmd.Context(), indexArchive)
			if err != nil {
				return err
			}
			n, err := dataset.Unpack(archive, root)
			if err != nil {
				return err
			}
			log.Infof("unpacked %d files into %s", n, root)
		}

		ix, err := dataset.OpenIndex(db)
		if err != nil {
			return err
		}
		defer ix.Close()
		n, err := ix.Build(cmd.Context(), indexDataset, root)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", root, err)
		}
		log.Infof("indexed %d frames into %s", n, db)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexDataset, "dataset", "d", "", "Dataset name")
	indexCmd.Flags().StringVarP(&indexRoot, "root", "r", "", "Frame directory (default: data directory/datasets/<dataset>)")
	indexCmd.Flags().StringVar(&indexDB, "db", "", "Frame index path (default: config indexPath)")
	indexCmd.Flags().StringVarP(&indexArchive, "archive", "a", "", "Unpack this .zip, .7z or .tar.gz (path or URL) into root before indexing")
	indexCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(indexCmd)
}

// fetchArchive downloads URL archives into the data directory and returns the
// local path. Local paths are returned unchanged.
func fetchArchive(ctx context.Context, archive string) (string, error) {
	if !dataset.IsURL(archive) {
		return archive, nil
	}
	dir := filepath.Join(platform.GetDataDir(), "downloads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	dest := filepath.Join(dir, dataset.ArchiveName(archive))

	bar := progressbar.DefaultBytes(-1, "Downloading "+filepath.Base(dest))
	err := dataset.Fetch(ctx, archive, dest, func(done, total int64) {
		if total > 0 && bar.GetMax64() != total {
			bar.ChangeMax64(total)
		}
		_ = bar.Set64(done)
	})
	_ = bar.Finish()
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", archive, err)
	}
	return dest, nil
}
