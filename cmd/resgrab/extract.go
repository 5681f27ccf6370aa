package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jchantrell/resgrab/internal/export"
	"github.com/jchantrell/resgrab/internal/utils"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [container]",
	Short: "Save every embedded image of a container to disk",
	Long: `Extract loads a container, or downloads it first with --url, and writes
every embedded image into the output directory.

Icons and cursors are saved byte for byte as .ico and .cur files. PNG, JPEG
and GIF images keep their format. Every other image, including image list
tiles, is saved as BMP.`,
	Args: containerArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		ctx := cmd.Context()

		name, catalog, err := loadCatalog(ctx, args)
		if err != nil {
			return err
		}
		defer catalog.Close()

		if catalog.Len() == 0 {
			slog.Info("The container has no embedded images", "container", name)
			return nil
		}

		exporter := export.NewExporter(&export.ExporterOptions{JPEGQuality: cfg.JPEGQuality})

		progress := utils.NewProgress(catalog.Len(), progressEnabled())
		report, err := exporter.ExportAll(ctx, catalog, cfg.Output, func(current, total int, description string) {
			progress.Update(current, description)
		})
		progress.Finish()
		if err != nil {
			return fmt.Errorf("exporting images: %w", err)
		}

		fmt.Printf("%s image(s) saved to %s\n", utils.Number(int64(len(report.Written))), cfg.Output)
		if len(report.Failed) > 0 {
			fmt.Printf("%d image(s) failed:\n", len(report.Failed))
			for _, failure := range report.Failed {
				fmt.Printf("  %s: %v\n", failure.Entry, failure.Err)
			}
		}
		fmt.Printf("Total duration: %s\n", utils.Duration(time.Since(start)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addSourceFlags(extractCmd)
}
