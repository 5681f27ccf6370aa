package main

import (
	"fmt"
	"os"

	"github.com/jchantrell/resgrab/internal/export"
	"github.com/jchantrell/resgrab/internal/utils"
	"github.com/spf13/cobra"
)

var saveFormat string

var saveCmd = &cobra.Command{
	Use:   "save <container> <entry> <destination>",
	Short: "Save a single embedded image",
	Long: `Save writes one entry of a container to the destination path. The
extension of the destination, or --format, picks the output encoding. Raster
images can be converted to png, jpg, gif or bmp; any extension that does not
suit the entry is replaced with its canonical one.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, catalog, err := loadCatalog(cmd.Context(), args[:1])
		if err != nil {
			return err
		}
		defer catalog.Close()

		for _, entry := range catalog.Entries() {
			if entry.Name() != args[1] {
				continue
			}

			exporter := export.NewExporter(&export.ExporterOptions{JPEGQuality: cfg.JPEGQuality})
			written, err := exporter.ExportEntry(entry, args[2], saveFormat)
			if err != nil {
				return err
			}

			size, err := fileSize(written)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s to %s (%s)\n", entry.Name(), written, utils.Bytes(size))
			return nil
		}

		return fmt.Errorf("no entry named %q in %s", args[1], args[0])
	},
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("checking %s: %w", path, err)
	}
	return info.Size(), nil
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVar(&saveFormat, "format", "", "output extension, e.g. png or .jpg")
}
