package main

import (
	"fmt"
	"log/slog"

	"github.com/jchantrell/resgrab/internal/export"
	"github.com/jchantrell/resgrab/internal/index"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [container]",
	Short: "Record the images of a container in the index database",
	Long: `Index loads a container and records one row per embedded image in the
SQLite index. Rows previously indexed for the same container are replaced.`,
	Args: containerArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		name, catalog, err := loadCatalog(ctx, args)
		if err != nil {
			return err
		}
		defer catalog.Close()

		store, err := index.Open(ctx, index.DefaultOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		exporter := export.NewExporter(&export.ExporterOptions{JPEGQuality: cfg.JPEGQuality})
		count, err := store.ReplaceCatalog(ctx, name, catalog, exporter)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", name, err)
		}

		slog.Info("Container indexed", "container", name, "entries", count, "database", store.Path())
		fmt.Printf("%d image(s) indexed from %s\n", count, name)
		fmt.Println("Try running: resgrab query")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	addSourceFlags(indexCmd)
}
