package main

import (
	"fmt"
	"strings"

	"github.com/jchantrell/resgrab/internal/export"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [container]",
	Short: "List the images embedded in a container",
	Long: `List loads a container and prints one line per embedded image with its
kind, size, pixel format, resolution and content digest.`,
	Args: containerArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, catalog, err := loadCatalog(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer catalog.Close()

		if catalog.Len() == 0 {
			fmt.Println("No embedded images found")
			return nil
		}

		exporter := export.NewExporter(&export.ExporterOptions{JPEGQuality: cfg.JPEGQuality})

		fmt.Printf("%-32s %-7s %-9s %-11s %-15s %-13s %-15s %s\n",
			"Name", "Kind", "Format", "Size", "PixelFormat", "DPI", "Inches", "Digest")
		fmt.Println(strings.Repeat("-", 120))

		for _, entry := range catalog.Entries() {
			details, err := entry.Details()
			if err != nil {
				fmt.Printf("%-32s %-7s decode failed: %v\n", entry.Name(), entry.Kind(), err)
				continue
			}

			data := entry.RawBytes()
			if data == nil {
				if data, _, err = exporter.Encode(entry); err != nil {
					return fmt.Errorf("encoding %s: %w", entry.Name(), err)
				}
			}
			dgst := digest.FromBytes(data)

			fmt.Printf("%-32s %-7s %-9s %-11s %-15s %-13s %-15s %s\n",
				details.Name,
				details.Kind,
				details.Format,
				fmt.Sprintf("%dx%d", details.Width, details.Height),
				details.PixelFormat,
				fmt.Sprintf("%.0fx%.0f", details.HorizontalDPI, details.VerticalDPI),
				fmt.Sprintf("%.2fx%.2f", details.PhysicalWidth, details.PhysicalHeight),
				dgst.Encoded()[:12])
		}

		stats := catalog.Stats()
		fmt.Printf("\n%d image(s) in %d blob(s), %d unrecognized, %d animated skipped\n",
			catalog.Len(), stats.Blobs, stats.Unrecognized, stats.Animated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	addSourceFlags(listCmd)
}
