package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jchantrell/resgrab/internal/index"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List entries recorded in the index database",
	Long: `Query prints the indexed entries, optionally narrowed to one container,
one kind, one content digest or names containing a substring. Matching the
digest across containers finds duplicated images.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var filter index.Filter
		var err error
		if filter.Container, err = cmd.Flags().GetString("container"); err != nil {
			return fmt.Errorf("failed to get container flag: %w", err)
		}
		if filter.Kind, err = cmd.Flags().GetString("kind"); err != nil {
			return fmt.Errorf("failed to get kind flag: %w", err)
		}
		if filter.Digest, err = cmd.Flags().GetString("digest"); err != nil {
			return fmt.Errorf("failed to get digest flag: %w", err)
		}
		if filter.NameLike, err = cmd.Flags().GetString("name"); err != nil {
			return fmt.Errorf("failed to get name flag: %w", err)
		}
		if filter.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
			return fmt.Errorf("failed to get limit flag: %w", err)
		}

		slog.Debug("Query parameters",
			"database", cfg.Database,
			"container", filter.Container,
			"kind", filter.Kind,
			"digest", filter.Digest,
			"name", filter.NameLike,
			"limit", filter.Limit)

		store, err := index.Open(ctx, index.DefaultOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		rows, err := store.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("listing entries: %w", err)
		}

		columns := []string{"container", "position", "name", "kind", "format", "ext", "size", "pixel_format", "dpi", "digest"}
		fmt.Println(strings.Join(columns, "\t"))
		for i, col := range columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(strings.Repeat("-", len(col)))
		}
		fmt.Println()

		for _, row := range rows {
			fmt.Printf("%s\t%d\t%s\t%s\t%s\t%s\t%dx%d\t%s\t%.0fx%.0f\t%s\n",
				row.Container, row.Position, row.Name, row.Kind, row.Format, row.Ext,
				row.Width, row.Height, row.PixelFormat,
				row.HorizontalDPI, row.VerticalDPI, row.Digest)
		}

		fmt.Printf("\n%d row(s)\n", len(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("container", "", "only entries of this container")
	queryCmd.Flags().String("kind", "", "only entries of this kind (icon, cursor, image)")
	queryCmd.Flags().String("digest", "", "only entries with this content digest")
	queryCmd.Flags().String("name", "", "only entries whose name contains this text")
	queryCmd.Flags().Int("limit", 0, "maximum number of rows")
}
