package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jchantrell/resgrab/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	dbPath      string
	outputDir   string
	sourceType  string
	workers     int
	jpegQuality int
	cacheDir    string
	logLevel    string
	logFormat   string
	noProgress  bool
)

var rootCmd = &cobra.Command{
	Use:   "resgrab",
	Short: "Embedded image extraction tool",
	Long: `resgrab finds the images embedded in a container and saves them to disk.

A container is a directory, a zip archive or a bundle archive set. Every blob
inside it is sniffed for icons, cursors and raster images, and .NET .resources
tables are unpacked including their image lists. Catalogs can also be indexed
into a SQLite database and queried later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("database") {
			cfg.Database = dbPath
		}
		if cmd.Flags().Changed("output") {
			cfg.Output = outputDir
		}
		if cmd.Flags().Changed("source-type") {
			cfg.SourceType = sourceType
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		if cmd.Flags().Changed("jpeg-quality") {
			cfg.JPEGQuality = jpegQuality
		}
		if cmd.Flags().Changed("cache-dir") {
			cfg.CacheDir = cacheDir
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}

		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level: level,
			})
		}

		slog.SetDefault(slog.New(handler))

		slog.Debug("Configuration",
			"output", cfg.Output,
			"database", cfg.Database,
			"source_type", cfg.SourceType,
			"workers", cfg.Workers,
			"jpeg_quality", cfg.JPEGQuality,
			"cache_dir", cfg.CacheDir,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is resgrab.yaml in $HOME or pwd)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "index database file path")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory extracted images are written to")
	rootCmd.PersistentFlags().StringVar(&sourceType, "source-type", "", "container type (auto, dir, zip, bundle)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of blobs sniffed in parallel")
	rootCmd.PersistentFlags().IntVar(&jpegQuality, "jpeg-quality", 0, "quality used when re-encoding JPEG output (1-100)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "download cache directory (default ~/.resgrab/cache)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
