package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediagrab/pkg/auth"
	"mediagrab/pkg/config"
	"mediagrab/pkg/logger"
)

var (
	// Scrape command flags
	outputDir       string
	scrapeWorkers   int
	concurrent      int
	maxAttempts     int
	overwrite       bool
	blockSubFolders bool
	noTimestamps    bool
	writeMetadata   bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>...",
	Short: "Resolve and download media from one or more URLs",
	Long: `Resolve each URL through its site crawler and download everything it
yields. Album pages fan out into their entries; single-file pages download
directly. Files land under the output directory in folders named after the
accumulated album titles.`,
	Example: `  # Download an album
  mediagrab scrape https://bunkr.su/a/abc123

  # Several URLs, custom output directory
  mediagrab scrape -o ./media https://bunkr.su/a/abc123 https://scrolller.com/r/pics

  # More parallelism
  mediagrab scrape --workers 10 --concurrent 6 https://bunkr.su/a/abc123`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 0, "number of scrape workers")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	scrapeCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "maximum download attempts per file")
	scrapeCmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing files instead of renaming")
	scrapeCmd.Flags().BoolVar(&blockSubFolders, "block-sub-folders", false, "flatten nested album folders")
	scrapeCmd.Flags().BoolVar(&noTimestamps, "no-timestamps", false, "do not stamp files with discovered dates")
	scrapeCmd.Flags().BoolVar(&writeMetadata, "metadata", false, "write a JSON metadata sidecar next to each file")
}

// loadRuntimeConfig loads configuration, applies command flags and stored
// site secrets, and initializes logging.
func loadRuntimeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.BaseDirectory = outputDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Scraper.Workers = scrapeWorkers
	}
	if cmd.Flags().Changed("concurrent") {
		cfg.Download.ConcurrentDownloads = concurrent
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg.Download.MaxAttempts = maxAttempts
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Output.OverwriteExisting = overwrite
	}
	if cmd.Flags().Changed("block-sub-folders") {
		cfg.Output.BlockSubFolders = blockSubFolders
	}
	if cmd.Flags().Changed("no-timestamps") {
		cfg.Download.DisableTimestamps = noTimestamps
	}
	if cmd.Flags().Changed("metadata") {
		cfg.Download.WriteMetadata = writeMetadata
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Initialize(&logger.Config{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return nil, err
	}

	// stored secrets fill in sites the config leaves blank
	if manager, err := auth.NewManager(); err == nil {
		if stored, err := manager.List(); err == nil {
			for _, secrets := range stored {
				for key, value := range secrets.Values {
					if cfg.SiteSecret(secrets.Site, key) == "" {
						cfg.SetSiteSecret(secrets.Site, key, value)
					}
				}
			}
		}
	}
	return cfg, nil
}

// signalContext cancels on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.submitURLs(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary := a.run(ctx)
	printSummary(summary)

	if summary.Failed > 0 {
		fmt.Println("Some downloads failed. Run 'mediagrab retry' to try them again.")
	}
	return nil
}
