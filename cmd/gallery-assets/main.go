package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/app"
	"github.com/avjpl/gallery-assets-json-generation/internal/config"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
	"github.com/avjpl/gallery-assets-json-generation/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gallery-assets",
	Short: "Generate the gallery asset manifest from Cloudinary",
	Long: `gallery-assets fetches the Cloudinary resource listing of every configured
category tag, derives large, medium and small delivery URLs for each image,
and writes them to a single JSON manifest for the gallery front end.

Credentials are read from CLOUD_NAME, API_KEY and API_SECRET (or a .env file).`,
	Version:       version.Short(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gallery-assets.yaml or ~/.gallery-assets/gallery-assets.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringSliceP("tags", "t", config.DefaultTags, "Category tags to fetch")
	rootCmd.PersistentFlags().String("listings", config.DefaultListingsDir, "Directory for fetched listings")
	rootCmd.PersistentFlags().StringP("output", "o", config.DefaultOutputDir, "Manifest output directory")
	rootCmd.PersistentFlags().String("filename", config.DefaultOutputFilename, "Manifest file name")

	// Fetch flags
	rootCmd.PersistentFlags().String("policy", string(config.DefaultFetchPolicy), "What a failed tag does to the run (fail-fast or best-effort)")
	rootCmd.PersistentFlags().IntP("workers", "j", config.DefaultFetchWorkers, "Number of concurrent listing fetches")
	rootCmd.PersistentFlags().Duration("timeout", config.DefaultFetchTimeout, "Per-listing request timeout")
	rootCmd.PersistentFlags().Int("retries", config.DefaultMaxRetries, "Retries for transient HTTP failures")
	rootCmd.PersistentFlags().String("user-agent", "", "Custom User-Agent")

	// Cache flags
	rootCmd.PersistentFlags().Bool("cache", config.DefaultCacheEnabled, "Cache listing responses between runs")
	rootCmd.PersistentFlags().Duration("cache-ttl", config.DefaultCacheTTL, "Cache TTL")

	// Run flags
	rootCmd.Flags().Bool("lenient", false, "Skip resources without a category instead of failing")
	rootCmd.Flags().Bool("dry-run", false, "Build the manifest without writing it")
	rootCmd.Flags().Bool("no-progress", false, "Hide progress bars")

	// Bind flags to viper
	_ = viper.BindPFlag("tags", rootCmd.PersistentFlags().Lookup("tags"))
	_ = viper.BindPFlag("listings.directory", rootCmd.PersistentFlags().Lookup("listings"))
	_ = viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("output.filename", rootCmd.PersistentFlags().Lookup("filename"))
	_ = viper.BindPFlag("fetch.policy", rootCmd.PersistentFlags().Lookup("policy"))
	_ = viper.BindPFlag("fetch.workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("fetch.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("fetch.max_retries", rootCmd.PersistentFlags().Lookup("retries"))
	_ = viper.BindPFlag("fetch.user_agent", rootCmd.PersistentFlags().Lookup("user-agent"))
	_ = viper.BindPFlag("cache.enabled", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("cache.ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("output.dry_run", rootCmd.Flags().Lookup("dry-run"))

	// Add subcommands
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if lenient, _ := cmd.Flags().GetBool("lenient"); lenient {
		cfg.Derive.Strict = false
	}

	log = utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("Shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	noProgress, _ := cmd.Flags().GetBool("no-progress")

	return generate(ctx, app.Options{
		CommonOptions: domain.CommonOptions{
			Verbose:  verbose,
			DryRun:   cfg.Output.DryRun,
			Progress: !noProgress && !verbose,
		},
		Config: cfg,
		Logger: log,
	}, cmd.OutOrStdout())
}

// generate runs one pipeline and prints a one-line summary to out
func generate(ctx context.Context, opts app.Options, out io.Writer) error {
	pipeline, err := app.NewPipeline(opts)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	verb := "Wrote"
	if result.DryRun {
		verb = "Would write"
	}
	fmt.Fprintf(out, "%s %d images in %d categories to %s (%s)\n",
		verb, result.Bundles, len(result.Categories), result.OutputPath,
		result.Duration.Round(time.Millisecond))
	if len(result.FailedTags) > 0 {
		fmt.Fprintf(out, "Failed tags: %v\n", result.FailedTags)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d resources without a category\n", len(result.Skipped))
	}
	return nil
}
