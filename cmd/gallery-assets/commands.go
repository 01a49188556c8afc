package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/cache"
	"github.com/avjpl/gallery-assets-json-generation/internal/cloudinary"
	"github.com/avjpl/gallery-assets-json-generation/internal/config"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/fetcher"
	"github.com/avjpl/gallery-assets-json-generation/internal/manifest"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
	"github.com/avjpl/gallery-assets-json-generation/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func init() {
	configInitCmd.Flags().String("path", "", "Where to write the file (default is ~/.gallery-assets/gallery-assets.yaml)")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify [manifest]",
	Short: "Validate a generated manifest",
	Long: `Loads a manifest and checks that every image has all three sizes, that
each size shares the image's category, and that every category is listed once.
Defaults to the configured output path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path = filepath.Join(cfg.Output.Directory, cfg.Output.Filename)
		}
		return verifyManifest(path, cmd.OutOrStdout())
	},
}

func verifyManifest(path string, out io.Writer) error {
	m, err := manifest.NewLoader().Load(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(out, "%s: OK (%d images, %d categories)\n", path, m.Len(), len(m.Category))
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the configuration after file, .env, environment and flags are applied. Credentials are masked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return printConfig(cfg, cmd.OutOrStdout())
	},
}

func printConfig(cfg *config.Config, out io.Writer) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted()); err != nil {
		return err
	}
	return enc.Close()
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long:  "Writes the default configuration as YAML. Credentials are left empty; keep them in the environment or a .env file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")
		written, err := writeDefaultConfig(path, force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
		return nil
	},
}

// writeDefaultConfig writes config.Default() to path, or to the user config
// file when path is empty
func writeDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return "", err
		}
		path = config.ConfigFilePath()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return "", domain.NewWriteError(path, err)
	}
	return path, nil
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the listing response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *cache.BadgerCache, dir string) error {
			return printCacheStats(c, dir, cmd.OutOrStdout())
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached listing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *cache.BadgerCache, dir string) error {
			if err := c.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", dir)
			return nil
		})
	},
}

// withCache opens the configured cache directory for the duration of fn
func withCache(fn func(c *cache.BadgerCache, dir string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dir := utils.ExpandPath(cfg.Cache.Directory)
	c, err := cache.NewBadgerCache(cache.Options{Directory: dir, Logger: utils.NewDefaultLogger()})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()
	return fn(c, dir)
}

func printCacheStats(c *cache.BadgerCache, dir string, out io.Writer) error {
	stats := c.Stats()
	fmt.Fprintf(out, "Directory: %s\n", dir)
	fmt.Fprintf(out, "Entries:   %d\n", stats["entries"])
	fmt.Fprintf(out, "LSM size:  %d bytes\n", stats["lsm_size"])
	fmt.Fprintf(out, "Vlog size: %d bytes\n", stats["vlog_size"])
	return nil
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and connectivity",
	Long:  "Verifies credentials, Cloudinary reachability and write access to the listing, output and cache directories.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		return runDoctor(ctx, cmd.OutOrStdout())
	},
}

func runDoctor(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "Checking configuration...")
	allPassed := true

	report := func(name string, err error, ok string) {
		if err != nil {
			fmt.Fprintf(out, "  %s: FAILED (%v)\n", name, err)
			allPassed = false
			return
		}
		fmt.Fprintf(out, "  %s: %s\n", name, ok)
	}

	// Check 1: Config file
	cfg, err := config.Load()
	source := "defaults, no file at " + config.ConfigFilePath()
	if used := viper.ConfigFileUsed(); used != "" {
		source = used
	}
	report("Config", err, "OK ("+source+")")
	if err != nil {
		return errors.New("configuration could not be loaded")
	}

	// Check 2: Credentials
	credErr := cfg.RequireCredentials()
	report("Credentials", credErr, "OK ("+cfg.Cloudinary.CloudName+")")

	// Check 3: Cloudinary listing endpoint
	if credErr == nil {
		client, err := fetcher.NewClient(fetcher.ClientOptions{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
		})
		if err != nil {
			report("Cloudinary", err, "")
		} else {
			n, err := checkTag(ctx, client, cfg, cfg.Tags[0])
			report("Cloudinary", err, fmt.Sprintf("OK (%s: %d resources)", cfg.Tags[0], n))
			_ = client.Close()
		}
	}

	// Check 4: Write permissions
	report("Listings directory", checkWritable(cfg.Listings.Directory), "OK ("+cfg.Listings.Directory+")")
	report("Output directory", checkWritable(cfg.Output.Directory), "OK ("+cfg.Output.Directory+")")

	// Check 5: Cache directory
	if cfg.Cache.Enabled {
		dir := utils.ExpandPath(cfg.Cache.Directory)
		report("Cache directory", checkWritable(dir), "OK ("+dir+")")
	}

	fmt.Fprintln(out)
	if !allPassed {
		fmt.Fprintln(out, "Some checks failed. Please resolve the issues above.")
		return errors.New("doctor found problems")
	}
	fmt.Fprintln(out, "All checks passed!")
	return nil
}

// checkTag fetches the listing of tag through the configured list endpoint
func checkTag(ctx context.Context, f domain.Fetcher, cfg *config.Config, tag string) (int, error) {
	urls, err := cloudinary.NewURLBuilder(cfg.Cloudinary.BaseURL, cloudinary.Credentials{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
	})
	if err != nil {
		return 0, err
	}
	url, err := urls.ListURL(tag)
	if err != nil {
		return 0, err
	}
	return checkEndpoint(ctx, f, url)
}

// checkEndpoint fetches one listing and returns its resource count
func checkEndpoint(ctx context.Context, f domain.Fetcher, url string) (int, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	listing, err := domain.DecodeListing(resp.Body)
	if err != nil {
		return 0, err
	}
	return len(listing.Resources), nil
}

// checkWritable reports whether files can be created in dir, or in its
// nearest existing parent when dir does not exist yet
func checkWritable(dir string) error {
	target := dir
	for {
		info, err := os.Stat(target)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", target)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(target)
		if parent == target {
			return err
		}
		target = parent
	}

	f, err := os.CreateTemp(target, ".gallery-assets-write-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
