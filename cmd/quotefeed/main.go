package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/quotefeed/internal/cache"
	"github.com/TobiSchelling/quotefeed/internal/config"
	"github.com/TobiSchelling/quotefeed/internal/database"
	"github.com/TobiSchelling/quotefeed/internal/mix"
	"github.com/TobiSchelling/quotefeed/internal/retrieval"
	"github.com/TobiSchelling/quotefeed/internal/server"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
	"github.com/TobiSchelling/quotefeed/internal/upstream"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "quotefeed",
	Short:   "Browse inspirational quotes from the terminal",
	Long:    "quotefeed fetches quotes from a remote endpoint and RSS feeds, ranks them by category, mood, topic or tag, and keeps favorites, your own quotes and a viewing history locally.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := config.LoadEnv(".env"); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
		if cfg.Quiet() && !verbose {
			log.SetOutput(io.Discard)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("quotefeed", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/quotefeed/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the quotes endpoint URL (or export QUOTES_API_URL) and optional RSS feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and the configured quote sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Sources:")
		if u := cfg.UpstreamURL(); u != "" {
			fmt.Printf("  Endpoint: %s\n", upstream.NewClient(u, cfg.Upstream.Path, 0).URL())
		} else {
			fmt.Printf("  Endpoint: not configured (set upstream.url or $%s)\n", cfg.Upstream.URLEnv)
		}
		fmt.Printf("  RSS feeds: %d\n", len(cfg.Upstream.Feeds))
		fmt.Println("\nCollections:")
		fmt.Printf("  Favorites: %d\n", stats.Favorites)
		fmt.Printf("  My quotes: %d\n", stats.UserQuotes)
		fmt.Printf("  History: %d\n", stats.History)
		fmt.Println("\nMix:")
		fmt.Printf("  Categories: %d\n", stats.MixCategories)
		fmt.Printf("  Active: %t\n", stats.MixActive)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !cmd.Flags().Changed("port") && cfg.Server.Port > 0 {
			servePort = cfg.Server.Port
		}

		srv, err := server.New(a.db, a.svc, a.composer, cfg.FeedOptions())
		if err != nil {
			return err
		}
		fmt.Printf("Starting server at http://localhost:%d\n", servePort)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(srv, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// app bundles the store and the retrieval stack built from cfg.
type app struct {
	db       *database.DB
	tables   *taxonomy.Tables
	svc      *retrieval.Service
	composer *mix.Composer
}

func openApp() (*app, error) {
	tables, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		return nil, err
	}
	src, err := buildSource()
	if err != nil {
		return nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	svc := retrieval.New(cache.New(src), tables, cfg.RetrievalOptions(), nil)
	return &app{
		db:       db,
		tables:   tables,
		svc:      svc,
		composer: mix.New(svc, db, nil),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// buildSource combines the JSON endpoint and the configured RSS feeds.
func buildSource() (upstream.Source, error) {
	var sources upstream.Multi
	if u := cfg.UpstreamURL(); u != "" {
		client := upstream.NewClient(u, cfg.Upstream.Path, cfg.Timeout()).WithUserAgent(cfg.Upstream.UserAgent)
		sources = append(sources, client)
	}
	if feeds := cfg.FeedConfigs(); len(feeds) > 0 {
		sources = append(sources, upstream.NewFeedSource(feeds))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no quote source configured: set upstream.url, $%s or upstream.feeds", cfg.Upstream.URLEnv)
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return sources, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "quotefeed.db")
	return database.Open(dbPath)
}

// commandContext is cancelled on interrupt so long upstream waits can be
// aborted from the terminal.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
