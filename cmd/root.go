package cmd

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/folio/cmd/resolve"
	"github.com/lepinkainen/folio/internal/cache"
	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

var (
	runResolve = resolve.Run
	runLookup  = resolve.Lookup
)

// CLI represents the complete command structure for the folio application
type CLI struct {
	// Global flags
	Verbose  bool   `short:"v" help:"Enable debug logging"`
	Config   string `help:"Path to a YAML config file (defaults to ./config.yaml)" type:"path"`
	Provider string `help:"Metadata provider: openlibrary, googlebooks, isbndb, catalog or chain"`

	// Cache flags
	CacheDBFile string `help:"Path to persistent cache SQLite database (memory only when empty)"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)"`

	// Library flags
	LibraryDB string `help:"Path to library SQLite database (default ./folio.db)"`

	Resolve ResolveCmd `cmd:"" help:"Resolve ISBNs to book metadata"`
	Lookup  LookupCmd  `cmd:"" help:"Show full metadata for a single ISBN"`
	Cache   CacheCmd   `cmd:"" help:"Manage the persistent lookup cache"`
}

// ResolveCmd represents the resolve command
type ResolveCmd struct {
	ISBNs      []string `arg:"" optional:"" name:"isbn" help:"ISBN-10 or ISBN-13 identifiers"`
	Input      string   `short:"f" help:"Read ISBNs from a file: one per line, a CSV export, or - for stdin"`
	Column     []string `help:"CSV columns holding ISBNs, highest priority first" default:"ISBN13,ISBN,ISBN10"`
	Format     string   `short:"o" help:"Output format" enum:"table,json,yaml" default:"table"`
	OutputFile string   `help:"Write results to this file instead of stdout"`
	Overwrite  bool     `help:"Replace an existing output file"`
	Save       bool     `help:"Save found books to the library database"`
	NoProgress bool     `help:"Disable the progress bar"`
	Strict     bool     `help:"Exit with an error when any lookup failed"`
}

// LookupCmd represents the lookup command
type LookupCmd struct {
	ISBN   string `arg:"" name:"isbn" help:"ISBN-10 or ISBN-13 identifier"`
	Format string `short:"o" help:"Output format" enum:"table,json,yaml" default:"table"`
}

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Clear cache.ClearCmd `cmd:"" help:"Remove cached lookups"`
	Stats cache.StatsCmd `cmd:"" help:"Show cache statistics"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("folio"),
		kong.Description("Resolve ISBNs to book metadata from public catalogs."),
		kong.UsageOnError(),
	)

	if cli.Verbose {
		initLogging(true)
	}
	if err := readConfigFile(cli.Config); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
	updateGlobalConfig(&cli)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx.BindTo(runCtx, (*context.Context)(nil))

	if err := ctx.Run(); err != nil {
		stop()
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.LoadDotEnv()
	config.SetDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	config.BindEnv()
}

// readConfigFile merges a YAML config file into viper. Without an explicit
// path a missing ./config.yaml is fine.
func readConfigFile(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && stdErrors.As(err, &notFound) {
			slog.Debug("No config file found, using defaults")
			return nil
		}
		return err
	}
	slog.Debug("Loaded config file", "file", viper.ConfigFileUsed())
	return nil
}

func updateGlobalConfig(cli *CLI) {
	// Flags only override config when given
	if cli.Provider != "" {
		viper.Set("resolver.provider", cli.Provider)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("resolver.cache_ttl", cli.CacheTTL)
	}
	if cli.LibraryDB != "" {
		viper.Set("library.dbfile", cli.LibraryDB)
	}
}

// Run methods for each command

func (r *ResolveCmd) Run(ctx context.Context) error {
	return runResolve(ctx, resolve.Options{
		ISBNs:      r.ISBNs,
		InputFile:  r.Input,
		Columns:    r.Column,
		Format:     r.Format,
		OutputFile: r.OutputFile,
		Overwrite:  r.Overwrite,
		Progress:   !r.NoProgress,
		Strict:     r.Strict,
		Save:       r.Save,
		LibraryDB:  viper.GetString("library.dbfile"),
	})
}

func (l *LookupCmd) Run(ctx context.Context) error {
	return runLookup(ctx, resolve.LookupOptions{
		ISBN:   l.ISBN,
		Format: l.Format,
	})
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// stdout is reserved for command output
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
