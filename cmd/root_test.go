package cmd

import (
	"context"
	"os"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/folio/cmd/resolve"
	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCmdState(t *testing.T) {
	origResolve := runResolve
	origLookup := runLookup

	t.Cleanup(func() {
		runResolve = origResolve
		runLookup = origLookup
		viper.Reset()
	})

	viper.Reset()
	config.SetDefaults()
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{"folio"}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("folio"),
		kong.Description("Resolve ISBNs to book metadata from public catalogs."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

func TestUpdateGlobalConfig(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{
		Provider:    "googlebooks",
		CacheDBFile: "/tmp/cache.db",
		CacheTTL:    "12h",
		LibraryDB:   "/tmp/folio.db",
	}

	updateGlobalConfig(cli)

	assert.Equal(t, "googlebooks", config.ProviderName())
	assert.Equal(t, "/tmp/cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "12h", viper.GetString("resolver.cache_ttl"))
	assert.Equal(t, "/tmp/folio.db", viper.GetString("library.dbfile"))
}

func TestUpdateGlobalConfigKeepsConfiguredValues(t *testing.T) {
	resetCmdState(t)
	viper.Set("resolver.provider", "isbndb")

	updateGlobalConfig(&CLI{})

	assert.Equal(t, "isbndb", config.ProviderName())
	assert.Equal(t, "", viper.GetString("cache.dbfile"))
	assert.Equal(t, "./folio.db", viper.GetString("library.dbfile"))
}

func TestResolveCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "--provider", "chain", "resolve", "9780134685991", "0134685997", "-o", "json", "--save", "--strict")

	assert.Equal(t, "chain", cli.Provider)
	assert.Equal(t, []string{"9780134685991", "0134685997"}, cli.Resolve.ISBNs)
	assert.Equal(t, "json", cli.Resolve.Format)
	assert.True(t, cli.Resolve.Save)
	assert.True(t, cli.Resolve.Strict)
	assert.False(t, cli.Resolve.NoProgress)
	assert.Equal(t, []string{"ISBN13", "ISBN", "ISBN10"}, cli.Resolve.Column)
}

func TestResolveCommandFromFile(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t, "resolve", "-f", "books.csv", "--column", "isbn_a,isbn_b", "--no-progress")

	assert.Equal(t, "resolve", ctx.Command())
	assert.Equal(t, "books.csv", cli.Resolve.Input)
	assert.Equal(t, []string{"isbn_a", "isbn_b"}, cli.Resolve.Column)
	assert.True(t, cli.Resolve.NoProgress)
	assert.Equal(t, "table", cli.Resolve.Format)
}

func TestLookupCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "lookup", "978-0-13-468599-1", "--format", "yaml")

	assert.Equal(t, "978-0-13-468599-1", cli.Lookup.ISBN)
	assert.Equal(t, "yaml", cli.Lookup.Format)
}

func TestCacheCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, ctx := parseCLI(t, "--cache-db-file", "cache.db", "cache", "clear", "--expired")

	assert.Equal(t, "cache clear", ctx.Command())
	assert.Equal(t, "cache.db", cli.CacheDBFile)
	assert.True(t, cli.Cache.Clear.ExpiredOnly)
}

func TestResolveCmdRunPassesOptions(t *testing.T) {
	resetCmdState(t)
	viper.Set("library.dbfile", "/tmp/library.db")

	var got resolve.Options
	runResolve = func(ctx context.Context, opts resolve.Options) error {
		got = opts
		return nil
	}

	cmd := &ResolveCmd{
		ISBNs:      []string{"9780134685991"},
		Input:      "list.txt",
		Column:     []string{"ISBN"},
		Format:     "yaml",
		Save:       true,
		NoProgress: true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	assert.Equal(t, []string{"9780134685991"}, got.ISBNs)
	assert.Equal(t, "list.txt", got.InputFile)
	assert.Equal(t, []string{"ISBN"}, got.Columns)
	assert.Equal(t, "yaml", got.Format)
	assert.True(t, got.Save)
	assert.False(t, got.Progress)
	assert.Equal(t, "/tmp/library.db", got.LibraryDB)
}

func TestLookupCmdRunPassesOptions(t *testing.T) {
	resetCmdState(t)

	var got resolve.LookupOptions
	runLookup = func(ctx context.Context, opts resolve.LookupOptions) error {
		got = opts
		return nil
	}

	cmd := &LookupCmd{ISBN: "0134685997", Format: "json"}
	require.NoError(t, cmd.Run(context.Background()))

	assert.Equal(t, "0134685997", got.ISBN)
	assert.Equal(t, "json", got.Format)
}

func TestReadConfigFile(t *testing.T) {
	resetCmdState(t)
	env := testutil.NewTestEnv(t)
	env.Chdir(".")

	t.Run("missing default config is fine", func(t *testing.T) {
		require.NoError(t, readConfigFile(""))
	})

	t.Run("explicit config is merged", func(t *testing.T) {
		env.WriteFileString("folio.yaml", "resolver:\n  provider: googlebooks\n  max_concurrent_requests: 8\n")
		require.NoError(t, readConfigFile(env.Path("folio.yaml")))

		assert.Equal(t, "googlebooks", config.ProviderName())
		assert.Equal(t, 8, viper.GetInt("resolver.max_concurrent_requests"))
		assert.Equal(t, 3, viper.GetInt("resolver.retry_attempts"))
	})

	t.Run("explicit config must exist", func(t *testing.T) {
		require.Error(t, readConfigFile(env.Path("missing.yaml")))
	})
}
