package testutil

import (
	"testing"

	"github.com/lepinkainen/folio/internal/config"
	"github.com/spf13/viper"
)

// ResetConfig resets viper to the registered defaults and resets it again
// when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	config.SetDefaults()

	t.Cleanup(viper.Reset)
}

// SetTestConfigOption is a functional option for configuring test config.
type SetTestConfigOption func(*testConfigOptions)

type testConfigOptions struct {
	provider   string
	catalogURL string
	isbndbKey  string
}

// WithProvider selects the active provider.
func WithProvider(name string) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.provider = name
	}
}

// WithCatalogURL points the catalog provider at url.
func WithCatalogURL(url string) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.catalogURL = url
	}
}

// WithISBNdbAPIKey sets the ISBNdb API key.
func WithISBNdbAPIKey(key string) SetTestConfigOption {
	return func(o *testConfigOptions) {
		o.isbndbKey = key
	}
}

// SetTestConfig resets viper and applies fast resolver settings suitable for
// tests: millisecond retry delays and no persistent cache.
func SetTestConfig(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()
	ResetConfig(t)

	options := testConfigOptions{provider: "openlibrary"}
	for _, opt := range opts {
		opt(&options)
	}

	viper.Set("resolver.provider", options.provider)
	viper.Set("resolver.retry_delay", "1ms")
	viper.Set("resolver.request_timeout", "5s")
	if options.catalogURL != "" {
		viper.Set("catalog.url", options.catalogURL)
	}
	if options.isbndbKey != "" {
		viper.Set("isbndb.api_key", options.isbndbKey)
	}
}

// SetViperValue sets a viper configuration value and restores the previous
// value, if there was one, when the test completes.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)
	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset, so a previously unset key stays set.
	})
}

// SetupTestCache points the persistent cache at the test environment.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFileString("cache/.keep", "")
	viper.Set("cache.dbfile", dbPath)
	viper.Set("resolver.cache_ttl", "24h")
	return dbPath
}

// SetupLibraryDB points the library database at the test environment.
func SetupLibraryDB(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("library.db")
	SetViperValue(t, "library.dbfile", dbPath)
	return dbPath
}
