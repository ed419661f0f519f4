package resolve

import (
	"fmt"

	"github.com/lepinkainen/folio/internal/breaker"
	"github.com/lepinkainen/folio/internal/cache"
	"github.com/lepinkainen/folio/internal/config"
	"github.com/lepinkainen/folio/internal/enrichment/providers"
	"github.com/lepinkainen/folio/internal/resolver"
	"github.com/spf13/viper"
)

// ProviderConfig reads provider selection and credentials from viper.
func ProviderConfig() providers.Config {
	settings := func(key string) providers.Settings {
		return providers.Settings{
			BaseURL:           viper.GetString(key + ".base_url"),
			APIKey:            viper.GetString(key + ".api_key"),
			Timeout:           viper.GetDuration(key + ".timeout"),
			RequestsPerSecond: viper.GetFloat64(key + ".requests_per_second"),
		}
	}

	catalog := settings("catalog")
	if url := viper.GetString("catalog.url"); url != "" {
		catalog.BaseURL = url
	}

	return providers.Config{
		Name:            config.ProviderName(),
		OpenLibrary:     settings("openlibrary"),
		GoogleBooks:     settings("googlebooks"),
		ISBNdb:          settings("isbndb"),
		Catalog:         catalog,
		CatalogUpstream: viper.GetString("catalog.upstream"),
		Chain:           viper.GetStringSlice("resolver.chain"),
	}
}

// Build wires an engine from the current configuration. The returned close
// function releases the persistent cache, if one is configured.
func Build(cfg config.Engine) (*resolver.Engine, func() error, error) {
	provider, err := providers.New(ProviderConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up provider: %w", err)
	}

	closeFn := func() error { return nil }
	var c cache.Cache
	if cfg.EnableCaching {
		c, closeFn, err = cache.New(cache.Config{
			TTL:        cfg.CacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
			DBFile:     viper.GetString("cache.dbfile"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	var breakers *breaker.Registry
	if cfg.EnableCircuitBreaker {
		breakers = breaker.NewRegistry(breaker.Settings{
			Threshold: cfg.CircuitBreakerThreshold,
			Timeout:   cfg.CircuitBreakerTimeout,
		})
	}

	return resolver.New(provider, c, breakers, cfg), closeFn, nil
}
