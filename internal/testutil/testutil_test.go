package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.Equal(t, filepath.Join(env.RootDir(), "subdir", "file.txt"), path)
	assert.Equal(t, env.RootDir(), env.Path())
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/dir/test.txt", "hello")
	assert.True(t, env.FileExists("nested/dir/test.txt"))
	assert.False(t, env.FileExists("missing.txt"))
	assert.Equal(t, "hello", env.ReadFileString("nested/dir/test.txt"))
}

func TestTestEnv_Chdir(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("work/input.txt", "x")

	t.Run("inner", func(t *testing.T) {
		inner := NewTestEnv(t)
		inner.WriteFileString("here.txt", "x")
		inner.Chdir(".")
		_, err := os.Stat("here.txt")
		require.NoError(t, err)
	})
}

func TestResetConfig(t *testing.T) {
	viper.Set("resolver.max_concurrent_requests", 42)

	t.Run("inner", func(t *testing.T) {
		ResetConfig(t)
		assert.Equal(t, 5, viper.GetInt("resolver.max_concurrent_requests"))
	})

	assert.False(t, viper.IsSet("resolver.max_concurrent_requests"), "viper is reset after the test")
}

func TestSetTestConfig(t *testing.T) {
	t.Run("inner", func(t *testing.T) {
		SetTestConfig(t, WithProvider("catalog"), WithCatalogURL("http://127.0.0.1:1"), WithISBNdbAPIKey("k"))

		assert.Equal(t, "catalog", viper.GetString("resolver.provider"))
		assert.Equal(t, "http://127.0.0.1:1", viper.GetString("catalog.url"))
		assert.Equal(t, "k", viper.GetString("isbndb.api_key"))
		assert.Equal(t, "1ms", viper.GetString("resolver.retry_delay"))
	})
}

func TestSetViperValue(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("test.key", "original")

	t.Run("inner", func(t *testing.T) {
		SetViperValue(t, "test.key", "test-value")
		assert.Equal(t, "test-value", viper.GetString("test.key"))
	})

	assert.Equal(t, "original", viper.GetString("test.key"))
}

func TestSetupTestCache(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	env := NewTestEnv(t)
	dbPath := SetupTestCache(t, env)

	assert.DirExists(t, filepath.Dir(dbPath))
	assert.Equal(t, dbPath, viper.GetString("cache.dbfile"))
	assert.Equal(t, "24h", viper.GetString("resolver.cache_ttl"))
}
