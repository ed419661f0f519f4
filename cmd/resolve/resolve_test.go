package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/folio/internal/fileutil"
	"github.com/lepinkainen/folio/internal/library"
	"github.com/lepinkainen/folio/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCapture(t *testing.T, opts Options) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	opts.Out = &out
	opts.ErrOut = &errOut
	err := Run(context.Background(), opts)
	return out.String(), errOut.String(), err
}

func TestCollectInputs(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("list.txt", "# my shelf\n9780134685991\n\n  978-0-262-03384-8  \n")
	env.WriteFileString("export.csv", `Title,ISBN,ISBN13
Effective Java,"=""0134685997""","=""9780134685991"""
No ISBN,,
CLRS,,9780262033848
`)

	t.Run("arguments only", func(t *testing.T) {
		ids, err := collectInputs(Options{ISBNs: []string{"0134685997", " ", "9780262033848"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"0134685997", "9780262033848"}, ids)
	})

	t.Run("text file after arguments", func(t *testing.T) {
		ids, err := collectInputs(Options{ISBNs: []string{"0134685997"}, InputFile: env.Path("list.txt")})
		require.NoError(t, err)
		assert.Equal(t, []string{"0134685997", "9780134685991", "978-0-262-03384-8"}, ids)
	})

	t.Run("csv export", func(t *testing.T) {
		ids, err := collectInputs(Options{InputFile: env.Path("export.csv")})
		require.NoError(t, err)
		assert.Equal(t, []string{`="9780134685991"`, "9780262033848"}, ids)
	})

	t.Run("csv with custom column order", func(t *testing.T) {
		ids, err := collectInputs(Options{InputFile: env.Path("export.csv"), Columns: []string{"ISBN", "ISBN13"}})
		require.NoError(t, err)
		assert.Equal(t, []string{`="0134685997"`, "9780262033848"}, ids)
	})

	t.Run("stdin", func(t *testing.T) {
		ids, err := collectInputs(Options{InputFile: "-", In: strings.NewReader("9780134685991\n#skip\n0134685997\n")})
		require.NoError(t, err)
		assert.Equal(t, []string{"9780134685991", "0134685997"}, ids)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := collectInputs(Options{InputFile: env.Path("nope.txt")})
		require.Error(t, err)
	})
}

func TestRunTableOutput(t *testing.T) {
	setupOpenLibrary(t)

	out, errOut, err := runCapture(t, Options{
		ISBNs:  []string{"978-0-13-468599-1", "9780306406157", "not-an-isbn"},
		Format: FormatTable,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Effective Java")
	assert.Contains(t, out, "Joshua Bloch")
	assert.Contains(t, out, "not_found")
	assert.Contains(t, out, "invalid_input")
	assert.Contains(t, errOut, "3 ISBNs")
	assert.Contains(t, errOut, "1 found")
	assert.Contains(t, errOut, "1 not found")
	assert.Contains(t, errOut, "1 failed")
}

func TestRunJSONOutputKeepsInputOrder(t *testing.T) {
	setupOpenLibrary(t)

	out, _, err := runCapture(t, Options{
		ISBNs:  []string{"not-an-isbn", "9780262033848", "9780306406157", "9780134685991"},
		Format: FormatJSON,
	})
	require.NoError(t, err)

	var views []resultView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 4)

	assert.Equal(t, "failed", views[0].Status)
	assert.Equal(t, "invalid_input", views[0].ErrorKind)
	assert.Equal(t, "found", views[1].Status)
	assert.Equal(t, "Introduction to Algorithms", views[1].Book.Title)
	assert.Equal(t, "not_found", views[2].Status)
	assert.Equal(t, "9780306406157", views[2].ISBN)
	assert.Equal(t, "found", views[3].Status)
	assert.Equal(t, "OpenLibrary", views[3].Book.Source.Provider)
}

func TestRunYAMLOutput(t *testing.T) {
	setupOpenLibrary(t)

	out, _, err := runCapture(t, Options{ISBNs: []string{"9780134685991"}, Format: FormatYAML})
	require.NoError(t, err)

	var views []resultView
	require.NoError(t, yaml.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "found", views[0].Status)
	assert.Equal(t, "Effective Java", views[0].Book.Title)
	assert.Equal(t, 412, views[0].Book.PageCount)
}

func TestRunDuplicateInputsShareOneRequest(t *testing.T) {
	requests := setupOpenLibrary(t)

	out, _, err := runCapture(t, Options{
		ISBNs:  []string{"9780134685991", "978-0-13-468599-1", "978 0134685991"},
		Format: FormatJSON,
	})
	require.NoError(t, err)

	var views []resultView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 3)
	for _, v := range views {
		assert.Equal(t, "found", v.Status)
	}
	assert.Equal(t, "978-0-13-468599-1", views[1].Input)
	assert.Equal(t, int32(1), requests.Load())
}

func TestRunWithoutInput(t *testing.T) {
	setupOpenLibrary(t)

	_, _, err := runCapture(t, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ISBNs given")
}

func TestRunStrict(t *testing.T) {
	setupOpenLibrary(t)

	_, _, err := runCapture(t, Options{ISBNs: []string{"9780134685991", "12345"}, Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 lookups failed")

	_, _, err = runCapture(t, Options{ISBNs: []string{"9780134685991", "9780306406157"}, Strict: true})
	require.NoError(t, err, "not found is not a failure")
}

func TestRunRejectsOversizedBatch(t *testing.T) {
	setupOpenLibrary(t)
	viper.Set("resolver.max_batch_size", 2)

	_, _, err := runCapture(t, Options{ISBNs: []string{"9780134685991", "9780262033848", "9780306406157"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch exceeds maximum size")
}

func TestRunInvalidConfig(t *testing.T) {
	setupOpenLibrary(t)
	viper.Set("resolver.max_concurrent_requests", 0)

	_, _, err := runCapture(t, Options{ISBNs: []string{"9780134685991"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_requests")
}

func TestRunSaveSkipsDuplicates(t *testing.T) {
	setupOpenLibrary(t)
	env := testutil.NewTestEnv(t)
	dbPath := testutil.SetupLibraryDB(t, env)

	opts := Options{
		ISBNs:     []string{"9780134685991", "0134685997", "9780306406157"},
		Format:    FormatJSON,
		Save:      true,
		LibraryDB: dbPath,
	}
	_, _, err := runCapture(t, opts)
	require.NoError(t, err)

	opts.ISBNs = []string{"9780134685991", "9780262033848"}
	_, _, err = runCapture(t, opts)
	require.NoError(t, err)

	store, err := library.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	records, err := store.Load(context.Background())
	require.NoError(t, err)

	titles := make([]string, 0, len(records))
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Effective Java", "Introduction to Algorithms"}, titles)
}

func TestLookup(t *testing.T) {
	setupOpenLibrary(t)

	t.Run("found", func(t *testing.T) {
		var out bytes.Buffer
		err := Lookup(context.Background(), LookupOptions{ISBN: "978-0-13-468599-1", Out: &out})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Effective Java")
		assert.Contains(t, out.String(), "Addison-Wesley")
		assert.Contains(t, out.String(), "412")
	})

	t.Run("not found", func(t *testing.T) {
		var out bytes.Buffer
		err := Lookup(context.Background(), LookupOptions{ISBN: "9780306406157", Out: &out})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "No book found for ISBN 9780306406157")
	})

	t.Run("invalid", func(t *testing.T) {
		var out bytes.Buffer
		err := Lookup(context.Background(), LookupOptions{ISBN: "abc", Out: &out})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_input")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		err := Lookup(context.Background(), LookupOptions{ISBN: "9780262033848", Format: FormatJSON, Out: &out})
		require.NoError(t, err)

		var views []resultView
		require.NoError(t, json.Unmarshal(out.Bytes(), &views))
		require.Len(t, views, 1)
		assert.Equal(t, []string{"Thomas H. Cormen", "Charles E. Leiserson"}, views[0].Book.Authors)
	})
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	report := progressReporter(&buf)

	report(0, 2, 0)
	report(1, 2, 1)
	report(2, 2, 1)

	assert.NotZero(t, buf.Len())
}

func TestRunWritesOutputFile(t *testing.T) {
	setupOpenLibrary(t)
	env := testutil.NewTestEnv(t)
	path := env.Path("out", "results.json")

	opts := Options{ISBNs: []string{"9780134685991"}, Format: FormatJSON, OutputFile: path}
	stdout, _, err := runCapture(t, opts)
	require.NoError(t, err)
	assert.Equal(t, "", stdout)

	var views []resultView
	require.NoError(t, json.Unmarshal([]byte(env.ReadFileString("out/results.json")), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Effective Java", views[0].Book.Title)

	_, _, err = runCapture(t, opts)
	require.ErrorIs(t, err, fileutil.ErrFileExists)

	opts.Overwrite = true
	_, _, err = runCapture(t, opts)
	require.NoError(t, err)
}
