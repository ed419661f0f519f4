package resolve

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lepinkainen/folio/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const effectiveJava = `{
		"key": "/books/OL26837286M",
		"title": "Effective Java",
		"authors": [{"name": "Joshua Bloch"}],
		"publishers": [{"name": "Addison-Wesley"}],
		"publish_date": "2018",
		"number_of_pages": 412,
		"identifiers": {"isbn_10": ["0134685997"], "isbn_13": ["9780134685991"]}
	}`

var openLibraryBooks = map[string]string{
	"9780134685991": effectiveJava,
	"0134685997":    effectiveJava,
	"9780262033848": `{
		"key": "/books/OL22693624M",
		"title": "Introduction to Algorithms",
		"authors": [{"name": "Thomas H. Cormen"}, {"name": "Charles E. Leiserson"}],
		"publishers": [{"name": "MIT Press"}],
		"publish_date": "2009",
		"identifiers": {"isbn_13": ["9780262033848"]}
	}`,
}

// newIPv4TestServer starts a test server bound to IPv4 loopback to avoid IPv6 listener issues.
func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()

	t.Cleanup(server.Close)
	return server
}

// setupOpenLibrary serves openLibraryBooks over the bibkeys API and points
// the resolver config at it. The returned counter tracks requests.
func setupOpenLibrary(t *testing.T) *atomic.Int32 {
	t.Helper()

	var requests atomic.Int32
	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var entries []string
		for _, key := range strings.Split(r.URL.Query().Get("bibkeys"), ",") {
			id := strings.TrimPrefix(key, "ISBN:")
			if body, ok := openLibraryBooks[id]; ok {
				entries = append(entries, `"ISBN:`+id+`": `+body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{" + strings.Join(entries, ",") + "}"))
	}))

	testutil.SetTestConfig(t, testutil.WithProvider("openlibrary"))
	viper.Set("openlibrary.base_url", server.URL)
	return &requests
}
