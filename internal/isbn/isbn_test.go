package isbn

import (
	"testing"

	"github.com/lepinkainen/folio/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		kind Kind
	}{
		{name: "hyphenated isbn13", raw: "978-0-13-468599-1", want: "9780134685991", kind: ISBN13},
		{name: "hyphenated isbn10", raw: "0-13-468599-7", want: "0134685997", kind: ISBN10},
		{name: "spaces", raw: " 978 0134 685991 ", want: "9780134685991", kind: ISBN13},
		{name: "lowercase check char", raw: "080442957x", want: "080442957X", kind: ISBN10},
		{name: "spreadsheet wrapper", raw: `="0134685997"`, want: "0134685997", kind: ISBN10},
		{name: "quoted", raw: `"9780134685991"`, want: "9780134685991", kind: ISBN13},
		{name: "bad checksum still well formed", raw: "9999999999999", want: "9999999999999", kind: ISBN13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.Canonical)
			assert.Equal(t, tt.raw, id.Raw)
			assert.Equal(t, tt.kind, id.Kind())
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	inputs := []string{
		"invalid-isbn",
		"",
		"   ",
		"12345",
		"97801346859912",
		"X134685997",
		"978013468599X",
		"ISBN 9780134685991",
		"0134685997!",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			id, err := Normalize(raw)
			require.Error(t, err)
			assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
			assert.Empty(t, id.Canonical, "rejected input must not yield a partial identifier")
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{"978-0-13-468599-1", "0-13-468599-7", "080442957x"} {
		first, err := Normalize(raw)
		require.NoError(t, err)
		second, err := Normalize(first.Canonical)
		require.NoError(t, err)
		assert.Equal(t, first.Canonical, second.Canonical)
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "9780134685991", Clean("978-0-13 468599-1"))
	assert.Equal(t, "080442957X", Clean("0-8044-2957-x"))
	assert.Equal(t, "", Clean(""))
}
