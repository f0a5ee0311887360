package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedCarriesOnlyDomain(t *testing.T) {
	t.Parallel()

	out := Failed("example.com")
	assert.Equal(t, Outcome{Domain: "example.com"}, out)
	assert.False(t, out.Success)
	assert.Zero(t, out.BodyLen())
}

func TestBodyLen(t *testing.T) {
	t.Parallel()

	body := "PGh0bWw+"
	out := Outcome{Domain: "example.com", Success: true, Body: &body}
	assert.Equal(t, len(body), out.BodyLen())
}

func TestStoreResults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StoreStored, Stored().Status)
	assert.NoError(t, Stored().Err)
	assert.Equal(t, StoreIgnored, Ignored().Status)
	assert.NoError(t, Ignored().Err)

	cause := errors.New("connection reset")
	dropped := Dropped(cause)
	assert.Equal(t, StoreDropped, dropped.Status)
	require.ErrorIs(t, dropped.Err, cause)
}

func TestStripNUL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                "",
		"nginx":           "nginx",
		"ng\x00inx":       "nginx",
		"\x00\x00":        "",
		"a\x00b\x00c\x00": "abc",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripNUL(in), "input %q", in)
	}
}
