package response

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ajitpratap0/glidetables/pkg/clients"
	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resp(status int, body string) *clients.Response {
	return &clients.Response{StatusCode: status, Body: []byte(body)}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", 200, false},
		{"created", 201, false},
		{"no content", 204, false},
		{"redirect", 302, true},
		{"bad request", 400, true},
		{"rate limited", 429, true},
		{"server error", 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(resp(tt.status, "details here"))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
			assert.Contains(t, err.Error(), "details here")

			status, ok := StatusCode(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, status)

			body, ok := Body(err)
			require.True(t, ok)
			assert.Equal(t, "details here", body)
		})
	}
}

func TestCheckTruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("x", 5000)
	err := Check(resp(500, long))
	require.Error(t, err)

	assert.Less(t, len(err.Error()), 3000)
	body, _ := Body(err)
	assert.Len(t, body, 5000)
}

func TestCheckTruncatesOnRuneBoundary(t *testing.T) {
	// one ASCII byte shifts every 3-byte rune across the cut point
	long := "x" + strings.Repeat("é€", 2000)
	err := Check(resp(502, long))
	require.Error(t, err)

	assert.True(t, utf8.ValidString(err.Error()))
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
	assert.LessOrEqual(t, len(err.Error()), maxBodyInMessage+100)

	body, ok := Body(err)
	require.True(t, ok)
	assert.Equal(t, long, body)
}

func TestRowIDs(t *testing.T) {
	ids, err := RowIDs(resp(200, `{"data":{"rowIDs":["a","b"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = RowIDs(resp(200, `{"data":{"rowIDs":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRowIDsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"no data", `{}`},
		{"null data", `{"data":null}`},
		{"no rowIDs", `{"data":{}}`},
		{"wrong type", `{"data":{"rowIDs":"a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RowIDs(resp(200, tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))
		})
	}
}

func TestRowIDsPropagatesStatus(t *testing.T) {
	_, err := RowIDs(resp(500, `oops`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransport))
}

func TestStatusCodeOnOtherErrors(t *testing.T) {
	_, ok := StatusCode(errors.New(errors.ErrorTypeData, "x"))
	assert.False(t, ok)
	_, ok = StatusCode(nil)
	assert.False(t, ok)
}
