package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalToBufferDoesNotEscapeHTML(t *testing.T) {
	buf, err := MarshalToBuffer(map[string]string{"name": "<b>&</b>"})
	require.NoError(t, err)
	defer PutBuffer(buf)

	assert.Equal(t, `{"name":"<b>&</b>"}`, buf.String())
}

func TestUnmarshalNumberKeepsPrecision(t *testing.T) {
	var out map[string]interface{}
	require.NoError(t, UnmarshalNumber([]byte(`{"id": 9007199254740993, "ratio": 0.5}`), &out))

	id, ok := out["id"].(Number)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", id.String())

	ratio, ok := out["ratio"].(Number)
	require.True(t, ok)
	f, err := ratio.Float64()
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
}

func TestMarshalRoundTripsNil(t *testing.T) {
	data, err := Marshal(map[string]interface{}{"a": nil})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null}`, string(data))
}

func BenchmarkMarshalToBuffer(b *testing.B) {
	rows := make([]map[string]interface{}, 500)
	for i := range rows {
		rows[i] = map[string]interface{}{"first_name": "Ada", "age_col": i}
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		buf, err := MarshalToBuffer(rows)
		if err != nil {
			b.Fatal(err)
		}
		PutBuffer(buf)
	}
}
