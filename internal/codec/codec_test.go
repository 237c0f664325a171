package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []Codec{Json, JsonIter, MsgPack} {
		c := c
		t.Run(c.Name()+"/"+c.ContentType(), func(t *testing.T) {
			t.Parallel()
			in := sample{Name: "widget", Count: 3}
			data, err := c.Encode(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Decode(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestJsonCodec_EncodeString(t *testing.T) {
	t.Parallel()
	s, err := Json.EncodeString(sample{Name: "a", Count: 1})
	require.NoError(t, err)
	assert.Contains(t, s, "\"name\"")
}

func TestMsgPackCodec_EncodeStringFails(t *testing.T) {
	t.Parallel()
	_, err := MsgPack.EncodeString(sample{Name: "a"})
	assert.Error(t, err)
}

func TestByContentType_FallsBackToJSON(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "application/json", ByContentType("text/plain").ContentType())
	assert.Equal(t, "application/msgpack", ByContentType("application/msgpack").ContentType())
}

func TestStreamingDecoder_DecodesEachLine(t *testing.T) {
	t.Parallel()
	input := "{\"name\":\"a\",\"count\":1}\n{\"name\":\"b\",\"count\":2}\n"
	dec := NewStreamingDecoder(strings.NewReader(input), Json)

	var got []sample
	for {
		var v sample
		ok, err := dec.Next(&v)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}
