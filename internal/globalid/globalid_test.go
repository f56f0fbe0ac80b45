package globalid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase64CodecRoundTrip(t *testing.T) {
	codec := NewBase64Codec()

	id := ID{Type: "User", Internal: "12345"}
	encoded, err := codec.Encode(id)
	require.NoError(t, err)
	require.NotContains(t, encoded, "User", "encoded form must be opaque")

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, id, decoded)
}

func TestBase64CodecRejectsGarbage(t *testing.T) {
	codec := NewBase64Codec()

	_, err := codec.Decode("!!not-base64!!")
	require.Error(t, err)

	_, err = codec.Decode("aGVsbG8") // valid base64, not a valid payload
	require.Error(t, err)
}

func TestEncodeRequiresType(t *testing.T) {
	codec := NewBase64Codec()
	_, err := codec.Encode(ID{Internal: "1"})
	require.Error(t, err)
}
