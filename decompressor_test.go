package gatews

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// compressStream builds one continuous zlib stream with a sync flush after each
// message, the way the gateway compresses its outbound traffic.
func compressStream(t *testing.T, msgs ...[]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	for _, m := range msgs {
		_, err := zw.Write(m)
		require.NoError(t, err)
		require.NoError(t, zw.Flush())
	}
	return buf.Bytes()
}

func chunked(stream []byte, size int) [][]byte {
	var chunks [][]byte
	for len(stream) > 0 {
		n := size
		if n > len(stream) {
			n = len(stream)
		}
		chunks = append(chunks, stream[:n])
		stream = stream[n:]
	}
	return chunks
}

func TestDecompressorRoundTripArbitraryChunking(t *testing.T) {
	msgs := [][]byte{
		[]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`),
		[]byte(`{"op":11}`),
		[]byte(`{"op":0,"t":"READY","d":{"session_id":"abc123"}}`),
	}
	stream := compressStream(t, msgs...)

	for _, size := range []int{1, 2, 3, 7, 64, len(stream)} {
		dec := NewStreamDecompressor()

		var got [][]byte
		for _, chunk := range chunked(stream, size) {
			out, err := dec.Feed(chunk)
			require.NoError(t, err, "chunk size %d", size)
			got = append(got, out...)
		}

		require.Equal(t, msgs, got, "chunk size %d", size)
		require.NoError(t, dec.Close())
	}
}

func TestDecompressorSingleFeedCompletesManyMessages(t *testing.T) {
	msgs := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	stream := compressStream(t, msgs...)

	dec := NewStreamDecompressor()
	defer dec.Close()

	got, err := dec.Feed(stream)
	require.NoError(t, err)
	require.Equal(t, msgs, got)
}

func TestDecompressorContextTakeover(t *testing.T) {
	// Identical repeated payloads force back-references into previous messages,
	// which only decode correctly if the window survives between Feed calls.
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 32)
	msgs := [][]byte{payload, payload, payload}
	stream := compressStream(t, msgs...)

	dec := NewStreamDecompressor()
	defer dec.Close()

	var got [][]byte
	for _, chunk := range chunked(stream, 11) {
		out, err := dec.Feed(chunk)
		require.NoError(t, err)
		got = append(got, out...)
	}
	require.Equal(t, msgs, got)
}

func TestDecompressorWindowSlide(t *testing.T) {
	big := make([]byte, 40*1024)
	for i := range big {
		big[i] = byte(i * 31 % 251)
	}
	msgs := [][]byte{big, []byte("after the window slid"), big[:512]}
	stream := compressStream(t, msgs...)

	dec := NewStreamDecompressor()
	defer dec.Close()

	got, err := dec.Feed(stream)
	require.NoError(t, err)
	require.Equal(t, msgs, got)
}

func TestDecompressorEmptyFeeds(t *testing.T) {
	dec := NewStreamDecompressor()
	defer dec.Close()

	out, err := dec.Feed(nil)
	require.NoError(t, err)
	require.Empty(t, out)

	// A split right inside the two-byte zlib header must not confuse it.
	stream := compressStream(t, []byte("hi"))
	out, err = dec.Feed(stream[:1])
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = dec.Feed(stream[1:])
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("hi")}, out)
}

func TestDecompressorBadHeader(t *testing.T) {
	dec := NewStreamDecompressor()
	defer dec.Close()

	_, err := dec.Feed([]byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)

	var derr *DecompressionError
	require.ErrorAs(t, err, &derr)
}

func TestDecompressorCorruptBody(t *testing.T) {
	dec := NewStreamDecompressor()
	defer dec.Close()

	// Valid header followed by a reserved block type and a fake flush marker.
	_, err := dec.Feed([]byte{0x78, 0x9c, 0xff, 0xff, 0x00, 0x00, 0xff, 0xff})
	require.Error(t, err)

	var derr *DecompressionError
	require.ErrorAs(t, err, &derr)
}

func TestDecompressorFeedAfterClose(t *testing.T) {
	dec := NewStreamDecompressor()
	require.NoError(t, dec.Close())
	require.NoError(t, dec.Close())

	_, err := dec.Feed([]byte{0x78, 0x9c})
	require.Error(t, err)
}
