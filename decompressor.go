package gatews

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// flushSuffix is the empty stored block a deflate sync flush emits. The remote
// flushes once per logical message, so this sequence delimits message boundaries
// inside the continuous compressed stream.
var flushSuffix = []byte{0x00, 0x00, 0xff, 0xff}

const (
	zlibHeaderLen = 2

	// decompressWindowSize is the deflate back-reference window. The last 32KiB
	// of decompressed output must stay available as dictionary for the next
	// message, since the remote compresses with context takeover.
	decompressWindowSize = 32 * 1024
)

// StreamDecompressor incrementally decodes one zlib stream that spans the whole
// connection. Compressed bytes arrive split across arbitrary transport frames;
// Feed buffers them until a flush marker completes a message and inflates each
// completed message with the window of the previous ones as dictionary.
//
// Not safe for concurrent use: exactly one inbound flow owns it.
type StreamDecompressor struct {
	buf        []byte // compressed bytes pending a flush marker
	window     []byte // trailing decompressed output, used as flate dict
	seg        *bytes.Reader
	zr         io.ReadCloser
	headerDone bool
	closed     bool
}

func NewStreamDecompressor() *StreamDecompressor {
	return &StreamDecompressor{
		seg: bytes.NewReader(nil),
	}
}

// Feed appends a compressed chunk to the stream and returns every message it
// completed, in wire order. A chunk may complete zero, one or several messages.
// Any failure is a *DecompressionError and leaves the decompressor unusable.
func (d *StreamDecompressor) Feed(chunk []byte) ([][]byte, error) {
	if d.closed {
		return nil, WrapErrorDecompression(errors.New("decompressor has been released"))
	}

	d.buf = append(d.buf, chunk...)

	if !d.headerDone {
		if len(d.buf) < zlibHeaderLen {
			return nil, nil
		}
		if err := checkZlibHeader(d.buf[0], d.buf[1]); err != nil {
			return nil, WrapErrorDecompression(err)
		}
		d.buf = d.buf[zlibHeaderLen:]
		d.headerDone = true
	}

	var msgs [][]byte

	for {
		idx := bytes.Index(d.buf, flushSuffix)
		if idx < 0 {
			return msgs, nil
		}

		end := idx + len(flushSuffix)
		msg, err := d.inflate(d.buf[:end])
		if err != nil {
			return msgs, err
		}

		d.buf = d.buf[end:]
		msgs = append(msgs, msg)
	}
}

// inflate decodes one marker-delimited segment. A sync flush never terminates the
// deflate stream, so reading past the segment surfaces as an unexpected EOF: that
// is the regular end-of-message outcome, not a failure.
func (d *StreamDecompressor) inflate(seg []byte) ([]byte, error) {
	d.seg.Reset(seg)

	if d.zr == nil {
		d.zr = flate.NewReaderDict(d.seg, d.window)
	} else if err := d.zr.(flate.Resetter).Reset(d.seg, d.window); err != nil {
		return nil, WrapErrorDecompression(err)
	}

	msg, err := io.ReadAll(d.zr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, WrapErrorDecompression(err)
	}

	d.track(msg)

	return msg, nil
}

// track keeps the trailing decompressWindowSize bytes of output as the dictionary
// for the next segment.
func (d *StreamDecompressor) track(msg []byte) {
	if len(msg) >= decompressWindowSize {
		d.window = append(d.window[:0], msg[len(msg)-decompressWindowSize:]...)
		return
	}
	if drop := len(d.window) + len(msg) - decompressWindowSize; drop > 0 {
		d.window = append(d.window[:0], d.window[drop:]...)
	}
	d.window = append(d.window, msg...)
}

// Close releases the internal buffers. Idempotent; Feed fails afterwards.
func (d *StreamDecompressor) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.buf, d.window = nil, nil
	if d.zr != nil {
		return d.zr.Close()
	}
	return nil
}

func checkZlibHeader(cmf, flg byte) error {
	if cmf&0x0f != 8 {
		return errors.Errorf("zlib header declares unsupported method %d", cmf&0x0f)
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return errors.New("zlib header checksum mismatch")
	}
	if flg&0x20 != 0 {
		return errors.New("zlib preset dictionaries are not supported")
	}
	return nil
}
