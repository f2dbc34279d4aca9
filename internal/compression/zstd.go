package compression

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
)

// marker is a zstd skippable frame (magic 0x184D2A50) carrying a fixed tag.
// Compressed streams start with it, so content that merely happens to be
// zstd data is never decoded on read.
var marker = skippableFrame([]byte("repostore"))

func skippableFrame(payload []byte) []byte {
	frame := binary.LittleEndian.AppendUint32(nil, 0x184D2A50)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	return append(frame, payload...)
}

// Compressor wraps blob streams. When disabled, writers pass data through
// unchanged; readers always detect marked streams so data written with
// compression enabled stays readable after it is turned off.
type Compressor struct {
	level   zstd.EncoderLevel
	enabled bool
}

func NewCompressor(level int, enabled bool) *Compressor {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	case 4:
		encoderLevel = zstd.SpeedBestCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}
	return &Compressor{level: encoderLevel, enabled: enabled}
}

func (c *Compressor) Enabled() bool { return c != nil && c.enabled }

// Writer returns a writer that compresses into w. Closing it flushes the
// frame and closes w.
func (c *Compressor) Writer(w io.WriteCloser) (io.WriteCloser, error) {
	if !c.Enabled() {
		return w, nil
	}
	if _, err := w.Write(marker); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(c.level),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	return &encodeCloser{enc: enc, dst: w}, nil
}

// Reader returns a reader over the content of r, decoded when r starts with
// the compression marker. Closing it closes r.
func (c *Compressor) Reader(r io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(marker))
	if err != nil || !bytes.Equal(head, marker) {
		// short or plain content
		return &readCloser{Reader: br, src: r}, nil
	}
	if _, err := br.Discard(len(marker)); err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &decodeCloser{dec: dec, src: r}, nil
}

type encodeCloser struct {
	enc *zstd.Encoder
	dst io.Closer
}

func (e *encodeCloser) Write(p []byte) (int, error) { return e.enc.Write(p) }

func (e *encodeCloser) Close() error {
	if err := e.enc.Close(); err != nil {
		_ = e.dst.Close()
		return err
	}
	return e.dst.Close()
}

type decodeCloser struct {
	dec *zstd.Decoder
	src io.Closer
}

func (d *decodeCloser) Read(p []byte) (int, error) { return d.dec.Read(p) }

func (d *decodeCloser) Close() error {
	d.dec.Close()
	return d.src.Close()
}

type readCloser struct {
	io.Reader
	src io.Closer
}

func (r *readCloser) Close() error { return r.src.Close() }
