// Package protocol implements the line-framed wire format described in
// spec §4.1: a header line (JSON value + has-body byte), followed by zero
// or more body-chunk lines, terminated by one empty line. It is grounded
// on the original source's tokio_io Decoder/Encoder for JsonLineCodec
// (host/remote.rs), generalized from a single-shot codec callback into a
// stateful Go type that reads and writes a net.Conn directly.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gravitational/trace"
)

// hasBodyByte/noBodyByte are the literal trailing bytes of a header line,
// per spec §4.1 and §6.
const (
	hasBodyByte byte = 0x01
	noBodyByte  byte = 0x00
)

// Decoder reads Frames off a byte stream. It is not safe for concurrent
// use — exactly like the connection it decodes, it belongs to a single
// reader goroutine.
type Decoder struct {
	r           *bufio.Reader
	awaitingBody bool
}

// NewDecoder wraps r in a line-framed Decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadFrame decodes the next Frame from the stream. Per the AwaitHeader →
// AwaitBody? → AwaitHeader state machine in spec §4.1, it returns Header
// frames while awaiting a header, and Chunk frames (including the
// end-of-body marker) while a body is in flight.
func (d *Decoder) ReadFrame() (Frame, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return Frame{}, io.EOF
		}
		return Frame{}, trace.Wrap(err, "reading frame")
	}
	line = bytes.TrimSuffix(line, []byte{'\n'})

	if !d.awaitingBody {
		return d.decodeHeader(line)
	}
	return d.decodeChunk(line), nil
}

func (d *Decoder) decodeHeader(line []byte) (Frame, error) {
	if len(line) == 0 {
		// A programming error on the producer's side: the has-body byte
		// is a codec invariant, not a recoverable condition (spec §4.1).
		panic("protocol: header frame missing has-body byte")
	}

	hasBodyFlag := line[len(line)-1]
	value := line[:len(line)-1]

	var hasBody bool
	switch hasBodyFlag {
	case hasBodyByte:
		hasBody = true
	case noBodyByte:
		hasBody = false
	default:
		panic(fmt.Sprintf("protocol: invalid has-body byte %#x", hasBodyFlag))
	}

	if !json.Valid(value) {
		return Frame{}, trace.Wrap(&jsonDecodeError{}, "decoding header frame")
	}

	if hasBody {
		d.awaitingBody = true
	}

	return Frame{
		Kind:    FrameHeader,
		Header:  json.RawMessage(append([]byte(nil), value...)),
		HasBody: hasBody,
	}, nil
}

func (d *Decoder) decodeChunk(line []byte) Frame {
	if len(line) == 0 {
		d.awaitingBody = false
		return Frame{Kind: FrameChunk, End: true}
	}
	return Frame{Kind: FrameChunk, Chunk: append([]byte(nil), line...)}
}

type jsonDecodeError struct{}

func (*jsonDecodeError) Error() string { return "invalid JSON in header frame" }

// Encoder writes Frames to a byte stream using the same wire format.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w in a line-framed Encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteHeader encodes value as a header frame. hasBody must match whether
// one or more WriteChunk calls (terminated by WriteEnd) will follow.
func (e *Encoder) WriteHeader(value interface{}, hasBody bool) error {
	data, err := json.Marshal(value)
	if err != nil {
		return trace.Wrap(err, "encoding header frame")
	}

	flag := noBodyByte
	if hasBody {
		flag = hasBodyByte
	}

	buf := make([]byte, 0, len(data)+2)
	buf = append(buf, data...)
	buf = append(buf, flag, '\n')

	_, err = e.w.Write(buf)
	return trace.Wrap(err, "writing header frame")
}

// WriteChunk writes one body-chunk line. data must not contain '\n' —
// callers are responsible for splitting on newlines before framing, per
// spec §4.1.
func (e *Encoder) WriteChunk(data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	_, err := e.w.Write(buf)
	return trace.Wrap(err, "writing body chunk")
}

// WriteEnd writes the empty line that terminates a body.
func (e *Encoder) WriteEnd() error {
	_, err := e.w.Write([]byte{'\n'})
	return trace.Wrap(err, "writing end-of-body marker")
}
