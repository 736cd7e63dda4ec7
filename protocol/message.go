package protocol

import (
	"encoding/json"

	"github.com/gravitational/trace"
)

// Message is the in-memory unit described in spec §3: a header value plus
// an optional finite lazy sequence of byte chunks. Once the header
// declares "no body", no chunks may follow; a body that exists is
// terminated by exactly one empty chunk.
type Message struct {
	Header  json.RawMessage
	HasBody bool
	Body    *BodyReader
}

// BodyReader pulls body chunks off a Decoder on demand. It is the lazy
// sequence mentioned in spec §3 — nothing is buffered ahead of the
// caller's own Next calls, which is what lets a command's output stream
// and its ExitStatus sentinel share one transport without unbounded
// buffering.
//
// A BodyReader must be fully drained (Next until ok==false) before the
// owning Decoder's next ReadFrame/ReadMessage call, since body chunks and
// the next message's header travel on the same ordered stream.
type BodyReader struct {
	dec  *Decoder
	done bool
}

// Next returns the next chunk, or ok=false once the end-of-body marker has
// been read.
func (b *BodyReader) Next() (chunk []byte, ok bool, err error) {
	if b.done {
		return nil, false, nil
	}

	frame, err := b.dec.ReadFrame()
	if err != nil {
		return nil, false, trace.Wrap(err, "reading body chunk")
	}
	if frame.Kind != FrameChunk {
		return nil, false, trace.Errorf("expected body chunk frame, got header frame")
	}
	if frame.End {
		b.done = true
		return nil, false, nil
	}
	return frame.Chunk, true, nil
}

// Drain reads and discards any remaining chunks, leaving the Decoder
// ready to read the next message's header.
func (b *BodyReader) Drain() error {
	for {
		_, ok, err := b.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// ReadMessage reads one Message (header plus, if present, a BodyReader)
// from dec.
func ReadMessage(dec *Decoder) (Message, error) {
	frame, err := dec.ReadFrame()
	if err != nil {
		return Message{}, err
	}
	if frame.Kind != FrameHeader {
		return Message{}, trace.Errorf("expected header frame, got body chunk")
	}

	msg := Message{Header: frame.Header, HasBody: frame.HasBody}
	if frame.HasBody {
		msg.Body = &BodyReader{dec: dec}
	}
	return msg, nil
}

// WriteHeaderOnly writes a Message with no body.
func WriteHeaderOnly(enc *Encoder, header interface{}) error {
	return enc.WriteHeader(header, false)
}
