// Package ipc implements the framing spoken with an external retriever
// process: 4-byte big-endian length prefix followed by a msgpack payload.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame limits. Retriever frames carry a request, a log line or a
// status, never data, so payloads are capped well below a MiB.
const (
	LengthPrefixSize = 4
	MaxPayloadSize   = 1 << 20
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

// Partial and TooLarge desynchronize the stream. Decode and UnknownType
// spoil a single frame only.
const (
	FrameErrorPartial FrameErrorKind = iota
	FrameErrorTooLarge
	FrameErrorDecode
	FrameErrorUnknownType
)

// FrameError is a framing or payload failure.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err == nil {
		return "ipc: " + e.Msg
	}
	return fmt.Sprintf("ipc: %s: %v", e.Msg, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFatal reports whether the stream cannot be read further.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError reports whether err is a fatal *FrameError.
func IsFatalFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe) && fe.IsFatal()
}

// FrameDecoder reads length-prefixed payloads.
type FrameDecoder struct {
	r      io.Reader
	prefix [LengthPrefixSize]byte
}

// NewFrameDecoder returns a decoder reading from r.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{r: r}
}

// ReadFrame returns the next raw msgpack payload. io.EOF means the stream
// ended between frames; anything cut short is a fatal *FrameError.
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "short length prefix", Err: err}
	}
	n := binary.BigEndian.Uint32(d.prefix[:])
	if n > MaxPayloadSize {
		return nil, tooLarge(int(n))
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "short payload", Err: err}
	}
	return payload, nil
}

// FrameEncoder writes length-prefixed msgpack frames.
type FrameEncoder struct {
	w io.Writer
}

// NewFrameEncoder returns an encoder writing to w.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{w: w}
}

// WriteFrame encodes v and writes prefix and payload in one Write, so
// frames from concurrent writers on a pipe never interleave.
func (e *FrameEncoder) WriteFrame(v any) error {
	var buf bytes.Buffer
	buf.Write(make([]byte, LengthPrefixSize))
	if err := msgpack.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("ipc: encode frame: %w", err)
	}
	n := buf.Len() - LengthPrefixSize
	if n > MaxPayloadSize {
		return tooLarge(n)
	}
	frame := buf.Bytes()
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(n))
	_, err := e.w.Write(frame)
	return err
}

func tooLarge(n int) error {
	return &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("payload of %d bytes exceeds %d", n, MaxPayloadSize)}
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into *RetrieveFrame, *LogFrame,
// *ProgressFrame or *ResultFrame based on its type field.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "decode frame type",
			Err:  err,
		}
	}

	switch probe.Type {
	case RetrieveType:
		return decodeAs[RetrieveFrame](payload, "retrieve")
	case LogType:
		return decodeAs[LogFrame](payload, "log")
	case ProgressType:
		return decodeAs[ProgressFrame](payload, "progress")
	case ResultType:
		return decodeAs[ResultFrame](payload, "retrieve result")
	default:
		return nil, &FrameError{
			Kind: FrameErrorUnknownType,
			Msg:  fmt.Sprintf("unknown frame type %q", probe.Type),
		}
	}
}

func decodeAs[T any](payload []byte, what string) (*T, error) {
	var v T
	if err := msgpack.Unmarshal(payload, &v); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "decode " + what + " frame",
			Err:  err,
		}
	}
	return &v, nil
}
