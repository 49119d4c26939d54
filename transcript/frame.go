// Package transcript records the protocol exchanges of an export run as a
// stream of length-prefixed msgpack frames, and reads them back.
//
// Frame layout: a 4-byte big-endian payload length followed by one
// msgpack-encoded Record.
package transcript

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether reading cannot continue past this error.
// A decode error leaves the stream aligned on the next frame.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// writeFrame writes payload with its length prefix.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame reads a single frame payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit
func readFrame(r io.Reader) ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}
	return payload, nil
}
