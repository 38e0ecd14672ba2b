package ws

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode identifies a frame's type.
type Opcode byte

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%#x)", byte(op))
	}
}

// control reports whether the opcode is a control frame, which the
// wire format forbids fragmenting or extending past 125 bytes.
func (op Opcode) control() bool { return op >= OpClose }

func (op Opcode) known() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	default:
		return false
	}
}

// Frame is one decoded frame.
type Frame struct {
	Opcode  Opcode
	Payload []byte
	Fin     bool
}

var (
	// ErrNeedMoreData means the buffer ends mid-frame; decode again
	// once more bytes arrive.
	ErrNeedMoreData = errors.New("need more data")

	// ErrMalformedFrame marks a frame violating the wire format.
	ErrMalformedFrame = errors.New("malformed frame")
)

// FrameTooLargeError reports a frame whose declared payload length
// exceeds the framer's configured maximum.
type FrameTooLargeError struct {
	Declared uint64
	Max      uint64
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame too large: declared %d bytes, max %d", e.Declared, e.Max)
}

const defaultMaxPayload = 1 << 20

// Framer encodes and decodes frames. The zero value is not usable;
// construct with [NewFramer]. A Framer is not safe for concurrent use;
// give each connection its own.
type Framer struct {
	maxPayload uint64
	buf        []byte
}

// Option configures a Framer.
//
// WithMaxPayload caps the payload length Decode accepts.
type Option func(*Framer) error

func WithMaxPayload(n uint64) Option {
	return func(f *Framer) error {
		if n == 0 {
			return errors.New("max payload must be positive")
		}
		f.maxPayload = n
		return nil
	}
}

// NewFramer builds a Framer with the provided options.
func NewFramer(optFns ...Option) (*Framer, error) {
	f := &Framer{maxPayload: defaultMaxPayload}
	for _, opt := range optFns {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("applying framer option: %w", err)
		}
	}
	return f, nil
}

// Encode produces one complete client frame. Client frames are always
// masked with a fresh random key.
func (f *Framer) Encode(op Opcode, payload []byte, fin bool) ([]byte, error) {
	if !op.known() {
		return nil, fmt.Errorf("%w: unknown opcode %#x", ErrMalformedFrame, byte(op))
	}
	if op.control() && (!fin || len(payload) > 125) {
		return nil, fmt.Errorf("%w: control frame fragmented or over 125 bytes", ErrMalformedFrame)
	}

	n := len(payload)
	header := make([]byte, 0, 14)

	b0 := byte(op)
	if fin {
		b0 |= 0x80
	}
	header = append(header, b0)

	const masked = 0x80
	switch {
	case n <= 125:
		header = append(header, masked|byte(n))
	case n <= 0xFFFF:
		header = append(header, masked|126)
		header = binary.BigEndian.AppendUint16(header, uint16(n))
	default:
		header = append(header, masked|127)
		header = binary.BigEndian.AppendUint64(header, uint64(n))
	}

	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("generating mask key: %w", err)
	}
	header = append(header, key[:]...)

	frame := make([]byte, 0, len(header)+n)
	frame = append(frame, header...)
	frame = append(frame, payload...)
	maskBytes(key, frame[len(header):])

	return frame, nil
}

// Decode consumes one frame from the front of buf, returning the
// frame and the number of bytes consumed. A partial frame returns
// [ErrNeedMoreData] and consumes nothing; the caller re-offers a
// longer buffer. The length check runs before the payload is needed,
// so an oversized frame is rejected from its header alone.
func (f *Framer) Decode(buf []byte) (Frame, int, error) {
	if len(buf) < 2 {
		return Frame{}, 0, ErrNeedMoreData
	}

	b0, b1 := buf[0], buf[1]
	if b0&0x70 != 0 {
		return Frame{}, 0, fmt.Errorf("%w: reserved bits set", ErrMalformedFrame)
	}

	fin := b0&0x80 != 0
	op := Opcode(b0 & 0x0F)
	if !op.known() {
		return Frame{}, 0, fmt.Errorf("%w: unknown opcode %#x", ErrMalformedFrame, byte(op))
	}

	masked := b1&0x80 != 0
	length := uint64(b1 & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(buf) < offset+2 {
			return Frame{}, 0, ErrNeedMoreData
		}
		length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case 127:
		if len(buf) < offset+8 {
			return Frame{}, 0, ErrNeedMoreData
		}
		length = binary.BigEndian.Uint64(buf[offset:])
		if length&(1<<63) != 0 {
			return Frame{}, 0, fmt.Errorf("%w: negative payload length", ErrMalformedFrame)
		}
		offset += 8
	}

	if op.control() && (!fin || length > 125) {
		return Frame{}, 0, fmt.Errorf("%w: control frame fragmented or over 125 bytes", ErrMalformedFrame)
	}
	if length > f.maxPayload {
		return Frame{}, 0, &FrameTooLargeError{Declared: length, Max: f.maxPayload}
	}

	var key [4]byte
	if masked {
		if len(buf) < offset+4 {
			return Frame{}, 0, ErrNeedMoreData
		}
		copy(key[:], buf[offset:])
		offset += 4
	}

	total := offset + int(length)
	if len(buf) < total {
		return Frame{}, 0, ErrNeedMoreData
	}

	payload := make([]byte, length)
	copy(payload, buf[offset:total])
	if masked {
		maskBytes(key, payload)
	}

	return Frame{Opcode: op, Payload: payload, Fin: fin}, total, nil
}

// Feed appends raw connection bytes to the framer's internal buffer
// for [Framer.Next].
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next decodes the next buffered frame, returning [ErrNeedMoreData]
// until Feed has supplied a complete one.
func (f *Framer) Next() (Frame, error) {
	frame, n, err := f.Decode(f.buf)
	if err != nil {
		return Frame{}, err
	}

	f.buf = f.buf[:copy(f.buf, f.buf[n:])]

	return frame, nil
}

// maskBytes applies the rolling XOR mask in place.
func maskBytes(key [4]byte, p []byte) {
	for i := range p {
		p[i] ^= key[i&3]
	}
}

// EncodeClose packs a close payload: a big-endian status code
// followed by an optional UTF-8 reason.
func EncodeClose(code uint16, reason string) []byte {
	p := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(p, code)
	copy(p[2:], reason)
	return p
}

// ParseClose unpacks a close frame payload. An empty payload means no
// code was sent; a 1-byte payload is malformed.
func ParseClose(payload []byte) (uint16, string, error) {
	switch {
	case len(payload) == 0:
		return 0, "", nil
	case len(payload) == 1:
		return 0, "", fmt.Errorf("%w: 1-byte close payload", ErrMalformedFrame)
	default:
		return binary.BigEndian.Uint16(payload), string(payload[2:]), nil
	}
}
