package request

// ByteSink is the append-only buffer a transfer streams response bytes
// into. Each Handle owns exactly one sink; it is never shared, so no
// locking is needed. The sink grows with amortized doubling and never
// shrinks mid-transfer. Reset keeps the allocated capacity so a reused
// handle avoids re-growing on the next transfer.
type ByteSink struct {
	buf []byte
}

// NewByteSink returns a sink with the given initial capacity.
func NewByteSink(capacity int) *ByteSink {
	return &ByteSink{buf: make([]byte, 0, capacity)}
}

// Append copies p onto the end of the sink and returns the new length.
func (s *ByteSink) Append(p []byte) int {
	s.buf = append(s.buf, p...)
	return len(s.buf)
}

// Len returns the number of bytes accumulated so far.
func (s *ByteSink) Len() int { return len(s.buf) }

// Bytes returns the accumulated bytes. The slice aliases the sink's
// storage and is invalidated by the next Append or Reset.
func (s *ByteSink) Bytes() []byte { return s.buf }

// String returns the accumulated bytes as a string.
func (s *ByteSink) String() string { return string(s.buf) }

// Reset truncates the sink to zero length, keeping capacity.
func (s *ByteSink) Reset() { s.buf = s.buf[:0] }

// Write implements io.Writer over Append, always reporting full writes.
func (s *ByteSink) Write(p []byte) (int, error) {
	s.Append(p)
	return len(p), nil
}
