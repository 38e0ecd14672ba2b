// Package ws implements incremental WebSocket frame encoding and
// decoding, layered atop an established connection's byte stream.
//
// [Framer.Encode] produces a complete client frame (masked, per the
// wire format's client-to-server rule). [Framer.Decode] consumes one
// frame from a buffer, reporting [ErrNeedMoreData] when the buffer
// holds only part of a frame; frames declaring a payload beyond the
// configured maximum fail with [*FrameTooLargeError] before any
// payload is buffered. For stream use, [Framer.Feed] and [Framer.Next]
// handle frames split across reads.
package ws
