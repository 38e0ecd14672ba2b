package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/adamwoolhether/mimic/request"
)

const (
	bodyChunkSize       = 32 << 10
	maxHeaderBytes      = 64 << 10
	maxInterimResponses = 10
)

// roundTrip writes one request and reads one response over conn. The
// second return value reports whether the connection finished clean
// enough to park in the pool.
func (e *Exchange) roundTrip(ctx context.Context, h *request.Handle, conn net.Conn, target *url.URL) (*request.Result, bool, error) {
	// A pooled connection may carry a stale deadline.
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	} else {
		conn.SetDeadline(time.Time{})
	}

	// Unblock any in-flight read or write the moment the context
	// ends, so cancellation latency stays bounded by one I/O step.
	// The watcher is joined before returning: once roundTrip hands the
	// connection back, nothing may touch its deadline anymore.
	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		<-watcherDone
	}()

	if err := e.writeRequest(ctx, h, conn, target); err != nil {
		return nil, false, wrapWireError(err)
	}

	res, reusable, err := e.readResponse(ctx, h, bufio.NewReader(conn))
	if err != nil {
		return nil, false, err
	}

	return res, reusable, nil
}

// writeRequest sends the request line, the handle's exact ordered
// headers, and the body.
func (e *Exchange) writeRequest(ctx context.Context, h *request.Handle, conn net.Conn, target *url.URL) error {
	body, bodyLen, contentType := h.Body()
	headers := h.SendHeaders()

	var head bytes.Buffer
	fmt.Fprintf(&head, "%s %s HTTP/1.1\r\n", h.Method(), target.RequestURI())

	if !headers.Has("Host") {
		fmt.Fprintf(&head, "Host: %s\r\n", target.Host)
	}
	for _, hdr := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", hdr.Name, hdr.Value)
	}

	if body != nil {
		if contentType != "" && !headers.Has("Content-Type") {
			fmt.Fprintf(&head, "Content-Type: %s\r\n", contentType)
		}
		switch {
		case bodyLen >= 0 && !headers.Has("Content-Length"):
			fmt.Fprintf(&head, "Content-Length: %d\r\n", bodyLen)
		case bodyLen < 0 && !headers.Has("Transfer-Encoding"):
			head.WriteString("Transfer-Encoding: chunked\r\n")
		}
	}
	head.WriteString("\r\n")

	if _, err := conn.Write(head.Bytes()); err != nil {
		return err
	}

	switch {
	case body == nil:
		return nil
	case bodyLen >= 0:
		return e.writeKnownBody(ctx, h, conn, body, bodyLen)
	default:
		return e.writeChunkedBody(ctx, h, conn, body)
	}
}

func (e *Exchange) writeKnownBody(ctx context.Context, h *request.Handle, conn net.Conn, body io.Reader, n int64) error {
	buf := make([]byte, bodyChunkSize)
	var sent int64
	for sent < n {
		if err := stepCheck(ctx, h); err != nil {
			return err
		}

		want := int64(len(buf))
		if rem := n - sent; rem < want {
			want = rem
		}
		rn, err := body.Read(buf[:want])
		if rn > 0 {
			if _, werr := conn.Write(buf[:rn]); werr != nil {
				return werr
			}
			sent += int64(rn)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading request body: %w", err)
		}
	}

	if sent != n {
		return fmt.Errorf("request body ended at %d of %d bytes", sent, n)
	}

	return nil
}

func (e *Exchange) writeChunkedBody(ctx context.Context, h *request.Handle, conn net.Conn, body io.Reader) error {
	buf := make([]byte, bodyChunkSize)
	for {
		if err := stepCheck(ctx, h); err != nil {
			return err
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := fmt.Fprintf(conn, "%x\r\n", n); werr != nil {
				return werr
			}
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(conn, "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := io.WriteString(conn, "0\r\n\r\n")
			return werr
		}
		if err != nil {
			return fmt.Errorf("reading request body: %w", err)
		}
	}
}

// readResponse parses the status line and headers, then streams the
// body into the handle's ByteSink in bounded steps.
func (e *Exchange) readResponse(ctx context.Context, h *request.Handle, br *bufio.Reader) (*request.Result, bool, error) {
	var (
		proto   string
		status  int
		headers request.Headers
	)
	for interim := 0; ; interim++ {
		statusLine, err := readLine(br)
		if err != nil {
			return nil, false, wrapWireError(err)
		}

		proto, status, err = parseStatusLine(statusLine)
		if err != nil {
			return nil, false, err
		}

		headers, err = readHeaders(br)
		if err != nil {
			return nil, false, err
		}

		// Interim responses (100 Continue, 103 Early Hints) carry no
		// body; the final response follows on the same connection. 101
		// is final: the connection leaves HTTP after it.
		if status/100 != 1 || status == 101 {
			break
		}
		if interim >= maxInterimResponses {
			return nil, false, fmt.Errorf("%w: more than %d interim responses", ErrProtocolViolation, maxInterimResponses)
		}
	}

	res := &request.Result{Status: status, Proto: proto, Header: headers}

	reusable := proto == "HTTP/1.1" && status != 101
	if v, ok := headers.Get("Connection"); ok && strings.EqualFold(v, "close") {
		reusable = false
	}

	if noResponseBody(h.Method(), status) {
		return res, reusable, nil
	}

	var err error
	switch {
	case hasChunkedEncoding(headers):
		err = e.readChunkedBody(ctx, h, br)
	case headers.Has("Content-Length"):
		var n int64
		raw, _ := headers.Get("Content-Length")
		n, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("%w: bad content length %q", ErrProtocolViolation, raw)
		}
		err = e.readKnownBody(ctx, h, br, n)
	default:
		// No framing: read to connection close.
		reusable = false
		err = e.readToClose(ctx, h, br)
	}
	if err != nil {
		return nil, false, err
	}

	return res, reusable, nil
}

func noResponseBody(method string, status int) bool {
	return method == "HEAD" || status/100 == 1 || status == 204 || status == 304
}

func hasChunkedEncoding(headers request.Headers) bool {
	v, ok := headers.Get("Transfer-Encoding")
	return ok && strings.EqualFold(strings.TrimSpace(v), "chunked")
}

func (e *Exchange) readKnownBody(ctx context.Context, h *request.Handle, br *bufio.Reader, n int64) error {
	sink := h.Sink()
	buf := make([]byte, bodyChunkSize)
	var got int64
	for got < n {
		if err := stepCheck(ctx, h); err != nil {
			return err
		}

		want := int64(len(buf))
		if rem := n - got; rem < want {
			want = rem
		}
		rn, err := br.Read(buf[:want])
		if rn > 0 {
			sink.Append(buf[:rn])
			got += int64(rn)
		}
		if err == io.EOF && got < n {
			return fmt.Errorf("%w: body truncated at %d of %d bytes", ErrTransferAborted, got, n)
		}
		if err != nil && err != io.EOF {
			return wrapWireError(err)
		}
	}

	return nil
}

func (e *Exchange) readToClose(ctx context.Context, h *request.Handle, br *bufio.Reader) error {
	sink := h.Sink()
	buf := make([]byte, bodyChunkSize)
	for {
		if err := stepCheck(ctx, h); err != nil {
			return err
		}

		n, err := br.Read(buf)
		if n > 0 {
			sink.Append(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapWireError(err)
		}
	}
}

func (e *Exchange) readChunkedBody(ctx context.Context, h *request.Handle, br *bufio.Reader) error {
	for {
		if err := stepCheck(ctx, h); err != nil {
			return err
		}

		line, err := readLine(br)
		if err != nil {
			return wrapWireError(err)
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i] // drop chunk extensions
		}
		size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
		if err != nil || size < 0 {
			return fmt.Errorf("%w: bad chunk size %q", ErrProtocolViolation, line)
		}

		if size == 0 {
			// Trailer section runs to a blank line.
			for {
				trailer, err := readLine(br)
				if err != nil {
					return wrapWireError(err)
				}
				if trailer == "" {
					return nil
				}
			}
		}

		if err := e.readKnownBody(ctx, h, br, size); err != nil {
			return err
		}

		crlf := make([]byte, 2)
		if _, err := io.ReadFull(br, crlf); err != nil {
			return wrapWireError(err)
		}
		if crlf[0] != '\r' || crlf[1] != '\n' {
			return fmt.Errorf("%w: missing chunk terminator", ErrProtocolViolation)
		}
	}
}

// parseStatusLine splits "HTTP/1.1 200 OK" into proto and status.
func parseStatusLine(line string) (string, int, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || (proto != "HTTP/1.1" && proto != "HTTP/1.0") {
		return "", 0, fmt.Errorf("%w: malformed status line %q", ErrProtocolViolation, line)
	}

	codeStr, _, _ := strings.Cut(rest, " ")
	status, err := strconv.Atoi(codeStr)
	if err != nil || len(codeStr) != 3 || status < 100 {
		return "", 0, fmt.Errorf("%w: malformed status line %q", ErrProtocolViolation, line)
	}

	return proto, status, nil
}

// readHeaders reads header lines up to the blank separator, keeping
// order, casing, and duplicates.
func readHeaders(br *bufio.Reader) (request.Headers, error) {
	var headers request.Headers
	var total int
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, wrapWireError(err)
		}
		if line == "" {
			return headers, nil
		}

		total += len(line)
		if total > maxHeaderBytes {
			return nil, fmt.Errorf("%w: header section exceeds %d bytes", ErrProtocolViolation, maxHeaderBytes)
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: malformed header line %q", ErrProtocolViolation, line)
		}
		headers.Add(name, strings.TrimLeft(value, " \t"))
	}
}

// readLine reads one CRLF-terminated line. The length cap is enforced
// while reading, one buffer at a time, so a peer streaming an endless
// line cannot grow memory past the cap.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxHeaderBytes {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrProtocolViolation, maxHeaderBytes)
		}
		switch err {
		case nil:
			return strings.TrimRight(string(line), "\r\n"), nil
		case bufio.ErrBufferFull:
			continue
		default:
			return "", err
		}
	}
}

// stepCheck is the cooperative step boundary: cancellation and
// deadline are observed here, between bounded I/O attempts.
func stepCheck(ctx context.Context, h *request.Handle) error {
	if h.Cancelled() {
		return request.ErrCancelled
	}
	return ctx.Err()
}

// wrapWireError maps connection-level failures onto the taxonomy.
// Timeouts pass through untouched; classify turns them into
// ErrTimeout or ErrCancelled using the context.
func wrapWireError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %v", ErrTransferAborted, err)
	}
	return err
}
