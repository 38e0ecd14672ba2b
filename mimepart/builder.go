package mimepart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrBodyAlreadyConsumed is returned when an exhausted Body is
	// read again without an intervening Rewind.
	ErrBodyAlreadyConsumed = errors.New("body already consumed")

	// ErrNotRewindable is returned by Rewind when a file part's
	// source is not seekable.
	ErrNotRewindable = errors.New("body not rewindable")
)

// part is one field or file in insertion order.
type part struct {
	name        string
	filename    string
	contentType string
	value       []byte    // field value; nil for file parts
	src         io.Reader // file source; nil for field parts
}

// Builder accumulates fields and files for a multipart body.
type Builder struct {
	boundary string
	parts    []part
}

// NewBuilder returns a Builder with a random boundary.
func NewBuilder() *Builder {
	return &Builder{
		boundary: "mimic" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// AddField appends a simple named field.
func (b *Builder) AddField(name, value string) error {
	if name == "" {
		return errors.New("field name must not be empty")
	}
	b.parts = append(b.parts, part{name: name, value: []byte(value)})
	return nil
}

// AddFile appends a file part whose content streams from src at body
// read time. src is consumed once; pass an io.Seeker if the body may
// need rewinding.
func (b *Builder) AddFile(name, filename, contentType string, src io.Reader) error {
	if name == "" {
		return errors.New("file part name must not be empty")
	}
	if src == nil {
		return errors.New("file source must not be nil")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.parts = append(b.parts, part{
		name:        name,
		filename:    filename,
		contentType: contentType,
		src:         src,
	})
	return nil
}

// Build returns the streaming body producer. The builder can keep
// accumulating parts for further Build calls; each Body snapshots the
// part list as of its creation, but file sources are shared and
// single-use across bodies.
func (b *Builder) Build() (*Body, error) {
	if len(b.parts) == 0 {
		return nil, errors.New("no parts added")
	}

	body := &Body{
		boundary: b.boundary,
		parts:    make([]part, len(b.parts)),
	}
	copy(body.parts, b.parts)
	body.rearm()

	return body, nil
}

// quoteEscaper matches mime/multipart's escaping of quotes and
// backslashes in disposition parameters.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

// Body generates the multipart encoding incrementally: boundary, part
// headers, part content, next boundary, and the closing delimiter.
// Field values and headers are materialized; file content streams
// from its source in whatever chunk sizes the consumer reads.
type Body struct {
	boundary string
	parts    []part

	idx      int       // next part to emit
	cur      io.Reader // header+content of the part being emitted
	trailer  *bytes.Reader
	consumed bool
}

// ContentType returns the value for the Content-Type request header.
func (b *Body) ContentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

// Read implements io.Reader. After the final delimiter it returns
// io.EOF once; any read beyond that fails with
// [ErrBodyAlreadyConsumed].
func (b *Body) Read(p []byte) (int, error) {
	if b.consumed {
		return 0, ErrBodyAlreadyConsumed
	}

	for {
		if b.cur == nil {
			if b.idx < len(b.parts) {
				b.cur = b.partReader(b.parts[b.idx])
				b.idx++
			} else {
				b.cur = b.trailer
			}
		}

		n, err := b.cur.Read(p)
		if n > 0 {
			if err == io.EOF && b.cur != io.Reader(b.trailer) {
				b.cur = nil
				err = nil
			}
			if err == io.EOF {
				b.consumed = true
			}
			return n, err
		}

		switch {
		case err == io.EOF && b.cur == io.Reader(b.trailer):
			b.consumed = true
			return 0, io.EOF
		case err == io.EOF:
			b.cur = nil // part exhausted, move on
		case err != nil:
			return 0, fmt.Errorf("reading part %d: %w", b.idx-1, err)
		default:
			return 0, nil
		}
	}
}

// partReader assembles one part: delimiter, headers, content, CRLF.
func (b *Body) partReader(pt part) io.Reader {
	var head bytes.Buffer
	fmt.Fprintf(&head, "--%s\r\n", b.boundary)

	if pt.src == nil {
		fmt.Fprintf(&head, "Content-Disposition: form-data; name=%q\r\n\r\n",
			quoteEscaper.Replace(pt.name))
		return io.MultiReader(&head, bytes.NewReader(pt.value), strings.NewReader("\r\n"))
	}

	fmt.Fprintf(&head, "Content-Disposition: form-data; name=%q; filename=%q\r\n",
		quoteEscaper.Replace(pt.name), quoteEscaper.Replace(pt.filename))
	fmt.Fprintf(&head, "Content-Type: %s\r\n\r\n", pt.contentType)

	return io.MultiReader(&head, pt.src, strings.NewReader("\r\n"))
}

// Rewind re-arms an exhausted (or partially read) body. Every file
// source must implement io.Seeker or Rewind fails with
// [ErrNotRewindable].
func (b *Body) Rewind() error {
	for _, pt := range b.parts {
		if pt.src == nil {
			continue
		}
		if _, ok := pt.src.(io.Seeker); !ok {
			return fmt.Errorf("%w: part %q source is not seekable", ErrNotRewindable, pt.name)
		}
	}

	for _, pt := range b.parts {
		if pt.src == nil {
			continue
		}
		if _, err := pt.src.(io.Seeker).Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding part %q: %w", pt.name, err)
		}
	}

	b.rearm()

	return nil
}

func (b *Body) rearm() {
	b.idx = 0
	b.cur = nil
	b.consumed = false
	b.trailer = bytes.NewReader([]byte("--" + b.boundary + "--\r\n"))
}
