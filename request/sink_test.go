package request_test

import (
	"bytes"
	"testing"

	"github.com/adamwoolhether/mimic/request"
)

func TestByteSink_AppendAccumulates(t *testing.T) {
	s := request.NewByteSink(8)

	chunks := [][]byte{
		[]byte("hello"),
		[]byte(", "),
		nil,
		[]byte("world"),
	}

	var total int
	for _, c := range chunks {
		total += len(c)
		if got := s.Append(c); got != total {
			t.Errorf("after append, exp len %d; got %d", total, got)
		}
	}

	if !bytes.Equal(s.Bytes(), []byte("hello, world")) {
		t.Errorf("exp %q; got %q", "hello, world", s.Bytes())
	}
}

func TestByteSink_ResetKeepsCapacity(t *testing.T) {
	s := request.NewByteSink(4)
	s.Append(bytes.Repeat([]byte("x"), 1000))

	capBefore := cap(s.Bytes())
	s.Reset()

	if s.Len() != 0 {
		t.Errorf("exp len 0 after reset; got %d", s.Len())
	}

	s.Append([]byte("y"))
	if cap(s.Bytes()) != capBefore {
		t.Errorf("exp capacity %d preserved; got %d", capBefore, cap(s.Bytes()))
	}
}

func TestByteSink_Write(t *testing.T) {
	s := request.NewByteSink(0)

	n, err := s.Write([]byte("abc"))
	if err != nil {
		t.Fatalf("exp nil err; got %v", err)
	}
	if n != 3 {
		t.Errorf("exp 3 bytes written; got %d", n)
	}
	if s.String() != "abc" {
		t.Errorf("exp %q; got %q", "abc", s.String())
	}
}
