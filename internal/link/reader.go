package link

import (
	"bytes"
	"errors"
	"io"
)

const defaultMaxLineLength = 256

var errLineTooLong = errors.New("line exceeds maximum length")

// lineReader splits the device byte stream into newline-terminated lines.
// A read that returns no data (tty read timeout, io.EOF) is an idle tick,
// not an error.
type lineReader struct {
	r          io.Reader
	chunk      []byte
	pending    bytes.Buffer
	max        int
	discarding bool
}

func newLineReader(r io.Reader, max int) *lineReader {
	if max <= 0 {
		max = defaultMaxLineLength
	}
	return &lineReader{
		r:     r,
		chunk: make([]byte, 128),
		max:   max,
	}
}

// next returns the next complete line without its terminator. ok is false
// when the underlying read did not complete a line. Lines longer than max
// are dropped and reported once with errLineTooLong.
func (lr *lineReader) next() (line string, ok bool, err error) {
	if line, ok, err := lr.take(); ok || err != nil {
		return line, ok, err
	}

	n, rerr := lr.r.Read(lr.chunk)
	if n > 0 {
		lr.pending.Write(lr.chunk[:n])
	}
	if rerr != nil && !errors.Is(rerr, io.EOF) {
		return "", false, rerr
	}

	if line, ok, err := lr.take(); ok || err != nil {
		return line, ok, err
	}

	if lr.pending.Len() > lr.max {
		lr.pending.Reset()
		if !lr.discarding {
			lr.discarding = true
			return "", false, errLineTooLong
		}
	}
	return "", false, nil
}

func (lr *lineReader) take() (string, bool, error) {
	for {
		i := bytes.IndexByte(lr.pending.Bytes(), '\n')
		if i < 0 {
			return "", false, nil
		}
		raw := lr.pending.Next(i + 1)
		if lr.discarding {
			// tail of an oversized line, already reported
			lr.discarding = false
			continue
		}
		line := bytes.TrimRight(raw, "\r\n")
		if len(line) > lr.max {
			return "", false, errLineTooLong
		}
		return string(line), true, nil
	}
}
