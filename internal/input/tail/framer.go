package tail

import "bytes"

// DefaultMaxLineBytes is the read chunk size and the longest line kept
// intact before it is cut into synthetic lines.
const DefaultMaxLineBytes = 1024

// LineFramer splits a growing byte buffer into lines ending in '\n'.
// Bytes are appended at the back and taken from the front.
type LineFramer struct {
	buf []byte
	max int
}

func NewLineFramer(maxLine int) *LineFramer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &LineFramer{
		buf: make([]byte, 0, maxLine),
		max: maxLine,
	}
}

func (f *LineFramer) Append(p []byte) {
	f.buf = append(f.buf, p...)
}

func (f *LineFramer) Len() int {
	return len(f.buf)
}

// Next returns the next complete line including its terminator. When no
// terminator is buffered but at least max bytes are, the whole buffer is
// returned as one line so memory stays bounded.
func (f *LineFramer) Next() ([]byte, bool) {
	if i := bytes.IndexByte(f.buf, '\n'); i >= 0 {
		return f.take(i + 1), true
	}
	if len(f.buf) >= f.max {
		return f.take(len(f.buf)), true
	}
	return nil, false
}

// take removes and returns the first n bytes. The returned slice is a copy;
// the buffer's backing array is reused.
func (f *LineFramer) take(n int) []byte {
	line := make([]byte, n)
	copy(line, f.buf[:n])
	f.buf = append(f.buf[:0], f.buf[n:]...)
	return line
}
