package scratch

import (
	"errors"
	"io"
)

// NewMemoryBuffer returns an in-memory Buffer. sizeHint is a best-effort
// estimate of the bytes that will be written (not a bound); it only
// presizes the backing slice to reduce reallocations.
func NewMemoryBuffer(sizeHint int64) Buffer {
	const maxHint = 64 << 20
	if sizeHint < 0 {
		sizeHint = 0
	}
	if sizeHint > maxHint {
		sizeHint = maxHint
	}
	return &memBuffer{data: make([]byte, 0, sizeHint)}
}

type memBuffer struct {
	data   []byte
	pos    int64
	closed bool
}

func (b *memBuffer) Len() int64 { return int64(len(b.data)) }

func (b *memBuffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("scratch: write on closed buffer")
	}
	// Writes land at the current position, growing the slice as needed.
	if gap := b.pos - int64(len(b.data)); gap > 0 {
		b.data = append(b.data, make([]byte, gap)...)
	}
	n := copy(b.data[b.pos:], p)
	b.data = append(b.data, p[n:]...)
	b.pos += int64(len(p))
	return len(p), nil
}

func (b *memBuffer) Read(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("scratch: read on closed buffer")
	}
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *memBuffer) Seek(offset int64, whence int) (int64, error) {
	if b.closed {
		return 0, errors.New("scratch: seek on closed buffer")
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("scratch: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("scratch: negative seek position")
	}
	b.pos = abs
	return abs, nil
}

func (b *memBuffer) Close() error {
	b.closed = true
	b.data = nil
	return nil
}
