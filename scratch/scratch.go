// Package scratch provides temporary storage for intermediate decode
// output. A ScratchSpace hands out disk-backed buffers carved out of a
// single temp file so that long filter chains over large streams do not
// hold every intermediate stage in memory. Released buffers return their
// pages to a free list for reuse.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// pageSize is the allocation granularity within the scratch file.
const pageSize = 4096

// Buffer is one stage's output storage: written once by a decoder, then
// read back by the next stage. Close releases the underlying storage.
type Buffer interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	// Len reports the number of bytes written so far.
	Len() int64
}

// Stats describes the current allocation state of a ScratchSpace.
type Stats struct {
	TotalPages  int // pages ever allocated in the backing file
	FreePages   int // pages currently on the free list
	Outstanding int // buffers handed out and not yet closed
}

// ScratchSpace is a shared pool of disk-backed buffers. It is safe for
// concurrent use by multiple in-flight decode calls; no lock is held
// while a buffer's contents are being read or written.
type ScratchSpace struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	pages       int
	free        []int
	outstanding int
	closed      bool
}

// NewScratchSpace creates a scratch pool backed by a temp file in dir
// (os.TempDir when dir is empty). The file is removed when the space is
// closed.
func NewScratchSpace(dir string) (*ScratchSpace, error) {
	f, err := os.CreateTemp(dir, "pdfstream-scratch-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	return &ScratchSpace{file: f, path: f.Name()}, nil
}

// NewBuffer hands out a fresh empty buffer. The caller owns it until
// Close.
func (s *ScratchSpace) NewBuffer() (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("scratch: space is closed")
	}
	s.outstanding++
	return &fileBuffer{space: s}, nil
}

// Stats reports the allocation state. Intended for diagnostics and
// leak-checking in tests.
func (s *ScratchSpace) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{TotalPages: s.pages, FreePages: len(s.free), Outstanding: s.outstanding}
}

// Close tears down the backing file. Buffers still outstanding become
// unusable; closing with outstanding buffers is reported as an error but
// the file is removed regardless.
func (s *ScratchSpace) Close() error {
	s.mu.Lock()
	outstanding := s.outstanding
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	f := s.file
	s.file = nil
	s.mu.Unlock()

	err := f.Close()
	if rmErr := os.Remove(s.path); err == nil {
		err = rmErr
	}
	if err == nil && outstanding > 0 {
		err = fmt.Errorf("scratch: closed with %d outstanding buffers", outstanding)
	}
	return err
}

// allocPage returns a page index, reusing a freed page when possible.
func (s *ScratchSpace) allocPage() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("scratch: space is closed")
	}
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		return idx, nil
	}
	idx := s.pages
	s.pages++
	return idx, nil
}

// releasePages returns a buffer's pages to the free list.
func (s *ScratchSpace) releasePages(pages []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--
	if s.closed {
		return
	}
	s.free = append(s.free, pages...)
}

// fileBuffer is a Buffer stored as a list of pages in the scratch file.
// A fileBuffer is used by a single goroutine; the shared file is accessed
// with ReadAt/WriteAt so buffers never contend on a file offset.
type fileBuffer struct {
	space  *ScratchSpace
	pages  []int
	size   int64
	pos    int64
	closed bool
}

func (b *fileBuffer) Len() int64 { return b.size }

func (b *fileBuffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("scratch: write on closed buffer")
	}
	written := 0
	for len(p) > 0 {
		page := int(b.pos / pageSize)
		off := b.pos % pageSize
		for page >= len(b.pages) {
			idx, err := b.space.allocPage()
			if err != nil {
				return written, err
			}
			b.pages = append(b.pages, idx)
		}
		n := pageSize - off
		if int64(len(p)) < n {
			n = int64(len(p))
		}
		fileOff := int64(b.pages[page])*pageSize + off
		if _, err := b.space.file.WriteAt(p[:n], fileOff); err != nil {
			return written, fmt.Errorf("scratch: write page %d: %w", b.pages[page], err)
		}
		p = p[n:]
		b.pos += n
		written += int(n)
	}
	if b.pos > b.size {
		b.size = b.pos
	}
	return written, nil
}

func (b *fileBuffer) Read(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("scratch: read on closed buffer")
	}
	if b.pos >= b.size {
		return 0, io.EOF
	}
	if remaining := b.size - b.pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	read := 0
	for len(p) > 0 {
		page := int(b.pos / pageSize)
		off := b.pos % pageSize
		n := pageSize - off
		if int64(len(p)) < n {
			n = int64(len(p))
		}
		fileOff := int64(b.pages[page])*pageSize + off
		if _, err := b.space.file.ReadAt(p[:n], fileOff); err != nil {
			return read, fmt.Errorf("scratch: read page %d: %w", b.pages[page], err)
		}
		p = p[n:]
		b.pos += n
		read += int(n)
	}
	return read, nil
}

func (b *fileBuffer) Seek(offset int64, whence int) (int64, error) {
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
		abs = b.size + offset
	default:
		return 0, errors.New("scratch: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("scratch: negative seek position")
	}
	b.pos = abs
	return abs, nil
}

// Close releases the buffer's pages back to the pool. Safe to call more
// than once.
func (b *fileBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.space.releasePages(b.pages)
	b.pages = nil
	return nil
}
