package scratch

import (
	"bytes"
	"io"
	"sync"
	"testing"
)

func TestFileBufferRoundTrip(t *testing.T) {
	sp, err := NewScratchSpace(t.TempDir())
	if err != nil {
		t.Fatalf("new scratch space: %v", err)
	}
	defer sp.Close()

	buf, err := sp.NewBuffer()
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	// Span several pages to exercise the page mapping.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1024) // 16 KiB
	if _, err := buf.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != int64(len(payload)) {
		t.Fatalf("len = %d, want %d", buf.Len(), len(payload))
	}

	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	got, err := io.ReadAll(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: %d bytes vs %d", len(got), len(payload))
	}

	if err := buf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st := sp.Stats()
	if st.Outstanding != 0 {
		t.Fatalf("outstanding = %d after close", st.Outstanding)
	}
	if st.FreePages != st.TotalPages {
		t.Fatalf("free pages %d != total pages %d", st.FreePages, st.TotalPages)
	}
}

func TestPageReuse(t *testing.T) {
	sp, err := NewScratchSpace(t.TempDir())
	if err != nil {
		t.Fatalf("new scratch space: %v", err)
	}
	defer sp.Close()

	b1, _ := sp.NewBuffer()
	b1.Write(make([]byte, 3*pageSize))
	b1.Close()
	pagesAfterFirst := sp.Stats().TotalPages

	b2, _ := sp.NewBuffer()
	b2.Write(make([]byte, 2*pageSize))
	defer b2.Close()

	if got := sp.Stats().TotalPages; got != pagesAfterFirst {
		t.Fatalf("pages grew from %d to %d despite free list", pagesAfterFirst, got)
	}
}

func TestConcurrentBuffers(t *testing.T) {
	sp, err := NewScratchSpace(t.TempDir())
	if err != nil {
		t.Fatalf("new scratch space: %v", err)
	}
	defer sp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			buf, err := sp.NewBuffer()
			if err != nil {
				t.Errorf("new buffer: %v", err)
				return
			}
			defer buf.Close()
			payload := bytes.Repeat([]byte{seed}, 2*pageSize+17)
			if _, err := buf.Write(payload); err != nil {
				t.Errorf("write: %v", err)
				return
			}
			buf.Seek(0, io.SeekStart)
			got, err := io.ReadAll(buf)
			if err != nil {
				t.Errorf("read: %v", err)
				return
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("buffer %d corrupted", seed)
			}
		}(byte(i + 1))
	}
	wg.Wait()

	if st := sp.Stats(); st.Outstanding != 0 {
		t.Fatalf("outstanding = %d", st.Outstanding)
	}
}

func TestMemoryBufferRoundTrip(t *testing.T) {
	buf := NewMemoryBuffer(16)
	if _, err := buf.Write([]byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf.Seek(0, io.SeekStart)
	got, err := io.ReadAll(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("unexpected contents: %q", got)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := buf.Read(make([]byte, 1)); err == nil {
		t.Fatalf("read after close should fail")
	}
}

func TestCloseWithOutstandingBuffers(t *testing.T) {
	sp, err := NewScratchSpace(t.TempDir())
	if err != nil {
		t.Fatalf("new scratch space: %v", err)
	}
	buf, _ := sp.NewBuffer()
	buf.Write([]byte("x"))
	if err := sp.Close(); err == nil {
		t.Fatalf("expected error closing with outstanding buffer")
	}
	// Idempotent.
	if err := sp.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
