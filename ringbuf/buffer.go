// Package ringbuf provides the fixed-capacity byte store the session uses for
// bytes arriving from the module and for lines it has to look at again later.
package ringbuf

import (
	"bufio"
	"bytes"
	"sync"
)

// DefaultSize is the capacity used when New is given a non-positive size.
const DefaultSize = 1024

// Buffer is a circular byte buffer. Writes never block: whatever does not
// fit is dropped and counted. One goroutine may write while another reads.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	head    int // next read position
	count   int
	dropped uint64
}

// New returns an empty buffer holding at most size bytes.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{data: make([]byte, size)}
}

// Cap returns the capacity of the buffer in bytes.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Free returns the number of bytes that can be written without dropping.
func (b *Buffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) - b.count
}

// Dropped returns the total number of bytes rejected by Write so far.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Write appends as much of p as fits and returns the number of bytes
// accepted. The remainder is discarded.
func (b *Buffer) Write(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(len(p), len(b.data)-b.count)
	tail := (b.head + b.count) % len(b.data)
	for i := 0; i < n; {
		c := copy(b.data[tail:], p[i:n])
		i += c
		tail = (tail + c) % len(b.data)
	}
	b.count += n
	b.dropped += uint64(len(p) - n)
	return n
}

// Read removes up to len(p) bytes from the buffer into p.
func (b *Buffer) Read(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.peek(p)
	b.discard(n)
	return n
}

// Peek copies up to len(p) buffered bytes into p without consuming them.
func (b *Buffer) Peek(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peek(p)
}

// Discard drops up to n bytes from the front of the buffer.
func (b *Buffer) Discard(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n = min(n, b.count)
	b.discard(n)
	return n
}

// ReadLine removes one line, terminator included, and copies it into p. It
// returns 0 when no complete line is buffered. A line longer than p is cut
// at len(p) once that many bytes are waiting, so the reader never stalls on
// unterminated input.
func (b *Buffer) ReadLine(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.index([]byte{'\n'})
	switch {
	case i >= 0 && i < len(p):
		n := b.peek(p[:i+1])
		b.discard(n)
		return n
	case b.count >= len(p) && len(p) > 0:
		n := b.peek(p)
		b.discard(n)
		return n
	}
	return 0
}

// Scan applies split to the buffered bytes, looking at no more than
// len(scratch) of them, and consumes what split advances over. The returned
// token aliases scratch. If split wants more data but scratch is already
// full, the whole of scratch is returned as one token.
func (b *Buffer) Scan(split bufio.SplitFunc, scratch []byte) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.peek(scratch)
	if n == 0 {
		return nil, false
	}
	advance, token, err := split(scratch[:n], false)
	if err != nil || advance <= 0 {
		if n == len(scratch) {
			b.discard(n)
			return scratch[:n], true
		}
		return nil, false
	}
	b.discard(min(advance, n))
	return token, true
}

// Find returns the offset of the first occurrence of needle, or -1.
func (b *Buffer) Find(needle []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index(needle)
}

// HasPrefix reports whether the buffered bytes start with prefix.
func (b *Buffer) HasPrefix(prefix []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(prefix) > b.count {
		return false
	}
	for i, c := range prefix {
		if b.at(i) != c {
			return false
		}
	}
	return true
}

// Reset empties the buffer. The drop counter is kept.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

func (b *Buffer) at(i int) byte {
	return b.data[(b.head+i)%len(b.data)]
}

func (b *Buffer) peek(p []byte) int {
	n := min(len(p), b.count)
	first := min(n, len(b.data)-b.head)
	copy(p, b.data[b.head:b.head+first])
	copy(p[first:n], b.data[:n-first])
	return n
}

func (b *Buffer) discard(n int) {
	b.head = (b.head + n) % len(b.data)
	b.count -= n
	if b.count == 0 {
		b.head = 0
	}
}

func (b *Buffer) index(needle []byte) int {
	if len(needle) == 0 {
		return 0
	}
	if b.head+b.count <= len(b.data) {
		return bytes.Index(b.data[b.head:b.head+b.count], needle)
	}
	for i := 0; i+len(needle) <= b.count; i++ {
		match := true
		for j, c := range needle {
			if b.at(i+j) != c {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
