package ringbuf

import (
	"bufio"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTruncatesOnOverflow(t *testing.T) {
	b := New(8)

	assert.Equal(t, 5, b.Write([]byte("hello")))
	assert.Equal(t, 3, b.Write([]byte("world")))
	assert.Equal(t, 8, b.Len())
	assert.Equal(t, 0, b.Free())
	assert.Equal(t, uint64(2), b.Dropped())

	p := make([]byte, 16)
	n := b.Read(p)
	assert.Equal(t, "hellowor", string(p[:n]))
	assert.Equal(t, 0, b.Len())
}

func TestDefaultSize(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Cap())
	assert.Equal(t, DefaultSize, New(-3).Cap())
}

func TestWrapAround(t *testing.T) {
	b := New(8)
	p := make([]byte, 8)

	b.Write([]byte("abcdef"))
	require.Equal(t, 4, b.Read(p[:4]))
	b.Write([]byte("ghijk"))

	assert.Equal(t, 7, b.Len())
	assert.Equal(t, 2, b.Find([]byte("gh")))
	assert.Equal(t, 4, b.Find([]byte("ijk")))
	assert.Equal(t, -1, b.Find([]byte("xy")))
	assert.True(t, b.HasPrefix([]byte("efg")))
	assert.False(t, b.HasPrefix([]byte("fg")))

	n := b.Peek(p)
	assert.Equal(t, "efghijk", string(p[:n]))
	assert.Equal(t, 7, b.Len(), "peek must not consume")

	n = b.Read(p)
	assert.Equal(t, "efghijk", string(p[:n]))
}

func TestReadLine(t *testing.T) {
	t.Run("complete line", func(t *testing.T) {
		b := New(64)
		b.Write([]byte("OK\r\nERR"))

		p := make([]byte, 32)
		n := b.ReadLine(p)
		assert.Equal(t, "OK\r\n", string(p[:n]))
		assert.Zero(t, b.ReadLine(p), "partial line stays buffered")
		assert.Equal(t, 3, b.Len())
	})

	t.Run("overlong line is cut", func(t *testing.T) {
		b := New(64)
		b.Write([]byte("0123456789"))

		p := make([]byte, 4)
		n := b.ReadLine(p)
		assert.Equal(t, "0123", string(p[:n]))
		assert.Equal(t, 6, b.Len())
	})
}

func TestScan(t *testing.T) {
	b := New(64)
	b.Write([]byte("first\nsecond\nthi"))
	scratch := make([]byte, 32)

	tok, ok := b.Scan(bufio.ScanLines, scratch)
	require.True(t, ok)
	assert.Equal(t, "first", string(tok))

	tok, ok = b.Scan(bufio.ScanLines, scratch)
	require.True(t, ok)
	assert.Equal(t, "second", string(tok))

	_, ok = b.Scan(bufio.ScanLines, scratch)
	assert.False(t, ok)
	assert.Equal(t, 3, b.Len())

	t.Run("full scratch forces a token", func(t *testing.T) {
		b := New(64)
		b.Write([]byte("abcdefgh"))
		tok, ok := b.Scan(bufio.ScanLines, make([]byte, 4))
		require.True(t, ok)
		assert.Equal(t, "abcd", string(tok))
		assert.Equal(t, 4, b.Len())
	})
}

func TestResetAndDiscard(t *testing.T) {
	b := New(16)
	b.Write([]byte("> payload"))

	assert.Equal(t, 2, b.Discard(2))
	assert.True(t, b.HasPrefix([]byte("payload")))
	assert.Equal(t, 7, b.Discard(100))

	b.Write([]byte("xyz"))
	b.Reset()
	assert.Zero(t, b.Len())
	assert.Equal(t, 16, b.Free())
}
