package wizfi

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. The session's receive goroutine continuously reads from the
// transport, so reads block until data is available like a real serial port
// would. Replies registered with Reply are queued whenever a matching
// command is written, which is enough to script a module.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	leftover []byte
	closed   bool
	written  bytes.Buffer
	replies  []scriptedReply
	bauds    []int
}

type scriptedReply struct {
	prefix string
	reply  string
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 256),
	}
}

// Reply answers every written chunk starting with prefix with reply. The
// first matching registration wins.
func (t *TestTransport) Reply(prefix, reply string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, scriptedReply{prefix: prefix, reply: reply})
	return t
}

// Module registers the replies of a module that completes the init sequence
// with echo enabled.
func (t *TestTransport) Module() *TestTransport {
	return t.
		Reply("AT+RST\r\n", "AT+RST\r\r\n\r\nOK\r\n\r\n ets Jan  8 2013\r\nready\r\n").
		Reply("AT\r\n", "AT\r\r\n\r\nOK\r\n").
		Reply("ATE1\r\n", "ATE1\r\r\n\r\nOK\r\n").
		Reply("AT+CIPMUX=1\r\n", "AT+CIPMUX=1\r\r\n\r\nOK\r\n").
		Reply("AT+CIPDINFO=1\r\n", "AT+CIPDINFO=1\r\r\n\r\nOK\r\n").
		Reply("AT+CIPSTAMAC_CUR?\r\n", "AT+CIPSTAMAC_CUR?\r\r\n+CIPSTAMAC_CUR:\"18:fe:34:a1:b2:c3\"\r\n\r\nOK\r\n").
		Reply("AT+CIPAPMAC_CUR?\r\n", "AT+CIPAPMAC_CUR?\r\r\n+CIPAPMAC_CUR:\"1a:fe:34:a1:b2:c3\"\r\n\r\nOK\r\n").
		Reply("AT+CIPAP_CUR?\r\n", "AT+CIPAP_CUR?\r\r\n+CIPAP_CUR:ip:\"192.168.4.1\"\r\n+CIPAP_CUR:gateway:\"192.168.4.1\"\r\n+CIPAP_CUR:netmask:\"255.255.255.0\"\r\n\r\nOK\r\n")
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.written.Write(p)
	for _, r := range t.replies {
		if strings.HasPrefix(string(p), r.prefix) {
			t.readChan <- []byte(r.reply)
			break
		}
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.leftover) == 0 {
		data, ok := <-t.readChan
		if !ok {
			return 0, io.EOF
		}
		t.leftover = data
	}
	n = copy(p, t.leftover)
	t.leftover = t.leftover[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SetBaudRate records the requested line speed.
func (t *TestTransport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bauds = append(t.bauds, baud)
	return nil
}

// BaudRates returns every line speed requested so far.
func (t *TestTransport) BaudRates() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.bauds...)
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the module.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns everything the session wrote so far.
func (t *TestTransport) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// TakeWritten returns everything written since the previous call.
func (t *TestTransport) TakeWritten() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.written.String()
	t.written.Reset()
	return s
}

var (
	_ Transport      = (*TestTransport)(nil)
	_ BaudRateSetter = (*TestTransport)(nil)
)
