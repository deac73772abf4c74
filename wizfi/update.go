package wizfi

import (
	"bytes"
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
	"github.com/wizfi/ESP8266-AT-Commands-parser/ringbuf"
)

// ipdCursor tracks an +IPD payload that is still being copied out of a
// buffer.
type ipdCursor struct {
	active bool
	// conn is nil when the payload is discarded.
	conn   *Connection
	source *ringbuf.Buffer
	length int
	total  int
	inPtr  int
}

// Deliver appends bytes received from the module to the live buffer and
// returns how many were accepted. Bytes that do not fit are dropped. It is
// safe to call concurrently with the other methods.
func (s *Session) Deliver(p []byte) int {
	return s.live.Write(p)
}

// Update processes everything the module has sent since the last call. In
// order it
//
//  1. times out the active command once its deadline has passed,
//  2. finishes a pending UART change,
//  3. consumes lines and payload, routing each line to the deferred buffer
//     when it does not belong to the running command,
//  4. copies +IPD payload into the connection buffers,
//  5. calls the data callbacks of completed payloads.
//
// Lines from the deferred buffer are only processed while no command is in
// flight.
func (s *Session) Update() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	s.checkTimeout()
	s.checkUART()
	s.drain()
	s.dispatch()
	s.observe()
	return nil
}

// WaitReady drives Update until no command is in flight. It returns
// ErrTimeout when the command ran into its deadline, or the context error
// if ctx ends first.
func (s *Session) WaitReady(ctx context.Context) error {
	for s.active.kind != cmdIdle {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Update(); err != nil {
			return err
		}
		if s.active.kind == cmdIdle {
			break
		}
		s.pause()
	}
	if s.timedOut {
		return ErrTimeout
	}
	return nil
}

// IsReady returns ErrBusy while a command is in flight.
func (s *Session) IsReady() error {
	if s.active.kind != cmdIdle {
		return ErrBusy
	}
	return nil
}

func (s *Session) checkTimeout() {
	c := s.active
	if c.kind == cmdIdle {
		return
	}
	if s.now()-c.started <= uint32(c.timeout.Milliseconds()) {
		return
	}

	s.finish()
	s.lastOK = false
	s.timedOut = true
	s.metrics.timeouts.WithLabelValues(c.kind.String()).Inc()
	s.logger.Warn("command timeout", zap.Stringer("command", c.kind), zap.Duration("timeout", c.timeout))

	switch c.kind {
	case cmdStart:
		conn := &s.conns[c.conn]
		s.handler.ClientConnectionTimeout(s, conn)
		conn.reset()
	case cmdJoin:
		if s.wifiConnected && !s.gotIP {
			s.handler.DHCPTimeout(s)
		}
	case cmdSend, cmdSendData:
		s.clearSend()
	}
}

// checkUART completes AT+UART as soon as its OK shows up anywhere in the
// live buffer. Whatever follows is sent at the new speed and is garbage at
// the old one, so the buffer is emptied.
func (s *Session) checkUART() {
	if s.active.kind != cmdUART || s.ipd.active {
		return
	}
	if s.live.Find([]byte(at.OK+"\r")) < 0 {
		return
	}
	s.live.Reset()
	s.finish()
	s.lastOK = true
}

// drain consumes tokens until both buffers run dry or a payload waits for
// more bytes. Deferred lines are older than anything in the live buffer, so
// they go first whenever the session is idle.
func (s *Session) drain() {
	for !s.closed {
		if s.ipd.active {
			if !s.feedIPD() {
				return
			}
			continue
		}

		if s.active.kind == cmdIdle {
			if tok, ok := s.deferred.Scan(at.Splitter, s.scratch); ok {
				s.handleToken(string(tok), s.deferred, false)
				continue
			}
		}
		tok, ok := s.live.Scan(at.Splitter, s.scratch)
		if !ok {
			return
		}
		s.handleToken(string(tok), s.live, true)
	}
}

func (s *Session) handleToken(tok string, src *ringbuf.Buffer, live bool) {
	switch {
	case tok == "":
		return
	case tok == at.Prompt:
		if s.awaitingPrompt {
			s.processSendData()
		}
		return
	case strings.HasPrefix(tok, at.IPD) && strings.HasSuffix(tok, ":"):
		s.beginIPD(tok, src)
		return
	}
	s.parseLine(tok, live)
}

// deferLine keeps line for later, when the session is idle again.
func (s *Session) deferLine(line string) {
	if n := s.deferred.Write([]byte(line + at.CRLF)); n < len(line)+len(at.CRLF) {
		s.logger.Warn("deferred buffer full, line dropped", zap.String("line", redact(line)))
		return
	}
	s.metrics.deferred.Inc()
}

func (s *Session) beginIPD(header string, src *ringbuf.Buffer) {
	var h at.IPDHeader
	if !at.ParseIPD(header, &h) {
		s.logger.Warn("malformed +IPD header", zap.String("header", header))
		return
	}

	// A completed payload still waiting for its callback would be
	// overwritten by this one.
	s.dispatch()

	cur := ipdCursor{active: true, source: src, length: h.Length}
	if h.Conn >= 0 && h.Conn < MaxConnections {
		c := &s.conns[h.Conn]
		c.FirstPacket = c.TotalBytesReceived == 0
		c.BytesReceived = h.Length
		c.TotalBytesReceived += h.Length
		c.DataSize = 0
		c.LastPart = false
		if h.HasRemote {
			c.RemoteIP = h.RemoteIP
			c.RemotePort = h.RemotePort
		}
		cur.conn = c
	} else {
		s.logger.Warn("+IPD for unknown link, discarding payload", zap.Int("link", h.Conn), zap.Int("length", h.Length))
	}

	s.totalReceived += uint64(h.Length)
	s.metrics.bytesReceived.Add(float64(h.Length))
	s.ipd = cur
}

// feedIPD copies buffered payload into the connection buffer. It returns
// false while the payload is incomplete and the source has run dry.
func (s *Session) feedIPD() bool {
	cur := &s.ipd
	c := cur.conn
	for cur.total < cur.length {
		var n int
		if c == nil {
			n = cur.source.Discard(cur.length - cur.total)
		} else {
			room := min(len(c.Data)-cur.inPtr, cur.length-cur.total)
			n = cur.source.Read(c.Data[cur.inPtr : cur.inPtr+room])
			cur.inPtr += n
		}
		if n == 0 {
			return false
		}
		cur.total += n

		if c != nil && cur.inPtr == len(c.Data) && cur.total != cur.length {
			c.DataSize = cur.inPtr
			c.LastPart = false
			s.deliver(c)
			cur.inPtr = 0
		}
	}

	if c != nil {
		c.DataSize = cur.inPtr
		c.LastPart = true
		c.callDataReceived = true
	}
	s.ipd = ipdCursor{}
	return true
}

// dispatch calls the data callback of every completed payload.
func (s *Session) dispatch() {
	for i := range s.conns {
		c := &s.conns[i]
		if !c.callDataReceived {
			continue
		}
		c.callDataReceived = false
		s.deliver(c)
	}
}

// deliver hands the valid part of the connection buffer to the handler.
func (s *Session) deliver(c *Connection) {
	if c.FirstPacket {
		s.scanHeaders(c)
	}
	s.metrics.fragments.Inc()
	if c.Client {
		s.handler.ClientConnectionDataReceived(s, c, c.Bytes())
	} else {
		s.handler.ServerConnectionDataReceived(s, c, c.Bytes())
	}
}

// scanHeaders picks Content-Length out of an HTTP header in the first
// packet of a connection.
func (s *Session) scanHeaders(c *Connection) {
	data := c.Bytes()
	if c.ContentLength == 0 {
		if i := bytes.Index(data, []byte(at.HeaderLength)); i >= 0 {
			rest := data[i+len(at.HeaderLength):]
			end := bytes.IndexByte(rest, '\r')
			if end < 0 {
				end = len(rest)
			}
			if v, n := at.ParseInt(string(rest[:end])); n > 0 && v > 0 {
				c.ContentLength = v
			}
		}
	}
	if bytes.Contains(data, []byte("\r\n\r\n")) {
		c.HeadersDone = true
	}
}

// processSendData answers the send prompt with the staged payload, or asks
// the handler for one, followed by the terminator.
func (s *Session) processSendData() {
	s.awaitingPrompt = false
	s.active.kind = cmdSendData
	s.active.expect = at.SendOK

	c := s.sendConn
	var data []byte
	if c != nil {
		data = c.pending
		if len(data) == 0 {
			var n int
			if c.Client {
				n = s.handler.ClientConnectionSendRequest(s, c, s.sendBuf)
			} else {
				n = s.handler.ServerConnectionSendRequest(s, c, s.sendBuf)
			}
			data = s.sendBuf[:max(0, min(n, len(s.sendBuf)))]
		}
		c.waitForPrompt = false
		c.waitingSentRespond = true
	}

	if len(data) > 0 {
		if _, err := s.transport.Write(data); err != nil {
			s.logger.Warn("write payload failed", zap.Error(err))
		}
		s.totalSent += uint64(len(data))
		s.metrics.bytesSent.Add(float64(len(data)))
	}
	if _, err := s.transport.Write([]byte(at.SendTerminator)); err != nil {
		s.logger.Warn("write send terminator failed", zap.Error(err))
	}
	if c != nil {
		c.pending = c.pending[:0]
	}
}

// sendCompleted reports SEND OK to every connection waiting for it.
func (s *Session) sendCompleted() {
	if s.active.kind == cmdSend || s.active.kind == cmdSendData {
		s.finish()
		s.lastOK = true
	}
	s.awaitingPrompt = false
	s.sendConn = nil
	for i := range s.conns {
		c := &s.conns[i]
		if !c.waitingSentRespond {
			continue
		}
		c.waitingSentRespond = false
		if c.Client {
			s.handler.ClientConnectionDataSent(s, c)
		} else {
			s.handler.ServerConnectionDataSent(s, c)
		}
	}
}

// sendFailed reports a failed transfer to every connection involved.
func (s *Session) sendFailed() {
	for i := range s.conns {
		c := &s.conns[i]
		if !c.waitingSentRespond && !c.waitForPrompt {
			continue
		}
		c.waitingSentRespond = false
		c.waitForPrompt = false
		c.pending = c.pending[:0]
		if c.Client {
			s.handler.ClientConnectionDataSentError(s, c)
		} else {
			s.handler.ServerConnectionDataSentError(s, c)
		}
	}
	s.awaitingPrompt = false
	s.sendConn = nil
}

// clearSend forgets a transfer without reporting it.
func (s *Session) clearSend() {
	for i := range s.conns {
		c := &s.conns[i]
		c.waitingSentRespond = false
		c.waitForPrompt = false
		c.pending = c.pending[:0]
	}
	s.awaitingPrompt = false
	s.sendConn = nil
}

func (s *Session) observe() {
	if d := s.live.Dropped(); d > s.seenDropped {
		s.metrics.rxDropped.Add(float64(d - s.seenDropped))
		s.logger.Warn("live buffer overflow", zap.Uint64("dropped", d-s.seenDropped))
		s.seenDropped = d
	}
	s.metrics.liveBuffered.Set(float64(s.live.Len()))
}
