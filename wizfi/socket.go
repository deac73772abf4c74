package wizfi

import (
	"context"
	"fmt"

	"github.com/wizfi/ESP8266-AT-Commands-parser/at"
)

// StartClientConnection opens a link to host:port on the first free slot.
// The slot is marked active right away; ClientConnectionConnected,
// ClientConnectionError or ClientConnectionTimeout tell how it went.
func (s *Session) StartClientConnection(proto Protocol, name, host string, port int, user any) (*Connection, error) {
	if s.active.kind != cmdIdle {
		return nil, ErrBusy
	}
	if !s.wifiConnected {
		return nil, ErrWifiNotConnected
	}
	if proto != TCP && proto != UDP {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrGeneric, proto)
	}
	var c *Connection
	for i := range s.conns {
		if !s.conns[i].Active {
			c = &s.conns[i]
			break
		}
	}
	if c == nil {
		return nil, ErrNoHeap
	}
	if err := s.issue(startCommand(c.Number, proto, at.Escape(host), port)); err != nil {
		return nil, err
	}
	c.reset()
	c.Active = true
	c.Client = true
	c.Name = name
	c.UserParameters = user
	return c, nil
}

// StartClientConnectionTCP opens a TCP link to host:port.
func (s *Session) StartClientConnectionTCP(name, host string, port int, user any) (*Connection, error) {
	return s.StartClientConnection(TCP, name, host, port, user)
}

// StartClientConnectionUDP opens a UDP link to host:port.
func (s *Session) StartClientConnectionUDP(name, host string, port int, user any) (*Connection, error) {
	return s.StartClientConnection(UDP, name, host, port, user)
}

// CloseConnection closes the link of c. The closed callback fires once the
// module confirms.
func (s *Session) CloseConnection(c *Connection) error {
	if err := s.checkLink(c); err != nil {
		return err
	}
	return s.issue(closeCommand(c.Number))
}

// CloseConnectionBlocking closes the link of c and waits for the module.
func (s *Session) CloseConnectionBlocking(ctx context.Context, c *Connection) error {
	if err := s.CloseConnection(c); err != nil {
		return err
	}
	return s.result(ctx)
}

// CloseAllConnections closes every link.
func (s *Session) CloseAllConnections() error {
	return s.issue(closeCommand(allLinks))
}

// CloseAllConnectionsBlocking closes every link and waits for the module.
func (s *Session) CloseAllConnectionsBlocking(ctx context.Context) error {
	if err := s.CloseAllConnections(); err != nil {
		return err
	}
	return s.result(ctx)
}

// AllConnectionsClosed reports whether no slot is active.
func (s *Session) AllConnectionsClosed() bool {
	for i := range s.conns {
		if s.conns[i].Active {
			return false
		}
	}
	return true
}

// ServerEnable starts the TCP server on port.
func (s *Session) ServerEnable(ctx context.Context, port int) error {
	return s.exec(ctx, simpleCommand(cmdServer, fmt.Sprintf(at.CmdServer, port), "AT+CIPSERVER"))
}

// ServerDisable stops the TCP server. Open server links stay up.
func (s *Session) ServerDisable(ctx context.Context) error {
	return s.exec(ctx, simpleCommand(cmdServer, at.CmdServerOff, "AT+CIPSERVER"))
}

// SetServerTimeout sets how many seconds an idle server link stays open.
func (s *Session) SetServerTimeout(ctx context.Context, seconds int) error {
	return s.exec(ctx, simpleCommand(cmdServerTimeout, fmt.Sprintf(at.CmdServerTimeout, seconds), "AT+CIPSTO"))
}

// RequestSendData starts sending on c. When data is empty, the payload is
// requested from the handler once the module prompts for it. At most
// MaxSendSize bytes are sent.
func (s *Session) RequestSendData(c *Connection, data []byte) error {
	if err := s.checkLink(c); err != nil {
		return err
	}
	if err := s.issue(sendCommand(c.Number)); err != nil {
		return err
	}
	c.stage(data)
	c.waitForPrompt = true
	s.sendConn = c
	s.awaitingPrompt = true
	return nil
}

// RequestSendDataBlocking sends data on c and waits for SEND OK.
func (s *Session) RequestSendDataBlocking(ctx context.Context, c *Connection, data []byte) error {
	if err := s.RequestSendData(c, data); err != nil {
		return err
	}
	return s.result(ctx)
}

func (s *Session) checkLink(c *Connection) error {
	if c == nil || c.Number < 0 || c.Number >= MaxConnections || c != &s.conns[c.Number] {
		return ErrInvalidLink
	}
	return nil
}

// Connections returns every slot, indexed by link id.
func (s *Session) Connections() []*Connection {
	conns := make([]*Connection, len(s.conns))
	for i := range s.conns {
		conns[i] = &s.conns[i]
	}
	return conns
}

// Connection returns the slot with link id n.
func (s *Session) Connection(n int) (*Connection, error) {
	if n < 0 || n >= MaxConnections {
		return nil, ErrInvalidLink
	}
	return &s.conns[n], nil
}
