package wizfi

import "fmt"

// Connection is one of the module's link slots. Its index is assigned by
// the module and never changes.
type Connection struct {
	// Number is the link id, equal to the slot index.
	Number int
	Active bool
	// Client is set for links opened by StartClientConnection, clear for
	// links accepted by the server.
	Client     bool
	RemoteIP   [4]byte
	RemotePort int
	// BytesReceived is the payload length announced by the current +IPD.
	BytesReceived      int
	TotalBytesReceived int
	// Data is the receive buffer; DataSize bytes of it are valid.
	Data     []byte
	DataSize int
	// LastPart is set on the fragment that completes an +IPD payload.
	LastPart bool
	// ContentLength is taken from an HTTP header in the first packet.
	ContentLength int
	FirstPacket   bool
	HeadersDone   bool
	// Name and UserParameters are free for the caller.
	Name           string
	UserParameters any

	callDataReceived   bool
	waitForPrompt      bool
	waitingSentRespond bool
	pending            []byte
}

// Bytes returns the valid part of the receive buffer.
func (c *Connection) Bytes() []byte {
	return c.Data[:c.DataSize]
}

func (c *Connection) String() string {
	role := "server"
	if c.Client {
		role = "client"
	}
	return fmt.Sprintf("link %d (%s)", c.Number, role)
}

// reset clears every flag and counter. The slot keeps its number and its
// receive buffer.
func (c *Connection) reset() {
	*c = Connection{
		Number:  c.Number,
		Data:    c.Data,
		pending: c.pending[:0],
	}
}

// stage copies p into the send slot, capped at MaxSendSize.
func (c *Connection) stage(p []byte) {
	c.pending = append(c.pending[:0], p[:min(len(p), MaxSendSize)]...)
}

func newConnections(bufferSize int, shared bool) [MaxConnections]Connection {
	var conns [MaxConnections]Connection
	var common []byte
	if shared {
		common = make([]byte, bufferSize)
	}
	for i := range conns {
		conns[i].Number = i
		if shared {
			conns[i].Data = common
		} else {
			conns[i].Data = make([]byte, bufferSize)
		}
	}
	return conns
}
