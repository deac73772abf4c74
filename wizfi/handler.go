package wizfi

// Handler receives the events produced while the session processes module
// output. All methods are called from inside Update, on the goroutine
// driving the session, so they may issue further commands; those fail with
// ErrBusy while a command is still in flight.
//
// Embed NopHandler to implement only the events of interest.
type Handler interface {
	DeviceReady(s *Session)
	WatchdogReset(s *Session)

	WifiConnected(s *Session)
	WifiDisconnected(s *Session)
	WifiConnectFailed(s *Session, reason WifiConnectError)
	WifiGotIP(s *Session)
	WifiIPSet(s *Session)
	DHCPTimeout(s *Session)
	WifiDetected(s *Session, aps []AccessPoint)

	ServerConnectionActive(s *Session, c *Connection)
	ServerConnectionClosed(s *Session, c *Connection)
	ServerConnectionDataReceived(s *Session, c *Connection, data []byte)
	// ServerConnectionSendRequest may fill buf with the payload to send and
	// return its length. It is asked only when nothing was staged by
	// RequestSendData.
	ServerConnectionSendRequest(s *Session, c *Connection, buf []byte) int
	ServerConnectionDataSent(s *Session, c *Connection)
	ServerConnectionDataSentError(s *Session, c *Connection)

	ClientConnectionConnected(s *Session, c *Connection)
	ClientConnectionError(s *Session, c *Connection)
	ClientConnectionTimeout(s *Session, c *Connection)
	ClientConnectionClosed(s *Session, c *Connection)
	ClientConnectionDataReceived(s *Session, c *Connection, data []byte)
	// ClientConnectionSendRequest is the client side counterpart of
	// ServerConnectionSendRequest.
	ClientConnectionSendRequest(s *Session, c *Connection, buf []byte) int
	ClientConnectionDataSent(s *Session, c *Connection)
	ClientConnectionDataSentError(s *Session, c *Connection)

	PingStarted(s *Session, address string)
	PingFinished(s *Session, p Ping)

	FirmwareUpdateStatus(s *Session, status FirmwareUpdateStatus)
	FirmwareUpdateSuccess(s *Session)
	FirmwareUpdateError(s *Session)

	ConnectedStationsDetected(s *Session, stations []ConnectedStation)
}

// NopHandler ignores every event.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) DeviceReady(*Session) {}
func (NopHandler) WatchdogReset(*Session) {}
func (NopHandler) WifiConnected(*Session) {}
func (NopHandler) WifiDisconnected(*Session) {}
func (NopHandler) WifiConnectFailed(*Session, WifiConnectError) {}
func (NopHandler) WifiGotIP(*Session) {}
func (NopHandler) WifiIPSet(*Session) {}
func (NopHandler) DHCPTimeout(*Session) {}
func (NopHandler) WifiDetected(*Session, []AccessPoint) {}
func (NopHandler) ServerConnectionActive(*Session, *Connection) {}
func (NopHandler) ServerConnectionClosed(*Session, *Connection) {}
func (NopHandler) ServerConnectionDataSent(*Session, *Connection) {}
func (NopHandler) ClientConnectionConnected(*Session, *Connection) {}
func (NopHandler) ClientConnectionError(*Session, *Connection) {}
func (NopHandler) ClientConnectionTimeout(*Session, *Connection) {}
func (NopHandler) ClientConnectionClosed(*Session, *Connection) {}
func (NopHandler) ClientConnectionDataSent(*Session, *Connection) {}
func (NopHandler) PingStarted(*Session, string) {}
func (NopHandler) PingFinished(*Session, Ping) {}
func (NopHandler) FirmwareUpdateStatus(*Session, FirmwareUpdateStatus) {}
func (NopHandler) FirmwareUpdateSuccess(*Session) {}
func (NopHandler) FirmwareUpdateError(*Session) {}
func (NopHandler) ConnectedStationsDetected(*Session, []ConnectedStation) {}

func (NopHandler) ServerConnectionDataReceived(*Session, *Connection, []byte) {}
func (NopHandler) ServerConnectionSendRequest(*Session, *Connection, []byte) int {
	return 0
}
func (NopHandler) ServerConnectionDataSentError(*Session, *Connection) {}

func (NopHandler) ClientConnectionDataReceived(*Session, *Connection, []byte) {}
func (NopHandler) ClientConnectionSendRequest(*Session, *Connection, []byte) int {
	return 0
}
func (NopHandler) ClientConnectionDataSentError(*Session, *Connection) {}
