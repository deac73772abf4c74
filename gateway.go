package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

// pollInterval is how often the gateway drives the session.
const pollInterval = 5 * time.Millisecond

// reply is an echo payload waiting to be sent back on a server link.
type reply struct {
	conn *wizfi.Connection
	data []byte
}

// Gateway owns a session and runs the configured echo traffic over it.
// Everything except Status runs on the goroutine that calls Run; the module
// calls back into the gateway from there too.
type Gateway struct {
	wizfi.NopHandler

	config  EchoConfig
	logger  *zap.Logger
	session *wizfi.Session
	limit   *rate.Limiter

	client  *wizfi.Connection
	dialing bool
	replies []reply
	echoed  atomic.Uint64

	status atomic.Pointer[wizfi.Status]
}

// NewGateway creates a gateway for the given echo settings. The session is
// attached with Attach once it has been created with the gateway as its
// handler.
func NewGateway(config EchoConfig, logger *zap.Logger) *Gateway {
	return &Gateway{
		config: config,
		logger: logger,
		limit:  rate.NewLimiter(rate.Every(config.Interval), 1),
	}
}

// Attach binds the session and publishes its first status.
func (g *Gateway) Attach(s *wizfi.Session) {
	g.session = s
	g.publish()
}

// Start joins the network and, in server mode, enables the server.
func (g *Gateway) Start(ctx context.Context, wifi WifiConfig) error {
	if wifi.SSID != "" {
		if err := g.session.SetMode(ctx, wizfi.ModeSTAAP); err != nil {
			return err
		}
		g.logger.Info("Joining network", zap.String("ssid", wifi.SSID))
		if err := g.session.WifiConnectBlocking(ctx, wifi.SSID, wifi.Password); err != nil {
			return err
		}
		if err := g.session.GetSTAIPBlocking(ctx); err != nil {
			return err
		}
	}
	if g.config.Mode == EchoServer {
		if err := g.session.ServerEnable(ctx, g.config.Port); err != nil {
			return err
		}
		g.logger.Info("Echo server listening", zap.Int("port", g.config.Port))
	}
	g.publish()
	return nil
}

// Run drives the session until ctx ends or the module goes away.
func (g *Gateway) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := g.session.Update(); err != nil {
			return err
		}
		g.step()
		g.publish()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.session.Done():
			if err := g.session.Update(); err != nil {
				return err
			}
			return g.session.Err()
		case <-ticker.C:
		}
	}
}

// step issues at most one command when the session is idle.
func (g *Gateway) step() {
	if g.session.IsReady() != nil {
		return
	}
	switch g.config.Mode {
	case EchoClient:
		g.stepClient()
	case EchoServer:
		g.stepServer()
	}
}

func (g *Gateway) stepClient() {
	if !g.session.WifiConnected() || g.dialing {
		return
	}
	if g.client == nil {
		if !g.limit.Allow() {
			return
		}
		c, err := g.session.StartClientConnectionTCP("echo", g.config.Host, g.config.Port, nil)
		if err != nil {
			g.logger.Warn("Failed to start echo connection", zap.Error(err))
			return
		}
		g.client = c
		g.dialing = true
		return
	}
	if !g.limit.Allow() {
		return
	}
	if err := g.session.RequestSendData(g.client, []byte(g.config.Message)); err != nil {
		g.logger.Warn("Failed to send echo request", zap.Error(err))
	}
}

func (g *Gateway) stepServer() {
	if len(g.replies) == 0 || !g.limit.Allow() {
		return
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	if err := g.session.RequestSendData(r.conn, r.data); err != nil && !errors.Is(err, wizfi.ErrBusy) {
		g.logger.Warn("Failed to send echo reply", zap.Stringer("conn", r.conn), zap.Error(err))
	}
}

// dropReplies forgets queued replies for a link that went away.
func (g *Gateway) dropReplies(c *wizfi.Connection) {
	kept := g.replies[:0]
	for _, r := range g.replies {
		if r.conn != c {
			kept = append(kept, r)
		}
	}
	g.replies = kept
}

func (g *Gateway) publish() {
	st := g.session.Status()
	g.status.Store(&st)
}

// Status returns the latest published session snapshot. It is safe to call
// from any goroutine.
func (g *Gateway) Status() (wizfi.Status, bool) {
	st := g.status.Load()
	if st == nil {
		return wizfi.Status{}, false
	}
	return *st, true
}

// Echoed returns the number of echo payloads received.
func (g *Gateway) Echoed() uint64 {
	return g.echoed.Load()
}

func (g *Gateway) WifiConnected(*wizfi.Session) {
	g.logger.Info("Wifi connected")
}

func (g *Gateway) WifiDisconnected(*wizfi.Session) {
	g.logger.Warn("Wifi disconnected")
	g.client = nil
	g.dialing = false
	g.replies = g.replies[:0]
}

func (g *Gateway) WifiGotIP(*wizfi.Session) {
	g.logger.Info("Got IP address")
}

func (g *Gateway) WifiConnectFailed(_ *wizfi.Session, reason wizfi.WifiConnectError) {
	g.logger.Error("Failed to join network", zap.Stringer("reason", reason))
}

func (g *Gateway) DHCPTimeout(*wizfi.Session) {
	g.logger.Warn("Joined network but DHCP timed out")
}

func (g *Gateway) WatchdogReset(*wizfi.Session) {
	g.logger.Warn("Module restarted")
}

func (g *Gateway) ClientConnectionConnected(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Info("Echo connection established", zap.Stringer("conn", c))
	g.dialing = false
}

func (g *Gateway) ClientConnectionError(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Warn("Echo connection failed", zap.Stringer("conn", c))
	g.client = nil
	g.dialing = false
}

func (g *Gateway) ClientConnectionTimeout(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Warn("Echo connection timed out", zap.Stringer("conn", c))
	g.client = nil
	g.dialing = false
}

func (g *Gateway) ClientConnectionClosed(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Info("Echo connection closed", zap.Stringer("conn", c))
	if g.client == c {
		g.client = nil
		g.dialing = false
	}
}

func (g *Gateway) ClientConnectionDataReceived(_ *wizfi.Session, c *wizfi.Connection, data []byte) {
	g.echoed.Add(1)
	g.logger.Debug("Echo received", zap.Stringer("conn", c), zap.ByteString("data", data))
}

func (g *Gateway) ClientConnectionDataSentError(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Warn("Echo request not sent", zap.Stringer("conn", c))
}

func (g *Gateway) ServerConnectionActive(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Info("Echo peer connected", zap.Stringer("conn", c))
}

func (g *Gateway) ServerConnectionClosed(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Info("Echo peer disconnected", zap.Stringer("conn", c))
	g.dropReplies(c)
}

func (g *Gateway) ServerConnectionDataReceived(_ *wizfi.Session, c *wizfi.Connection, data []byte) {
	g.echoed.Add(1)
	g.replies = append(g.replies, reply{conn: c, data: append([]byte(nil), data...)})
}

func (g *Gateway) ServerConnectionDataSentError(_ *wizfi.Session, c *wizfi.Connection) {
	g.logger.Warn("Echo reply not sent", zap.Stringer("conn", c))
}

func (g *Gateway) PingFinished(_ *wizfi.Session, p wizfi.Ping) {
	g.logger.Info("Ping finished",
		zap.String("address", p.Address), zap.Bool("success", p.Success), zap.Int("time_ms", p.Time))
}
