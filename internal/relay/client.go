// Package relay maintains the picker side of the localhost WebSocket
// bridge: concurrent connections to a fixed set of well-known candidate
// ports, one per potential host workspace, with passive periodic
// reconnection and explicit multi-target dispatch.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/picket/internal/protocol"
)

// Well-known candidate ports: PortCount consecutive values from BasePort.
const (
	DefaultBasePort      = 9765
	DefaultPortCount     = 5
	DefaultRetryInterval = 5 * time.Second
)

var (
	// ErrNotConnected is returned when no endpoint is connected.
	ErrNotConnected = errors.New("not connected")
	// ErrAmbiguousTarget is returned when multiple endpoints are
	// connected and no explicit target was given; the caller must choose.
	ErrAmbiguousTarget = errors.New("multiple endpoints connected - target port required")
	// ErrUnknownEndpoint is returned when the requested target port has
	// no live connection.
	ErrUnknownEndpoint = errors.New("target endpoint not connected")
)

// Endpoint is a snapshot of one reachable relay target.
type Endpoint struct {
	Port           int
	WorkspaceLabel string
	Connected      bool
}

// Events surfaces connection changes and prompt results. Methods are
// called from connection goroutines; implementations must be safe for
// concurrent use. A nil Events is allowed.
type Events interface {
	EndpointsChanged([]Endpoint)
	Result(ok bool, message string)
}

// Config tunes the client. Zero values take defaults.
type Config struct {
	BasePort      int
	PortCount     int
	RetryInterval time.Duration
}

func (c Config) normalized() Config {
	if c.BasePort <= 0 {
		c.BasePort = DefaultBasePort
	}
	if c.PortCount <= 0 {
		c.PortCount = DefaultPortCount
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	return c
}

// Client is the multi-endpoint relay client.
type Client struct {
	cfg    Config
	log    *zap.Logger
	events Events
	dialer *websocket.Dialer

	mu         sync.Mutex
	conns      map[int]*conn
	connecting map[int]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// conn is one live connection; writes are serialized per connection.
type conn struct {
	port    int
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu    sync.Mutex
	label string
}

func (c *conn) setLabel(label string) {
	c.mu.Lock()
	c.label = label
	c.mu.Unlock()
}

func (c *conn) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

func (c *conn) writeEnvelope(env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// NewClient creates a relay client.
func NewClient(cfg Config, events Events, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:        cfg.normalized(),
		log:        log,
		events:     events,
		dialer:     &websocket.Dialer{HandshakeTimeout: 2 * time.Second},
		conns:      make(map[int]*conn),
		connecting: make(map[int]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Ports returns the candidate port set in ascending order.
func (c *Client) Ports() []int {
	ports := make([]int, 0, c.cfg.PortCount)
	for i := 0; i < c.cfg.PortCount; i++ {
		ports = append(ports, c.cfg.BasePort+i)
	}
	return ports
}

// Start attempts every candidate port concurrently and begins the
// periodic reconnect loop. Ports not currently connected are re-attempted
// every retry interval, indefinitely; there is no attempt ceiling.
func (c *Client) Start() {
	for _, port := range c.Ports() {
		c.tryConnect(port)
	}

	c.wg.Add(1)
	go c.reconnectLoop()
}

// Stop closes every connection and joins all goroutines.
func (c *Client) Stop() {
	c.cancel()

	c.mu.Lock()
	for _, cn := range c.conns {
		cn.ws.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, port := range c.Ports() {
				c.mu.Lock()
				_, live := c.conns[port]
				busy := c.connecting[port]
				c.mu.Unlock()
				if !live && !busy {
					c.tryConnect(port)
				}
			}
		}
	}
}

// tryConnect dials one port in the background. Each attempt is
// independent; failure just leaves the port for the next tick.
func (c *Client) tryConnect(port int) {
	c.mu.Lock()
	if c.connecting[port] {
		c.mu.Unlock()
		return
	}
	if _, live := c.conns[port]; live {
		c.mu.Unlock()
		return
	}
	c.connecting[port] = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.connecting, port)
			c.mu.Unlock()
		}()

		ws, _, err := c.dialer.DialContext(c.ctx, endpointURL(port), nil)
		if err != nil {
			return
		}

		cn := &conn{port: port, ws: ws}

		// State may have changed while dialing; re-check under the lock
		// before registering. At most one live connection per port.
		c.mu.Lock()
		if _, live := c.conns[port]; live || c.ctx.Err() != nil {
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.conns[port] = cn
		c.mu.Unlock()

		c.log.Info("endpoint connected", zap.Int("port", port))
		c.notifyEndpoints()

		c.wg.Add(1)
		go c.readLoop(cn)
	}()
}

func (c *Client) readLoop(cn *conn) {
	defer c.wg.Done()
	defer c.dropConn(cn)

	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("bad frame", zap.Int("port", cn.port), zap.Error(err))
			continue
		}

		switch env.Type {
		case protocol.TypeStatus:
			// First message on a connection; the optional workspace
			// identity becomes the endpoint's display name.
			if env.Workspace != nil && env.Workspace.Name != "" {
				cn.setLabel(env.Workspace.Name)
			} else if env.Message != "" {
				cn.setLabel(env.Message)
			}
			c.notifyEndpoints()

		case protocol.TypeSuccess:
			if c.events != nil {
				c.events.Result(true, env.Message)
			}

		case protocol.TypeError:
			if c.events != nil {
				c.events.Result(false, env.Message)
			}

		case protocol.TypePong:
			c.log.Debug("pong", zap.Int("port", cn.port))

		default:
			c.log.Debug("unhandled frame", zap.String("type", env.Type), zap.Int("port", cn.port))
		}
	}
}

func (c *Client) dropConn(cn *conn) {
	c.mu.Lock()
	cur, ok := c.conns[cn.port]
	if ok && cur == cn {
		delete(c.conns, cn.port)
	}
	c.mu.Unlock()

	cn.ws.Close()
	if ok && cur == cn {
		c.log.Info("endpoint disconnected", zap.Int("port", cn.port))
		c.notifyEndpoints()
	}
}

// Endpoints returns connected endpoints in ascending port order.
func (c *Client) Endpoints() []Endpoint {
	c.mu.Lock()
	eps := make([]Endpoint, 0, len(c.conns))
	for port, cn := range c.conns {
		eps = append(eps, Endpoint{Port: port, WorkspaceLabel: cn.Label(), Connected: true})
	}
	c.mu.Unlock()

	sort.Slice(eps, func(i, j int) bool { return eps[i].Port < eps[j].Port })
	return eps
}

func (c *Client) notifyEndpoints() {
	if c.events != nil {
		c.events.EndpointsChanged(c.Endpoints())
	}
}

// Send dispatches a composed message. targetPort 0 means "unspecified":
// with exactly one connected endpoint the message goes there; with
// several the call fails with ErrAmbiguousTarget so the caller can
// surface a selector. A send against a dead connection fails
// immediately; nothing is queued.
func (c *Client) Send(env protocol.Envelope, targetPort int) error {
	c.mu.Lock()
	if len(c.conns) == 0 {
		c.mu.Unlock()
		return ErrNotConnected
	}

	var cn *conn
	if targetPort != 0 {
		var ok bool
		cn, ok = c.conns[targetPort]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("port %d: %w", targetPort, ErrUnknownEndpoint)
		}
	} else {
		if len(c.conns) > 1 {
			c.mu.Unlock()
			return ErrAmbiguousTarget
		}
		for _, only := range c.conns {
			cn = only
		}
	}
	c.mu.Unlock()

	if err := cn.writeEnvelope(env); err != nil {
		return fmt.Errorf("send to port %d: %w", cn.port, err)
	}
	return nil
}

// Ping sends an application-level liveness probe to every connected
// endpoint. Transport errors are left to the read loop to notice.
func (c *Client) Ping() {
	c.mu.Lock()
	conns := make([]*conn, 0, len(c.conns))
	for _, cn := range c.conns {
		conns = append(conns, cn)
	}
	c.mu.Unlock()

	for _, cn := range conns {
		if err := cn.writeEnvelope(protocol.NewPing()); err != nil {
			c.log.Debug("ping failed", zap.Int("port", cn.port), zap.Error(err))
		}
	}
}

func endpointURL(port int) string {
	return fmt.Sprintf("ws://127.0.0.1:%d/", port)
}
