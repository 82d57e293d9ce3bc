// Package host implements the editor-side relay consumer: a WebSocket
// server on the first free well-known port that greets each picker
// connection with workspace identity, executes incoming prompts against
// an assistant, and reports success or error back over the same
// connection.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/picket/internal/assistant"
	"github.com/standardbeagle/picket/internal/protocol"
)

// writeTimeout bounds result writes so a wedged client cannot stall the
// connection goroutine.
const writeTimeout = 2 * time.Second

// Config identifies this workspace instance and its port set.
type Config struct {
	BasePort  int
	PortCount int

	WorkspaceName string
	WorkspacePath string
}

// Client describes one connected picker.
type Client struct {
	RemoteAddr  string
	ConnectedAt time.Time
}

// Server is one host workspace instance.
type Server struct {
	cfg     Config
	log     *zap.Logger
	runners assistant.Registry

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	port     int

	mu       sync.Mutex
	conns    map[*websocket.Conn]Client
	lastInfo *protocol.ElementInfo
	lastAt   time.Time
	shutdown bool

	// ctx scopes prompt execution to the server lifetime; the request
	// context dies with the upgrade handler and must not be used.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a host server.
func New(cfg Config, runners assistant.Registry, log *zap.Logger) *Server {
	if cfg.BasePort <= 0 {
		cfg.BasePort = 9765
	}
	if cfg.PortCount <= 0 {
		cfg.PortCount = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		log:     log,
		runners: runners,
		ctx:     ctx,
		cancel:  cancel,
		upgrader: websocket.Upgrader{
			// Localhost-only, unauthenticated; the bind address is
			// the security boundary.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]Client),
	}
}

// Start binds the first free candidate port on loopback and begins
// serving. Each workspace instance takes the next free port, which is
// how multi-workspace support works.
func (s *Server) Start() error {
	var listener net.Listener
	var lastErr error
	for i := 0; i < s.cfg.PortCount; i++ {
		port := s.cfg.BasePort + i
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			lastErr = err
			continue
		}
		listener = l
		s.port = port
		break
	}
	if listener == nil {
		return fmt.Errorf("no free relay port in %d..%d: %w",
			s.cfg.BasePort, s.cfg.BasePort+s.cfg.PortCount-1, lastErr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	s.httpSrv = &http.Server{Handler: mux}

	s.log.Info("relay host listening",
		zap.Int("port", s.port),
		zap.String("workspace", s.cfg.WorkspaceName))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("relay host serve", zap.Error(err))
		}
	}()
	return nil
}

// Port returns the bound port (0 before Start).
func (s *Server) Port() int {
	return s.port
}

// Shutdown stops accepting, closes all picker connections, and joins
// connection goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	s.shutdown = true
	for ws := range s.conns {
		ws.Close()
	}
	s.mu.Unlock()

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[ws] = Client{RemoteAddr: r.RemoteAddr, ConnectedAt: time.Now()}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.serveConn(ws)
}

func (s *Server) serveConn(ws *websocket.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, ws)
		s.mu.Unlock()
		ws.Close()
	}()

	// First frame on every connection: workspace identity.
	greeting := protocol.NewStatus("connected", &protocol.Workspace{
		Name: s.cfg.WorkspaceName,
		Path: s.cfg.WorkspacePath,
		Port: s.port,
	})
	if err := s.writeEnvelope(ws, greeting); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			s.log.Warn("bad frame from picker", zap.Error(err))
			continue
		}

		switch env.Type {
		case protocol.TypePrompt:
			// One prompt in flight per connection; the wire format has
			// no request id, so results correlate by ordering.
			s.handlePrompt(s.ctx, ws, env)

		case protocol.TypeElementContext:
			if env.ElementInfo != nil {
				s.mu.Lock()
				s.lastInfo = env.ElementInfo
				s.lastAt = time.Now()
				s.mu.Unlock()
			}

		case protocol.TypePing:
			if err := s.writeEnvelope(ws, protocol.NewPong()); err != nil {
				return
			}

		default:
			s.log.Debug("unhandled frame", zap.String("type", env.Type))
		}
	}
}

func (s *Server) handlePrompt(ctx context.Context, ws *websocket.Conn, env protocol.Envelope) {
	if env.Prompt == "" {
		s.writeResult(ws, false, "empty prompt")
		return
	}
	if !env.Target.Valid() {
		s.writeResult(ws, false, fmt.Sprintf("unknown target %q", env.Target))
		return
	}

	if env.ElementInfo != nil {
		s.mu.Lock()
		s.lastInfo = env.ElementInfo
		s.lastAt = time.Now()
		s.mu.Unlock()
	}

	prompt := composePrompt(env)
	s.log.Info("prompt received",
		zap.String("target", string(env.Target)),
		zap.String("component", componentName(env.ElementInfo)))

	if _, err := s.runners.Run(ctx, env.Target, prompt); err != nil {
		s.log.Warn("prompt failed", zap.Error(err))
		s.writeResult(ws, false, err.Error())
		return
	}
	s.writeResult(ws, true, fmt.Sprintf("sent to %s", env.Target))
}

// composePrompt prefixes the instruction with the captured context
// document so the assistant sees the component the user pointed at.
func composePrompt(env protocol.Envelope) string {
	if env.ElementInfo == nil || env.ElementInfo.MarkdownContext == "" {
		return env.Prompt
	}
	return env.ElementInfo.MarkdownContext + "\n\n" + env.Prompt
}

func componentName(info *protocol.ElementInfo) string {
	if info == nil {
		return ""
	}
	return info.ComponentName
}

func (s *Server) writeResult(ws *websocket.Conn, ok bool, message string) {
	if err := s.writeEnvelope(ws, protocol.NewResult(ok, message)); err != nil {
		s.log.Debug("result write failed", zap.Error(err))
	}
}

func (s *Server) writeEnvelope(ws *websocket.Conn, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// LatestCapture returns the most recent element context received from
// any picker, if one exists. Captures are not persisted across restarts.
func (s *Server) LatestCapture() (*protocol.ElementInfo, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastInfo == nil {
		return nil, time.Time{}, false
	}
	return s.lastInfo, s.lastAt, true
}

// Clients returns the currently connected pickers.
func (s *Server) Clients() []Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Client, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// RunPrompt executes a prompt directly against an assistant, outside any
// picker connection. The MCP send_prompt tool uses this path.
func (s *Server) RunPrompt(ctx context.Context, target protocol.Target, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	if !target.Valid() {
		return "", fmt.Errorf("unknown target %q", target)
	}
	return s.runners.Run(ctx, target, prompt)
}
