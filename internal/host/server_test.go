package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/picket/internal/assistant"
	"github.com/standardbeagle/picket/internal/protocol"
)

// fakeRunner records prompts and returns a canned reply or error.
type fakeRunner struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (r *fakeRunner) Run(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func (r *fakeRunner) lastPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		return ""
	}
	return r.prompts[len(r.prompts)-1]
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func startServer(t *testing.T, runners assistant.Registry) *Server {
	t.Helper()
	srv := New(Config{
		BasePort:      freePort(t),
		PortCount:     1,
		WorkspaceName: "web",
		WorkspacePath: "/tmp/web",
	}, runners, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func dialServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/", srv.Port()), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) protocol.Envelope {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(data)
	require.NoError(t, err)
	return env
}

func writeFrame(t *testing.T, ws *websocket.Conn, env protocol.Envelope) {
	t.Helper()
	data, err := protocol.Encode(env)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

func TestGreetingIsFirstFrame(t *testing.T) {
	srv := startServer(t, assistant.Registry{})
	ws := dialServer(t, srv)

	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeStatus, env.Type)
	require.NotNil(t, env.Workspace)
	assert.Equal(t, "web", env.Workspace.Name)
	assert.Equal(t, "/tmp/web", env.Workspace.Path)
	assert.Equal(t, srv.Port(), env.Workspace.Port)
}

func TestPromptSuccess(t *testing.T) {
	runner := &fakeRunner{reply: "done"}
	srv := startServer(t, assistant.Registry{protocol.TargetClaude: runner})
	ws := dialServer(t, srv)
	readFrame(t, ws) // greeting

	writeFrame(t, ws, protocol.NewPrompt("make it blue", protocol.TargetClaude, &protocol.ElementInfo{
		ComponentName:   "UserCard",
		MarkdownContext: "## UserCard",
	}))

	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeSuccess, env.Type)
	assert.Contains(t, env.Message, "claude")

	// The context document travels ahead of the instruction.
	assert.Equal(t, "## UserCard\n\nmake it blue", runner.lastPrompt())

	// The capture is retained for later pulls.
	info, _, ok := srv.LatestCapture()
	require.True(t, ok)
	assert.Equal(t, "UserCard", info.ComponentName)
}

func TestPromptFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("api unreachable")}
	srv := startServer(t, assistant.Registry{protocol.TargetClaude: runner})
	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.NewPrompt("x", protocol.TargetClaude, nil))

	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeError, env.Type)
	assert.Contains(t, env.Message, "api unreachable")
}

func TestPromptUnknownTarget(t *testing.T) {
	srv := startServer(t, assistant.Registry{})
	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.Envelope{Type: protocol.TypePrompt, Prompt: "x", Target: "vim"})
	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeError, env.Type)
}

func TestPromptUnconfiguredTarget(t *testing.T) {
	srv := startServer(t, assistant.Registry{})
	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.NewPrompt("x", protocol.TargetCopilot, nil))
	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeError, env.Type)
	assert.Contains(t, env.Message, "not configured")
}

func TestEmptyPromptRejected(t *testing.T) {
	runner := &fakeRunner{}
	srv := startServer(t, assistant.Registry{protocol.TargetClaude: runner})
	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.Envelope{Type: protocol.TypePrompt, Target: protocol.TargetClaude})
	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypeError, env.Type)
	assert.Empty(t, runner.prompts)
}

func TestElementContextRetained(t *testing.T) {
	srv := startServer(t, assistant.Registry{})

	_, _, ok := srv.LatestCapture()
	assert.False(t, ok)

	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.NewElementContext(&protocol.ElementInfo{ComponentName: "Sidebar"}))
	writeFrame(t, ws, protocol.NewPing())
	readFrame(t, ws) // pong forces ordering

	info, at, ok := srv.LatestCapture()
	require.True(t, ok)
	assert.Equal(t, "Sidebar", info.ComponentName)
	assert.WithinDuration(t, time.Now(), at, 5*time.Second)
}

func TestPingPong(t *testing.T) {
	srv := startServer(t, assistant.Registry{})
	ws := dialServer(t, srv)
	readFrame(t, ws)

	writeFrame(t, ws, protocol.NewPing())
	env := readFrame(t, ws)
	assert.Equal(t, protocol.TypePong, env.Type)
}

func TestClients(t *testing.T) {
	srv := startServer(t, assistant.Registry{})
	assert.Empty(t, srv.Clients())

	ws := dialServer(t, srv)
	readFrame(t, ws)

	require.Eventually(t, func() bool {
		return len(srv.Clients()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool {
		return len(srv.Clients()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPortFallthrough(t *testing.T) {
	base := freePort(t)
	first := New(Config{BasePort: base, PortCount: 2, WorkspaceName: "a"}, assistant.Registry{}, nil)
	require.NoError(t, first.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = first.Shutdown(ctx)
	}()

	second := New(Config{BasePort: base, PortCount: 2, WorkspaceName: "b"}, assistant.Registry{}, nil)
	require.NoError(t, second.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = second.Shutdown(ctx)
	}()

	assert.Equal(t, base, first.Port())
	assert.Equal(t, base+1, second.Port())

	third := New(Config{BasePort: base, PortCount: 2, WorkspaceName: "c"}, assistant.Registry{}, nil)
	assert.Error(t, third.Start())
}

func TestRunPromptValidation(t *testing.T) {
	runner := &fakeRunner{reply: "ok"}
	srv := startServer(t, assistant.Registry{protocol.TargetClaude: runner})

	_, err := srv.RunPrompt(context.Background(), protocol.TargetClaude, "")
	assert.Error(t, err)

	_, err = srv.RunPrompt(context.Background(), "vim", "x")
	assert.Error(t, err)

	out, err := srv.RunPrompt(context.Background(), protocol.TargetClaude, "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
