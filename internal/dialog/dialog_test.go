package dialog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/picket/internal/contextdoc"
	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/fiber"
	"github.com/standardbeagle/picket/internal/protocol"
	"github.com/standardbeagle/picket/internal/relay"
)

// fakeSender records sends and serves a configurable endpoint set.
type fakeSender struct {
	endpoints []relay.Endpoint
	sent      []sentEnvelope
	err       error
}

type sentEnvelope struct {
	env  protocol.Envelope
	port int
}

func (s *fakeSender) Send(env protocol.Envelope, targetPort int) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEnvelope{env: env, port: targetPort})
	return nil
}

func (s *fakeSender) Endpoints() []relay.Endpoint {
	return s.endpoints
}

// fakeClipboard records writes and can simulate denial.
type fakeClipboard struct {
	texts []string
	err   error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.texts = append(c.texts, text)
	return nil
}

func newCapture() *contextdoc.Capture {
	el := dom.NewNode("div")
	comp := &fiber.Component{
		Name:       "UserCard",
		Properties: map[string]any{"name": "Ann"},
	}
	return contextdoc.NewCapture(el, comp, nil)
}

func soleEndpoint() []relay.Endpoint {
	return []relay.Endpoint{{Port: 9765, WorkspaceLabel: "web", Connected: true}}
}

func twoEndpoints() []relay.Endpoint {
	return []relay.Endpoint{
		{Port: 9765, WorkspaceLabel: "web", Connected: true},
		{Port: 9766, WorkspaceLabel: "api", Connected: true},
	}
}

func TestOpenPrefillsDocument(t *testing.T) {
	capture := newCapture()
	d := Open(capture, &fakeSender{}, &fakeClipboard{})

	assert.True(t, d.IsOpen())
	assert.Equal(t, capture.Document, d.Document())
	assert.Equal(t, protocol.TargetCopilot, d.Target())
}

func TestCommitEmptyPromptRejected(t *testing.T) {
	sender := &fakeSender{endpoints: soleEndpoint()}
	d := Open(newCapture(), sender, &fakeClipboard{})

	assert.ErrorIs(t, d.Commit(), ErrEmptyPrompt)
	assert.True(t, d.IsOpen(), "dialog must stay open")
	assert.True(t, d.TakeFlash())
	assert.False(t, d.TakeFlash(), "flash reads once")
	assert.Empty(t, sender.sent)

	// Whitespace is not a prompt either.
	d.SetPrompt("   \n\t ")
	assert.ErrorIs(t, d.Commit(), ErrEmptyPrompt)

	// Typing clears the flash.
	d.SetPrompt("x")
	assert.False(t, d.TakeFlash())
}

func TestCommitSoleEndpoint(t *testing.T) {
	sender := &fakeSender{endpoints: soleEndpoint()}
	d := Open(newCapture(), sender, &fakeClipboard{})

	d.SetPrompt("make it blue")
	require.NoError(t, d.Commit())

	assert.False(t, d.IsOpen())
	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	assert.Equal(t, 9765, got.port)
	assert.Equal(t, protocol.TypePrompt, got.env.Type)
	assert.Equal(t, "make it blue", got.env.Prompt)
	assert.Equal(t, protocol.TargetCopilot, got.env.Target)
	require.NotNil(t, got.env.ElementInfo)
	assert.Equal(t, "UserCard", got.env.ElementInfo.ComponentName)
}

func TestCommitNoEndpoints(t *testing.T) {
	sender := &fakeSender{}
	d := Open(newCapture(), sender, &fakeClipboard{})
	d.SetPrompt("anything")

	assert.ErrorIs(t, d.Commit(), relay.ErrNotConnected)
	assert.True(t, d.IsOpen())
	assert.Empty(t, sender.sent)
}

func TestCommitAmbiguousNeedsSelection(t *testing.T) {
	sender := &fakeSender{endpoints: twoEndpoints()}
	d := Open(newCapture(), sender, &fakeClipboard{})
	d.SetPrompt("anything")

	assert.ErrorIs(t, d.Commit(), relay.ErrAmbiguousTarget)
	assert.True(t, d.IsOpen())

	assert.ErrorIs(t, d.SelectEndpoint(9999), relay.ErrUnknownEndpoint)
	require.NoError(t, d.SelectEndpoint(9766))
	require.NoError(t, d.Commit())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 9766, sender.sent[0].port)
	assert.False(t, d.IsOpen())
}

func TestEndpointState(t *testing.T) {
	d := Open(newCapture(), &fakeSender{}, &fakeClipboard{})
	mode, _ := d.EndpointState()
	assert.Equal(t, EndpointNone, mode)

	d = Open(newCapture(), &fakeSender{endpoints: soleEndpoint()}, &fakeClipboard{})
	mode, eps := d.EndpointState()
	assert.Equal(t, EndpointSole, mode)
	assert.Len(t, eps, 1)

	d = Open(newCapture(), &fakeSender{endpoints: twoEndpoints()}, &fakeClipboard{})
	mode, _ = d.EndpointState()
	assert.Equal(t, EndpointChoice, mode)
}

func TestEditedDocumentTravels(t *testing.T) {
	sender := &fakeSender{endpoints: soleEndpoint()}
	d := Open(newCapture(), sender, &fakeClipboard{})

	d.SetDocument("## Edited\n\ncustom context")
	d.SetPrompt("go")
	require.NoError(t, d.Commit())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "## Edited\n\ncustom context", sender.sent[0].env.ElementInfo.MarkdownContext)
}

func TestHandleKeyEscape(t *testing.T) {
	sender := &fakeSender{endpoints: soleEndpoint()}
	d := Open(newCapture(), sender, &fakeClipboard{})
	d.SetPrompt("never sent")

	consumed, err := d.HandleKey(Key{Code: KeyEscape})
	assert.True(t, consumed)
	assert.NoError(t, err)
	assert.False(t, d.IsOpen())
	assert.Empty(t, sender.sent)
}

func TestHandleKeyAccelerators(t *testing.T) {
	sender := &fakeSender{endpoints: soleEndpoint()}
	d := Open(newCapture(), sender, &fakeClipboard{})
	d.SetPrompt("go")

	consumed, err := d.HandleKey(Key{Code: KeyEnter, Mod: true})
	assert.True(t, consumed)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, protocol.TargetCopilot, sender.sent[0].env.Target)

	d = Open(newCapture(), sender, &fakeClipboard{})
	d.SetPrompt("go again")
	consumed, err = d.HandleKey(Key{Code: KeyEnter, Mod: true, Shift: true})
	assert.True(t, consumed)
	require.NoError(t, err)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, protocol.TargetClaude, sender.sent[1].env.Target)
}

func TestHandleKeyPlainEnterIgnored(t *testing.T) {
	d := Open(newCapture(), &fakeSender{endpoints: soleEndpoint()}, &fakeClipboard{})
	consumed, err := d.HandleKey(Key{Code: KeyEnter})
	assert.False(t, consumed)
	assert.NoError(t, err)
	assert.True(t, d.IsOpen())
}

func TestCommitAfterClose(t *testing.T) {
	d := Open(newCapture(), &fakeSender{endpoints: soleEndpoint()}, &fakeClipboard{})
	d.SetPrompt("go")
	d.Close()
	assert.ErrorIs(t, d.Commit(), ErrClosed)
}

func TestCopy(t *testing.T) {
	clip := &fakeClipboard{}
	d := Open(newCapture(), &fakeSender{}, clip)
	d.SetDocument("copied text")
	d.Copy()

	require.Len(t, clip.texts, 1)
	assert.Equal(t, "copied text", clip.texts[0])

	// Clipboard denial is silent; the dialog carries on.
	clip.err = errors.New("denied")
	d.Copy()
	assert.True(t, d.IsOpen())
}
