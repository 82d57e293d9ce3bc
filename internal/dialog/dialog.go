// Package dialog models the composition surface where the user edits the
// generated context document, writes an instruction, picks an assistant
// and (when several workspaces are reachable) a target endpoint, and
// commits the send. The model is UI-framework agnostic: a renderer reads
// its state, feeds it keys, and surfaces its flash/warning signals.
package dialog

import (
	"errors"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/standardbeagle/picket/internal/contextdoc"
	"github.com/standardbeagle/picket/internal/protocol"
	"github.com/standardbeagle/picket/internal/relay"
)

// ErrEmptyPrompt rejects a commit with no instruction text. The dialog
// stays open and flashes the input instead of defaulting to a canned
// string.
var ErrEmptyPrompt = errors.New("prompt is empty")

// ErrClosed rejects operations on a dismissed dialog.
var ErrClosed = errors.New("dialog closed")

// Targets lists the two fixed assistant options in display order; the
// commit accelerator sends to the first, with shift to the second.
var Targets = []protocol.Target{protocol.TargetCopilot, protocol.TargetClaude}

// Sender is the slice of the relay client the dialog needs.
type Sender interface {
	Send(env protocol.Envelope, targetPort int) error
	Endpoints() []relay.Endpoint
}

// Clipboard abstracts the system clipboard so tests can observe copies.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes through to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// EndpointMode describes how the endpoint selector renders.
type EndpointMode int

const (
	// EndpointNone disables sending and shows a warning.
	EndpointNone EndpointMode = iota
	// EndpointSole shows the single endpoint read-only.
	EndpointSole
	// EndpointChoice requires the user to pick one.
	EndpointChoice
)

// Key is a keyboard event delivered to an open dialog.
type Key struct {
	Code  KeyCode
	Mod   bool // the commit combine-key (cmd/ctrl)
	Shift bool
}

// KeyCode is the subset of keys the dialog reacts to.
type KeyCode int

const (
	KeyEscape KeyCode = iota
	KeyEnter
)

// Dialog is one open composition surface over a single capture.
type Dialog struct {
	mu sync.Mutex

	capture *contextdoc.Capture
	sender  Sender
	clip    Clipboard

	document     string
	prompt       string
	target       protocol.Target
	endpointPort int

	open  bool
	flash bool
}

// Open creates a dialog over a capture, pre-filling the editable
// document from the formatter output. A nil clipboard uses the system
// clipboard.
func Open(capture *contextdoc.Capture, sender Sender, clip Clipboard) *Dialog {
	if clip == nil {
		clip = SystemClipboard{}
	}
	return &Dialog{
		capture:  capture,
		sender:   sender,
		clip:     clip,
		document: capture.Document,
		target:   Targets[0],
		open:     true,
	}
}

// IsOpen reports whether the dialog is still on screen.
func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Document returns the current (possibly edited) context document.
func (d *Dialog) Document() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.document
}

// SetDocument replaces the editable context document.
func (d *Dialog) SetDocument(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.document = text
}

// Prompt returns the instruction text.
func (d *Dialog) Prompt() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompt
}

// SetPrompt replaces the instruction text and clears any flash.
func (d *Dialog) SetPrompt(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompt = text
	d.flash = false
}

// Target returns the selected assistant.
func (d *Dialog) Target() protocol.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// SelectTarget picks one of the two fixed assistant options.
func (d *Dialog) SelectTarget(t protocol.Target) error {
	if !t.Valid() {
		return errors.New("unknown assistant target")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = t
	return nil
}

// SelectEndpoint picks the target workspace by port.
func (d *Dialog) SelectEndpoint(port int) error {
	for _, ep := range d.sender.Endpoints() {
		if ep.Port == port {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.endpointPort = port
			return nil
		}
	}
	return relay.ErrUnknownEndpoint
}

// EndpointState returns how the selector should render and the current
// endpoint set.
func (d *Dialog) EndpointState() (EndpointMode, []relay.Endpoint) {
	eps := d.sender.Endpoints()
	switch len(eps) {
	case 0:
		return EndpointNone, eps
	case 1:
		return EndpointSole, eps
	default:
		return EndpointChoice, eps
	}
}

// TakeFlash reports and clears the reject-flash signal raised by an
// empty-prompt commit.
func (d *Dialog) TakeFlash() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.flash
	d.flash = false
	return f
}

// Close dismisses the dialog without sending.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
}

// Copy places the edited context document on the system clipboard,
// independent of sending. Clipboard denial is a normal, silent failure.
func (d *Dialog) Copy() {
	d.mu.Lock()
	text := d.document
	d.mu.Unlock()
	_ = d.clip.WriteAll(text)
}

// HandleKey processes the dialog keyboard contract: Escape closes
// without sending; mod+Enter commits to the first assistant option;
// mod+shift+Enter commits to the second. It reports whether the key was
// consumed and any commit error.
func (d *Dialog) HandleKey(k Key) (bool, error) {
	switch {
	case k.Code == KeyEscape:
		d.Close()
		return true, nil
	case k.Code == KeyEnter && k.Mod:
		target := Targets[0]
		if k.Shift {
			target = Targets[1]
		}
		if err := d.SelectTarget(target); err != nil {
			return true, err
		}
		return true, d.Commit()
	}
	return false, nil
}

// Commit validates and sends. An empty instruction is rejected (dialog
// stays open, input flashes). With no endpoint connected or an ambiguous
// unselected target the dialog also stays open. Otherwise the dialog is
// dismissed immediately and the message is handed to the relay; the
// eventual success/error arrives asynchronously as a notification.
func (d *Dialog) Commit() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return ErrClosed
	}
	if strings.TrimSpace(d.prompt) == "" {
		d.flash = true
		d.mu.Unlock()
		return ErrEmptyPrompt
	}
	d.capture.Document = d.document
	env := protocol.NewPrompt(d.prompt, d.target, d.capture.ElementInfo())
	port := d.endpointPort
	d.mu.Unlock()

	mode, eps := d.EndpointState()
	switch mode {
	case EndpointNone:
		return relay.ErrNotConnected
	case EndpointSole:
		port = eps[0].Port
	case EndpointChoice:
		if port == 0 {
			return relay.ErrAmbiguousTarget
		}
	}

	d.mu.Lock()
	d.open = false
	d.mu.Unlock()

	return d.sender.Send(env, port)
}
