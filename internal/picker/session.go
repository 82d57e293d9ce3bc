// Package picker owns the interactive selection gesture: hold the
// modifier key to arm, hover to highlight the component under the
// pointer, click to capture, escape or blur to cancel.
package picker

import (
	"path"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/picket/internal/bridge"
	"github.com/standardbeagle/picket/internal/contextdoc"
	"github.com/standardbeagle/picket/internal/dom"
	"github.com/standardbeagle/picket/internal/fiber"
)

// DefaultHoldThreshold debounces the activation gesture against
// incidental modifier taps.
const DefaultHoldThreshold = 300 * time.Millisecond

// State is the interaction state.
type State int

const (
	// StateIdle leaves the page untouched.
	StateIdle State = iota
	// StateArmed shows the crosshair but has no hover target.
	StateArmed
	// StateArmedTarget is armed with a highlighted component under the
	// pointer.
	StateArmedTarget
)

// Label is the info box anchored to a highlighted target.
type Label struct {
	Name   string
	Source string
	Width  float64
	Height float64
}

// Overlay is the singleton visual surface the session drives. The same
// highlight box, label, and crosshair pair are reused across hover
// events; implementations must tolerate redundant calls.
type Overlay interface {
	SetCrosshair(active bool)
	MoveGuides(x, y float64)
	ShowHighlight(rect dom.Rect, label Label)
	HideHighlight()
	Clear()
}

// Page hit-tests the element under a pointer position. Implementations
// must skip elements belonging to the tool's own overlay and dialog
// surfaces.
type Page interface {
	ElementAt(x, y float64) *dom.Node
}

// Resolution is the reply payload for a resolve request: the nearest
// valid component (nil on a miss) and the ancestor stack.
type Resolution struct {
	Component *fiber.Component
	Stack     []fiber.StackEntry
}

// Committer receives the capture when a click commits a selection;
// typically it opens the composition dialog.
type Committer func(*contextdoc.Capture)

// Config tunes the session.
type Config struct {
	HoldThreshold time.Duration
}

// Session is the interaction state machine. It is an explicit owned
// object constructed at startup and torn down at unload; handlers
// receive it rather than touching module globals, so multiple sessions
// can coexist in tests.
type Session struct {
	mu sync.Mutex

	cfg     Config
	page    Page
	overlay Overlay
	channel bridge.Channel
	commit  Committer
	log     *zap.Logger

	state     State
	keyHeld   bool
	holdTimer *time.Timer
	pointerX  float64
	pointerY  float64

	// reqSeq correlates hover resolutions: replies carrying a sequence
	// lower than the latest issued are stale and must not paint.
	reqSeq uint64

	targetNode  *dom.Node
	targetComp  *fiber.Component
	targetStack []fiber.StackEntry
}

// NewSession creates a session. Zero-value config fields take defaults.
func NewSession(cfg Config, page Page, overlay Overlay, channel bridge.Channel, commit Committer, log *zap.Logger) *Session {
	if cfg.HoldThreshold <= 0 {
		cfg.HoldThreshold = DefaultHoldThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:     cfg,
		page:    page,
		overlay: overlay,
		channel: channel,
		commit:  commit,
		log:     log,
	}
}

// State returns the current interaction state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ModifierDown begins the activation gesture. Arming only takes effect
// after the key has been held continuously for the hold threshold.
func (s *Session) ModifierDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyHeld {
		return
	}
	s.keyHeld = true
	s.holdTimer = time.AfterFunc(s.cfg.HoldThreshold, s.armAfterHold)
}

// ModifierUp ends the gesture and disarms.
func (s *Session) ModifierUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyHeld = false
	s.cancelLocked()
}

// Escape cancels any armed state immediately.
func (s *Session) Escape() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Blur handles the window losing focus, which cancels like escape and
// also forgets the held key (keyup may never arrive).
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyHeld = false
	s.cancelLocked()
}

// Close tears the session down, clearing all visual state.
func (s *Session) Close() {
	s.Blur()
}

func (s *Session) armAfterHold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.keyHeld || s.state != StateIdle {
		return
	}
	s.state = StateArmed
	s.overlay.SetCrosshair(true)
	s.overlay.MoveGuides(s.pointerX, s.pointerY)
	s.resolveAtLocked(s.pointerX, s.pointerY)
}

// PointerMove tracks the pointer and, while armed, re-resolves the
// element under it.
func (s *Session) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointerX, s.pointerY = x, y
	if s.state == StateIdle {
		return
	}
	s.overlay.MoveGuides(x, y)
	s.resolveAtLocked(x, y)
}

// resolveAtLocked issues an asynchronous resolution for the element at
// (x, y). Caller holds the lock.
func (s *Session) resolveAtLocked(x, y float64) {
	node := s.page.ElementAt(x, y)
	if node == nil {
		s.dropTargetLocked()
		return
	}

	s.reqSeq++
	seq := s.reqSeq
	id := s.channel.Call(bridge.KindResolve, node, func(resp bridge.Response) {
		s.onResolved(seq, node, resp)
	})
	s.log.Debug("resolve issued", zap.Uint64("seq", seq), zap.String("id", id))
}

// onResolved handles an asynchronous resolution reply. Replies are not
// ordered; anything stale or arriving after disarm is a no-op.
func (s *Session) onResolved(seq uint64, node *dom.Node, resp bridge.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return
	}
	if seq != s.reqSeq {
		s.log.Debug("stale resolution dropped", zap.Uint64("seq", seq), zap.Uint64("latest", s.reqSeq))
		return
	}
	if resp.Err != "" {
		s.dropTargetLocked()
		return
	}
	res, _ := resp.Payload.(*Resolution)
	if res == nil || res.Component == nil {
		s.dropTargetLocked()
		return
	}

	s.state = StateArmedTarget
	s.targetNode = node
	s.targetComp = res.Component
	s.targetStack = res.Stack
	s.overlay.ShowHighlight(node.Rect, Label{
		Name:   res.Component.Name,
		Source: shortSource(res.Component),
		Width:  node.Rect.Width,
		Height: node.Rect.Height,
	})
}

// Click commits the current target. It reports whether the click was
// consumed, in which case the caller must suppress the default action.
func (s *Session) Click() bool {
	s.mu.Lock()

	if s.state != StateArmedTarget || s.targetNode == nil {
		s.mu.Unlock()
		return false
	}

	capture := contextdoc.NewCapture(s.targetNode, s.targetComp, s.targetStack)
	commit := s.commit
	s.cancelLocked()
	s.mu.Unlock()

	if commit != nil {
		commit(capture)
	}
	return true
}

// dropTargetLocked hides the highlight when no valid target is under the
// pointer. Caller holds the lock.
func (s *Session) dropTargetLocked() {
	if s.state == StateArmedTarget {
		s.state = StateArmed
	}
	s.targetNode = nil
	s.targetComp = nil
	s.targetStack = nil
	s.overlay.HideHighlight()
}

// cancelLocked clears all overlays, cursor styling, and pending state.
// Outstanding resolution replies become no-ops via the state guard and
// the sequence check. Caller holds the lock.
func (s *Session) cancelLocked() {
	if s.holdTimer != nil {
		s.holdTimer.Stop()
		s.holdTimer = nil
	}
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	s.targetNode = nil
	s.targetComp = nil
	s.targetStack = nil
	s.overlay.Clear()
}

func shortSource(comp *fiber.Component) string {
	if comp == nil || comp.Source == nil {
		return ""
	}
	src := comp.Source
	base := path.Base(src.FilePath)
	if src.Line > 0 {
		return base + ":" + strconv.Itoa(src.Line)
	}
	return base
}
