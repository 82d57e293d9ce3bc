// Package protocol defines the JSON wire protocol exchanged between the
// browser-side picker and the editor-side host over the localhost relay.
// Frames are plain JSON text messages; the channel is localhost-only and
// unauthenticated.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types sent by the picker.
const (
	TypePrompt         = "prompt"
	TypePing           = "ping"
	TypeElementContext = "element-context"
)

// Message types sent by the host.
const (
	TypeStatus  = "status"
	TypeSuccess = "success"
	TypeError   = "error"
	TypePong    = "pong"
)

// Target identifies which assistant a prompt is routed to.
type Target string

const (
	TargetCopilot Target = "copilot"
	TargetClaude  Target = "claude"
)

// Valid reports whether t is one of the two fixed assistant targets.
func (t Target) Valid() bool {
	return t == TargetCopilot || t == TargetClaude
}

// ElementInfo describes the picked component for the host side.
type ElementInfo struct {
	ComponentName   string         `json:"componentName"`
	JSX             string         `json:"jsx,omitempty"`
	Props           map[string]any `json:"props,omitempty"`
	FilePath        string         `json:"filePath,omitempty"`
	TagName         string         `json:"tagName,omitempty"`
	ClassName       string         `json:"className,omitempty"`
	ID              string         `json:"id,omitempty"`
	MarkdownContext string         `json:"markdownContext,omitempty"`
}

// Workspace identifies the host-side workspace that owns a connection.
type Workspace struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Port int    `json:"port"`
}

// Envelope is the union of all frame shapes on the relay channel. Only
// the fields relevant to a given Type are populated.
type Envelope struct {
	Type        string       `json:"type"`
	Prompt      string       `json:"prompt,omitempty"`
	Target      Target       `json:"target,omitempty"`
	ElementInfo *ElementInfo `json:"elementInfo,omitempty"`
	Message     string       `json:"message,omitempty"`
	Workspace   *Workspace   `json:"workspace,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// Now returns the current time as a millisecond wire timestamp.
func Now() int64 {
	return time.Now().UnixMilli()
}

// NewPrompt builds an outbound prompt frame.
func NewPrompt(prompt string, target Target, info *ElementInfo) Envelope {
	return Envelope{
		Type:        TypePrompt,
		Prompt:      prompt,
		Target:      target,
		ElementInfo: info,
		Timestamp:   Now(),
	}
}

// NewPing builds an application-level liveness probe. This is distinct
// from the transport-level websocket ping/pong.
func NewPing() Envelope {
	return Envelope{Type: TypePing, Timestamp: Now()}
}

// NewElementContext builds a context-only frame (no prompt attached).
func NewElementContext(info *ElementInfo) Envelope {
	return Envelope{Type: TypeElementContext, ElementInfo: info, Timestamp: Now()}
}

// NewStatus builds the host greeting frame carrying workspace identity.
func NewStatus(message string, ws *Workspace) Envelope {
	return Envelope{Type: TypeStatus, Message: message, Workspace: ws, Timestamp: Now()}
}

// NewResult builds a success or error frame for a previously received prompt.
func NewResult(ok bool, message string) Envelope {
	typ := TypeSuccess
	if !ok {
		typ = TypeError
	}
	return Envelope{Type: typ, Message: message, Timestamp: Now()}
}

// NewPong builds the reply to an application-level ping.
func NewPong() Envelope {
	return Envelope{Type: TypePong, Timestamp: Now()}
}

// Decode parses a raw text frame into an Envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("frame missing type")
	}
	return env, nil
}

// Encode serializes an Envelope to a text frame.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}
