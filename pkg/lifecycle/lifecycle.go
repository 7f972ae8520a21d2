// Package lifecycle implements the hook entry points the host invokes
// around a session. The host runs `toolbelt hook <event>` with a JSON
// payload on stdin and reads a JSON result from stdout; handlers resolve
// the project's package manager, record the session journal, and snapshot
// compaction state.
package lifecycle

// EventType identifies a lifecycle event delivered by the host
type EventType string

// The lifecycle events toolbelt handles
const (
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
	EventPreCompact   EventType = "pre_compact"
)

// Session start sources reported by the host
const (
	SourceStartup = "startup"
	SourceResume  = "resume"
	SourceClear   = "clear"
)

// Compaction triggers reported by the host
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// BasePayload contains fields common to all hook payloads
type BasePayload struct {
	Event     EventType `json:"event"`
	SessionID string    `json:"session_id"`
	CWD       string    `json:"cwd"`
}

// SessionStartPayload is delivered on session_start
type SessionStartPayload struct {
	BasePayload
	Source string `json:"source"`
}

// SessionEndPayload is delivered on session_end
type SessionEndPayload struct {
	BasePayload
	Reason string `json:"reason"`
}

// PreCompactPayload is delivered before the host compacts the transcript
type PreCompactPayload struct {
	BasePayload
	Trigger            string `json:"trigger"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// SessionStartResult carries context lines the host injects into the session
type SessionStartResult struct {
	SessionID string   `json:"session_id"`
	Context   []string `json:"context,omitempty"`
}

// SessionEndResult is returned by the session_end handler
type SessionEndResult struct {
	SessionID string `json:"session_id"`
}

// PreCompactResult is returned by the pre_compact handler
type PreCompactResult struct {
	SessionID    string `json:"session_id"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	Compactions  int    `json:"compactions"`
}
