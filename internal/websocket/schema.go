package websocket

import "github.com/hsscguru/hssc-guru-backend/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent  Action = "event"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// Request is a client message. Event is only read for ActionEvent.
type Request struct {
	Action Action        `json:"action"`
	Event  session.Event `json:"event"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSnapshot  Event = "snapshot"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// SnapshotResponse carries the session state after a tick or an action.
type SnapshotResponse struct {
	Event    Event            `json:"event"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// SubmittedResponse is sent once when the session finishes.
type SubmittedResponse struct {
	Event     Event  `json:"event"`
	AttemptID string `json:"attempt_id"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
