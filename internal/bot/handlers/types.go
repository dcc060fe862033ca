package handlers

import (
	"context"

	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
)

// EventKind tells which of the three inputs an event carries.
type EventKind int

const (
	EventText EventKind = iota
	EventSelection
	EventFile
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventSelection:
		return "selection"
	case EventFile:
		return "file"
	default:
		return "unknown"
	}
}

// FileRef points at an uploaded document without holding its content.
type FileRef struct {
	ID   string
	MIME string
	Name string
	Size int64
}

// Event is a transport-neutral input from one session.
type Event struct {
	Kind      EventKind
	SessionID int64
	CallerID  int64
	FirstName string
	Text      string
	Selection screen.Selection
	File      FileRef
}

// Responder delivers payloads back to the session the event came from.
type Responder interface {
	Send(ctx context.Context, p screen.Payload) error
	// Notify shows a short toast for a button press; alert asks for a modal.
	Notify(ctx context.Context, text string, alert bool) error
}

// Request is what a handler works on.
type Request struct {
	Route   string
	Event   Event
	Session *state.UserState
	IsAdmin bool
	Reply   Responder
}

// Handler processes one routed event.
type Handler func(ctx context.Context, req *Request) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// FileFetcher downloads an uploaded document as text.
type FileFetcher interface {
	Fetch(ctx context.Context, ref FileRef) (string, error)
}
