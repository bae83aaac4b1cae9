package domain

import "time"

// Wire event tags. Clients send message/typing/reaction/read/image;
// status is server-to-client only.
const (
	EventMessage  = "message"
	EventTyping   = "typing"
	EventReaction = "reaction"
	EventRead     = "read"
	EventImage    = "image"
	EventStatus   = "status"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is the minimal shape every inbound event must parse to.
type Envelope struct {
	Type string `json:"type"`
}

type StatusEvent struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen,omitempty"`
}

func OnlineStatus(user Username) StatusEvent {
	return StatusEvent{Type: EventStatus, User: string(user), Status: StatusOnline}
}

func OfflineStatus(user Username, lastSeen time.Time) StatusEvent {
	return StatusEvent{
		Type:     EventStatus,
		User:     string(user),
		Status:   StatusOffline,
		LastSeen: lastSeen.Format(time.RFC3339),
	}
}

type TypingEvent struct {
	Type string `json:"type"`
}

func Typing() TypingEvent { return TypingEvent{Type: EventTyping} }

// MessageEvent is the shape bridge-originated text takes on the wire.
type MessageEvent struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// ImageEvent carries either a resource URL or an inline data-URL.
type ImageEvent struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Sender string `json:"sender,omitempty"`
}
