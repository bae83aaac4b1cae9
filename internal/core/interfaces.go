package core

import (
	"time"

	"chat-relay/internal/domain"
)

// Frame is a serialized wire event, sent verbatim to each member.
type Frame []byte

// MemberConnection abstracts a member's transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type MemberConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Username domain.Username `json:"username"`
}

// PublishResult reports delivery stats to the caller.
// Dropped sends are counted, never surfaced as errors.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// RoomService owns membership and presence for one room.
// Every operation is atomic with respect to the others on the same room.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	MembersSnapshot() []MemberDTO

	// Join adds conn under username, evicting any live entry for the
	// same username first. The evicted connection (if any) is returned;
	// the room never closes transports itself.
	Join(username domain.Username, conn MemberConnection) (evicted MemberConnection)

	// Leave removes the entry matching conn by identity, not username,
	// so a stale disconnect cannot clobber a newer session under the
	// same name. Presence flips to offline only when an entry was
	// actually removed.
	Leave(conn MemberConnection) (username domain.Username, removed bool)

	// Broadcast fans frame out to every member except exclude.
	Broadcast(exclude domain.Username, frame Frame) PublishResult

	// BroadcastAll fans frame out to every member.
	BroadcastAll(frame Frame) PublishResult

	// LastSeen reports presence: (nil, true) online, (t, true) offline
	// since t, (nil, false) never seen in this room.
	LastSeen(username domain.Username) (*time.Time, bool)
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
}

// RoomManager hands out rooms, creating them lazily on first use.
// Rooms persist empty for the process lifetime.
type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	List() []RoomInfo
}
