package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chat-relay/internal/domain"
)

type member struct {
	conn     MemberConnection
	username domain.Username
}

// roomImpl is a threadsafe in-memory room.
// One mutex guards membership and presence together, so a reader can
// never observe a half-applied join or leave.
type roomImpl struct {
	name domain.RoomName

	mu       sync.RWMutex
	members  []member
	lastSeen map[domain.Username]*time.Time // nil = online
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:     name,
		lastSeen: make(map[domain.Username]*time.Time),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Join(username domain.Username, conn MemberConnection) MemberConnection {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted MemberConnection
	kept := r.members[:0]
	for _, m := range r.members {
		if m.username == username {
			evicted = m.conn
			continue
		}
		kept = append(kept, m)
	}
	r.members = append(kept, member{conn: conn, username: username})
	r.lastSeen[username] = nil

	log.Info().Str("module", "core.room").Str("room", string(r.name)).
		Str("user", string(username)).Bool("evicted_stale", evicted != nil).
		Msg("member joined")
	return evicted
}

func (r *roomImpl) Leave(conn MemberConnection) (domain.Username, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.members {
		if m.conn == conn {
			r.members = append(r.members[:i], r.members[i+1:]...)
			now := time.Now()
			r.lastSeen[m.username] = &now
			log.Info().Str("module", "core.room").Str("room", string(r.name)).
				Str("user", string(m.username)).Msg("member left")
			return m.username, true
		}
	}
	return "", false
}

func (r *roomImpl) Broadcast(exclude domain.Username, frame Frame) PublishResult {
	return r.publish(frame, func(m member) bool { return m.username != exclude })
}

func (r *roomImpl) BroadcastAll(frame Frame) PublishResult {
	return r.publish(frame, func(member) bool { return true })
}

func (r *roomImpl) publish(frame Frame, want func(member) bool) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for _, m := range r.members {
		if !want(m) {
			continue
		}
		if err := m.conn.TrySend(frame); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).
		Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, MemberDTO{Username: m.username})
	}
	return out
}

func (r *roomImpl) LastSeen(username domain.Username) (*time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastSeen[username]
	return t, ok
}
