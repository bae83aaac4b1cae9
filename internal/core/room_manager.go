package core

import (
	"sync"

	"chat-relay/internal/domain"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]RoomService
}

func NewRoomManager() RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomName]RoomService)}
}

func (f *RoomManagerImpl) GetOrCreate(name domain.RoomName) RoomService {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[name]; ok {
		return room
	}
	room = NewRoomService(name)
	f.rooms[name] = room
	return room
}

func (f *RoomManagerImpl) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}
