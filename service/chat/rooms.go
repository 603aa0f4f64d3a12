package chat

import (
	"sync"

	"ChatBuddy/logger"
)

// RoomManager groups live connections into named broadcast sets. Membership is
// in-process state only; it is rebuilt from scratch as connections come and
// go and is never persisted.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Conn // roomID -> connID -> conn
	joined map[string]map[string]bool  // connID -> roomID set
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[string]*Conn),
		joined: make(map[string]map[string]bool),
	}
}

// Join adds the connection to the room; joining twice is a no-op.
func (r *RoomManager) Join(c *Conn, roomID string) {
	if c == nil || roomID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	mm := r.rooms[roomID]
	if mm == nil {
		mm = make(map[string]*Conn)
		r.rooms[roomID] = mm
	}
	mm[c.ID] = c

	js := r.joined[c.ID]
	if js == nil {
		js = make(map[string]bool)
		r.joined[c.ID] = js
	}
	js[roomID] = true
}

// Leave removes the connection from the room; absent membership is a no-op.
func (r *RoomManager) Leave(c *Conn, roomID string) {
	if c == nil || roomID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c.ID, roomID)
}

// LeaveAll removes the connection from every room it joined. Called on
// disconnect.
func (r *RoomManager) LeaveAll(c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.joined[c.ID] {
		r.leaveLocked(c.ID, roomID)
	}
}

func (r *RoomManager) leaveLocked(connID, roomID string) {
	if mm := r.rooms[roomID]; mm != nil {
		delete(mm, connID)
		if len(mm) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if js := r.joined[connID]; js != nil {
		delete(js, roomID)
		if len(js) == 0 {
			delete(r.joined, connID)
		}
	}
}

// BroadcastToRoom sends a named event to every member of the room. The
// envelope is encoded once; per-member delivery stays best effort.
func (r *RoomManager) BroadcastToRoom(roomID, event string, data any) {
	r.emit(nil, roomID, event, data)
}

// EmitToRoomExcept sends to every member but the given connection. Used by the
// typing indicator so the sender does not see their own event.
func (r *RoomManager) EmitToRoomExcept(c *Conn, roomID, event string, data any) {
	r.emit(c, roomID, event, data)
}

func (r *RoomManager) emit(except *Conn, roomID, event string, data any) {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		logger.Errorf("[rooms] encode %s for room %s: %v", event, roomID, err)
		return
	}

	r.mu.RLock()
	members := make([]*Conn, 0, len(r.rooms[roomID]))
	for _, m := range r.rooms[roomID] {
		if except != nil && m.ID == except.ID {
			continue
		}
		members = append(members, m)
	}
	r.mu.RUnlock()

	for _, m := range members {
		m.Send(payload)
	}
}

// Members reports the current size of a room.
func (r *RoomManager) Members(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
