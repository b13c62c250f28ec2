package main

import "sync"

const maxRooms = 50

// Room is one race lobby that clients join.
type Room struct {
	ID    string
	Track *Track
	Game  *Game
}

// RoomManager handles creation and lookup of rooms.
type RoomManager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	defaultID string
	telemetry *Telemetry
}

// NewRoomManager creates an empty manager.
func NewRoomManager(telemetry *Telemetry) *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		telemetry: telemetry,
	}
}

// CreateRoom starts a new room on the given track. Returns nil if the
// room limit is reached.
func (rm *RoomManager) CreateRoom(trackID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.createRoomLocked(trackID)
}

func (rm *RoomManager) createRoomLocked(trackID string) *Room {
	if len(rm.rooms) >= maxRooms {
		return nil
	}

	id := GenerateUUID()
	track := NewTrack(trackID)
	room := &Room{
		ID:    id,
		Track: track,
		Game:  NewGame(id, track, rm.telemetry),
	}
	rm.rooms[id] = room
	go room.Game.Run()
	return room
}

// GetRoom returns a room by id.
func (rm *RoomManager) GetRoom(id string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// DefaultRoom returns the shared drop-in room, creating it on first use.
// Clients that join with a blank roomId land here. Check and create
// happen under one lock so concurrent first joiners share one room.
func (rm *RoomManager) DefaultRoom() *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.defaultID != "" {
		if room, ok := rm.rooms[rm.defaultID]; ok {
			return room
		}
	}
	room := rm.createRoomLocked(DefaultTrackID)
	if room != nil {
		rm.defaultID = room.ID
	}
	return room
}

// RemovePlayer removes a player from a room and tears the room down once
// the last human leaves (the default room stays up for drop-ins).
func (rm *RoomManager) RemovePlayer(roomID, playerID string) {
	rm.mu.RLock()
	room, ok := rm.rooms[roomID]
	isDefault := roomID == rm.defaultID
	rm.mu.RUnlock()
	if !ok {
		return
	}
	room.Game.RemoveCar(playerID)

	if !isDefault && room.Game.PlayerCount() == 0 {
		room.Game.Stop()
		rm.mu.Lock()
		delete(rm.rooms, roomID)
		rm.mu.Unlock()
	}
}

// RoomCount returns the number of active rooms.
func (rm *RoomManager) RoomCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
