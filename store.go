package main

import "sync"

// RoomInfo is the identity side of a room: who we are, where we are, and
// who else is there. It travels separately from the position stream.
type RoomInfo struct {
	RoomID   string
	PlayerID string
	Track    string
	Players  []PlayerInfo
}

// StateStore holds the latest reconciled snapshot plus room identity and
// fans both out to subscribers. New subscribers synchronously receive the
// last known value before Subscribe returns, so a consumer that attaches
// after data arrived still renders.
type StateStore struct {
	mu        sync.Mutex
	info      *RoomInfo
	state     *RoomState
	nextSubID int
	infoSubs  map[int]func(RoomInfo)
	stateSubs map[int]func(*RoomState)
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		infoSubs:  make(map[int]func(RoomInfo)),
		stateSubs: make(map[int]func(*RoomState)),
	}
}

// SetRoomInfo replaces the room identity and roster. Blank usernames
// default to the player id.
func (s *StateStore) SetRoomInfo(roomID, playerID, track string, players []PlayerInfo) {
	normalized := make([]PlayerInfo, len(players))
	for i, p := range players {
		if p.Username == "" {
			p.Username = p.PlayerID
		}
		normalized[i] = p
	}
	s.mu.Lock()
	s.info = &RoomInfo{
		RoomID:   roomID,
		PlayerID: playerID,
		Track:    track,
		Players:  normalized,
	}
	s.mu.Unlock()
	s.notifyRoomInfo()
}

// UpdatePlayer upserts one roster entry (player_joined / player_updated).
func (s *StateStore) UpdatePlayer(playerID, username string) {
	if username == "" {
		username = playerID
	}
	s.mu.Lock()
	if s.info == nil {
		s.info = &RoomInfo{}
	}
	found := false
	for i, p := range s.info.Players {
		if p.PlayerID == playerID {
			s.info.Players[i].Username = username
			found = true
			break
		}
	}
	if !found {
		s.info.Players = append(s.info.Players, PlayerInfo{PlayerID: playerID, Username: username})
	}
	s.mu.Unlock()
	s.notifyRoomInfo()
}

// UpdateState replaces the held snapshot wholesale (reconciliation already
// happened upstream) and notifies state subscribers. Identities appearing
// in the car or race-player lists that were never announced via room info
// (late-joining NPCs) are harvested into the roster.
func (s *StateStore) UpdateState(state *RoomState) {
	if state == nil {
		return
	}
	s.mu.Lock()
	s.state = state
	rosterChanged := false
	if s.info != nil {
		known := make(map[string]bool, len(s.info.Players))
		for _, p := range s.info.Players {
			known[p.PlayerID] = true
		}
		harvest := func(id, username string) {
			if id == "" || known[id] {
				return
			}
			if username == "" {
				username = id
			}
			s.info.Players = append(s.info.Players, PlayerInfo{PlayerID: id, Username: username})
			known[id] = true
			rosterChanged = true
		}
		for _, c := range state.Cars {
			harvest(c.PlayerID, c.Username)
		}
		if state.Race != nil {
			for _, p := range state.Race.Players {
				harvest(p.PlayerID, p.Username)
			}
		}
	}
	s.mu.Unlock()

	if rosterChanged {
		s.notifyRoomInfo()
	}
	s.notifyState()
}

// RoomInfo returns the current room identity, or nil before the first
// SetRoomInfo.
func (s *StateStore) RoomInfo() *RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// State returns the current snapshot, or nil before the first UpdateState.
func (s *StateStore) State() *RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnRoomInfo subscribes to room identity changes. The last known value is
// replayed synchronously before OnRoomInfo returns. The returned func
// unsubscribes; calling it from within the callback is safe.
func (s *StateStore) OnRoomInfo(fn func(RoomInfo)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.infoSubs[id] = fn
	current := s.info
	s.mu.Unlock()

	if current != nil {
		fn(*current)
	}
	return func() {
		s.mu.Lock()
		delete(s.infoSubs, id)
		s.mu.Unlock()
	}
}

// OnState subscribes to snapshot replacements with the same replay and
// unsubscribe semantics as OnRoomInfo.
func (s *StateStore) OnState(fn func(*RoomState)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.stateSubs[id] = fn
	current := s.state
	s.mu.Unlock()

	if current != nil {
		fn(current)
	}
	return func() {
		s.mu.Lock()
		delete(s.stateSubs, id)
		s.mu.Unlock()
	}
}

// notifyRoomInfo fans out to a stable snapshot of the registry so
// detaching within a callback neither throws nor skips other listeners.
func (s *StateStore) notifyRoomInfo() {
	s.mu.Lock()
	if s.info == nil {
		s.mu.Unlock()
		return
	}
	value := *s.info
	subs := make([]func(RoomInfo), 0, len(s.infoSubs))
	for _, fn := range s.infoSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

func (s *StateStore) notifyState() {
	s.mu.Lock()
	value := s.state
	subs := make([]func(*RoomState), 0, len(s.stateSubs))
	for _, fn := range s.stateSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if value == nil {
		return
	}
	for _, fn := range subs {
		fn(value)
	}
}
