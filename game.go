package main

import (
	"math"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 20 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
	KeyframeEvery  = 20 // broadcasts between full snapshots (~1s)
)

const (
	maxMissilesPerRoom = 64
	maxCarsPerRoom     = 12
	npcFillCount       = 3
)

// Broadcaster is the client-facing send surface. JSON text frames carry
// control messages, binary frames carry msgpack state.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Game runs the authoritative simulation for one room. All mutation
// happens on the tick goroutine or under mu from message handlers.
type Game struct {
	mu       sync.RWMutex
	roomID   string
	track    *Track
	cars     map[string]*Car
	missiles map[string]*Missile
	items    map[string]*Item
	clients  map[string]Broadcaster // playerID -> connection
	race     *Race
	radio    *Radio

	carHash  *SpatialHash
	itemHash *SpatialHash
	queryBuf []int
	carList  []*Car // flat list backing carHash indices, rebuilt per tick
	itemList []*Item

	serverTime float64
	itemTimer  float64
	tick       uint64
	nextSlot   int

	// prevSnapshot is the last broadcast snapshot; deltas diff against it
	// and resyncing clients are re-anchored to it.
	prevSnapshot       *RoomState
	broadcastsSinceKey int

	telemetry *Telemetry
	running   bool
	stopCh    chan struct{}
}

// NewGame creates a room simulation on the given track, pre-filled with
// NPC cars so the track is never empty.
func NewGame(roomID string, track *Track, telemetry *Telemetry) *Game {
	g := &Game{
		roomID:    roomID,
		track:     track,
		cars:      make(map[string]*Car),
		missiles:  make(map[string]*Missile),
		items:     make(map[string]*Item),
		clients:   make(map[string]Broadcaster),
		race:      NewRace(),
		radio:     &Radio{},
		carHash:   NewSpatialHash(DefaultCellSize),
		itemHash:  NewSpatialHash(DefaultCellSize),
		telemetry: telemetry,
		stopCh:    make(chan struct{}),
	}
	for i := 0; i < npcFillCount; i++ {
		g.addCarLocked("npc-"+GenerateID(2), npcNames[i%len(npcNames)], true)
	}
	return g
}

var npcNames = []string{"AI Dash", "AI Bolt", "AI Drift", "AI Apex"}

// Run starts the tick loop.
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stopCh:
			return
		}
	}
}

// Stop terminates the tick loop.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.running = false
		close(g.stopCh)
	}
}

func (g *Game) addCarLocked(id, username string, isNPC bool) *Car {
	car := NewCar(id, username, isNPC, g.track, g.nextSlot)
	g.nextSlot++
	g.cars[id] = car
	return car
}

// AddCar adds a player car and announces it on the identity channel.
// Returns nil when the room is full.
func (g *Game) AddCar(id, username string) *Car {
	g.mu.Lock()
	if len(g.cars) >= maxCarsPerRoom {
		g.mu.Unlock()
		return nil
	}
	car := g.addCarLocked(id, username, false)
	if g.race.Phase() == RaceLobby {
		g.race.Start()
	}
	g.mu.Unlock()

	g.broadcastMsg(Envelope{T: MsgPlayerJoined, Data: PlayerEventMsg{
		RoomID:   g.roomID,
		PlayerID: id,
		Username: username,
	}})
	return car
}

// RemoveCar removes a car and its connection.
func (g *Game) RemoveCar(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cars, id)
	delete(g.clients, id)
}

// SetClient associates a connection with a player id.
func (g *Game) SetClient(playerID string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[playerID] = client
}

// RemoveClient detaches a connection without removing the car, used for
// spectators and controller handoff.
func (g *Game) RemoveClient(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, playerID)
}

// HasCar reports whether a car with the given id exists.
func (g *Game) HasCar(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.cars[id]
	return ok
}

// PlayerCount returns the number of non-NPC cars.
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, c := range g.cars {
		if !c.IsNPC {
			n++
		}
	}
	return n
}

// Roster returns the current identity list, NPCs included.
func (g *Game) Roster() []PlayerInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	roster := make([]PlayerInfo, 0, len(g.cars))
	for _, c := range g.cars {
		roster = append(roster, PlayerInfo{PlayerID: c.ID, Username: c.Username})
	}
	return roster
}

// HandleInput applies controller input to a car. Actions (turbo, fire)
// are one-shot edges, not held state.
func (g *Game) HandleInput(playerID string, input InputMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()

	car, ok := g.cars[playerID]
	if !ok {
		return
	}
	car.SetInput(input.Steer, input.Throttle, input.Brake)
	for _, action := range input.Actions {
		switch action {
		case ActionTurbo:
			car.TriggerTurbo()
		case ActionFire:
			g.fireMissileLocked(car)
		}
	}
}

// Rename updates a username and announces it on the identity channel.
func (g *Game) Rename(playerID, username string) bool {
	g.mu.Lock()
	car, ok := g.cars[playerID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	car.Username = username
	g.mu.Unlock()

	g.broadcastMsg(Envelope{T: MsgPlayerUpdated, Data: PlayerEventMsg{
		RoomID:   g.roomID,
		PlayerID: playerID,
		Username: username,
	}})
	return true
}

// CycleRadio advances the room radio.
func (g *Game) CycleRadio() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.radio.Cycle(g.serverTime)
}

// fireMissileLocked launches a missile and acquires a homing target from
// the current tick's spatial index: the nearest car inside the
// acquisition circle ahead of the shooter.
func (g *Game) fireMissileLocked(owner *Car) {
	if !owner.CanFire() || len(g.missiles) >= maxMissilesPerRoom {
		return
	}
	owner.ConsumeMissile()
	m := NewMissile(owner)

	aimX := owner.X + MissileAimAhead*math.Cos(owner.Angle)
	aimZ := owner.Z + MissileAimAhead*math.Sin(owner.Angle)
	g.queryBuf = g.carHash.QueryIndices(aimX, aimZ, MissileAimRadius, g.queryBuf)
	bestDist := MissileAimRadius
	for _, idx := range g.queryBuf {
		candidate := g.carList[idx]
		if candidate.ID == owner.ID {
			continue
		}
		if d := Distance(aimX, aimZ, candidate.X, candidate.Z); d < bestDist {
			bestDist = d
			m.TargetID = candidate.ID
		}
	}
	g.missiles[m.ID] = m
}

// update runs one simulation tick.
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	dt := 1.0 / float64(TickRate)
	g.tick++
	g.serverTime += dt

	for _, car := range g.cars {
		car.Update(dt, g.track)
	}

	g.rebuildSpatialLocked()

	// Item spawning
	g.itemTimer += dt
	if g.itemTimer >= ItemSpawnPeriod {
		g.itemTimer = 0
		if len(g.items) < MaxItemsPerRoom {
			item := NewItem(g.track)
			g.items[item.ID] = item
		}
	}

	g.resolvePickupsLocked()
	g.updateMissilesLocked(dt)
	g.race.Update(dt, g.cars, g.track)

	if g.tick%BroadcastEvery == 0 {
		g.broadcastStateLocked()
	}
}

// rebuildSpatialLocked rebuilds both broad-phase indices from scratch.
// Indices are positions in the flat carList/itemList of this tick only.
func (g *Game) rebuildSpatialLocked() {
	g.carHash.Reset(0)
	g.carList = g.carList[:0]
	for _, car := range g.cars {
		g.carHash.Insert(len(g.carList), car.X, car.Z)
		g.carList = append(g.carList, car)
	}

	g.itemHash.Reset(0)
	g.itemList = g.itemList[:0]
	for _, item := range g.items {
		g.itemHash.Insert(len(g.itemList), item.X, item.Z)
		g.itemList = append(g.itemList, item)
	}
}

// resolvePickupsLocked collects items via the broad phase, then confirms
// with an exact distance check before applying.
func (g *Game) resolvePickupsLocked() {
	for _, car := range g.cars {
		g.queryBuf = g.itemHash.QueryIndices(car.X, car.Z, ItemPickupRadius+CarRadius, g.queryBuf)
		for _, idx := range g.queryBuf {
			item := g.itemList[idx]
			if _, alive := g.items[item.ID]; !alive {
				continue // already taken this tick
			}
			if !CheckCollision(car.X, car.Z, CarRadius, item.X, item.Z, ItemPickupRadius) {
				continue
			}
			item.Apply(car)
			delete(g.items, item.ID)
		}
	}
}

// updateMissilesLocked advances homing and resolves hits via the broad
// phase plus an exact distance check.
func (g *Game) updateMissilesLocked(dt float64) {
	for id, m := range g.missiles {
		if target, ok := g.cars[m.TargetID]; ok {
			m.Home(target.X, target.Z, dt)
		}
		m.Update(dt)
		if !m.Alive {
			delete(g.missiles, id)
			continue
		}

		g.queryBuf = g.carHash.QueryIndices(m.X, m.Z, MissileHitRadius+CarRadius, g.queryBuf)
		for _, idx := range g.queryBuf {
			victim := g.carList[idx]
			if victim.ID == m.OwnerID {
				continue
			}
			if !CheckCollision(m.X, m.Z, MissileHitRadius, victim.X, victim.Z, CarRadius) {
				continue
			}
			victim.ImpactSpinTimeLeft = ImpactSpinTime
			victim.TurboActive = false
			victim.TurboDurationLeft = 0
			delete(g.missiles, id)
			break
		}
	}
}

// buildSnapshotLocked assembles the broadcast snapshot for this tick.
func (g *Game) buildSnapshotLocked() *RoomState {
	s := &RoomState{
		RoomID:     g.roomID,
		TrackID:    g.track.ID,
		ServerTime: round2(g.serverTime),
		Cars:       make([]CarState, 0, len(g.cars)),
		Missiles:   make([]MissileState, 0, len(g.missiles)),
		Items:      make([]ItemState, 0, len(g.items)),
		Radio:      g.radio.ToState(),
	}
	for _, car := range g.cars {
		s.Cars = append(s.Cars, car.ToState())
	}
	for _, m := range g.missiles {
		s.Missiles = append(s.Missiles, m.ToState())
	}
	for _, it := range g.items {
		s.Items = append(s.Items, it.ToState())
	}
	s.Race = g.race.ToState(s.Cars)
	return s
}

// broadcastStateLocked emits either a keyframe (full snapshot) or a delta
// against the previous broadcast snapshot.
func (g *Game) broadcastStateLocked() {
	snapshot := g.buildSnapshotLocked()

	keyframe := g.prevSnapshot == nil || g.broadcastsSinceKey >= KeyframeEvery
	if keyframe {
		if data, err := encodeStateFrame(FrameStateFull, snapshot); err == nil {
			for _, client := range g.clients {
				client.SendBinary(data)
			}
			g.telemetry.Track(EvtSnapshotSent)
		}
		g.broadcastsSinceKey = 0
	} else {
		delta := Diff(g.prevSnapshot, snapshot)
		if !delta.Empty() {
			if data, err := encodeStateFrame(FrameStateDelta, delta); err == nil {
				for _, client := range g.clients {
					client.SendBinary(data)
				}
				g.telemetry.Track(EvtDeltaSent)
			}
		}
		g.broadcastsSinceKey++
	}
	g.prevSnapshot = snapshot
}

// SendStateFull re-anchors one client with the last broadcast snapshot.
// Deltas diff against that same snapshot, so the resynced client chains
// cleanly onto the stream.
func (g *Game) SendStateFull(client Broadcaster) {
	g.mu.Lock()
	if g.prevSnapshot == nil {
		g.prevSnapshot = g.buildSnapshotLocked()
		g.broadcastsSinceKey = 0
	}
	snapshot := g.prevSnapshot
	g.mu.Unlock()

	if data, err := encodeStateFrame(FrameStateFull, snapshot); err == nil {
		client.SendBinary(data)
		g.telemetry.Track(EvtResyncServed)
	}
}

// broadcastMsg sends a control message to every connected client.
func (g *Game) broadcastMsg(msg Envelope) {
	g.mu.RLock()
	clients := make([]Broadcaster, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()
	for _, c := range clients {
		c.SendJSON(msg)
	}
}

// encodeStateFrame prepends the frame kind byte to the msgpack payload.
func encodeStateFrame(kind byte, payload interface{}) ([]byte, error) {
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, len(body)+1)
	frame[0] = kind
	copy(frame[1:], body)
	return frame, nil
}
