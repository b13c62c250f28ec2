package main

const (
	RaceCountdownTime = 3.0
	RaceTotalLaps     = 3
)

type raceProgress struct {
	lap        int
	checkpoint int // next waypoint index to cross
	finished   bool
}

// Race tracks the room's race lifecycle and per-car lap progress.
type Race struct {
	phase     string
	countdown float64
	laps      int
	winnerID  string
	progress  map[string]*raceProgress
}

// NewRace creates a race in the lobby phase.
func NewRace() *Race {
	return &Race{
		phase:    RaceLobby,
		laps:     RaceTotalLaps,
		progress: make(map[string]*raceProgress),
	}
}

// Start arms the countdown. A no-op outside the lobby and finished phases.
func (r *Race) Start() {
	if r.phase == RaceLobby || r.phase == RaceFinished {
		r.phase = RaceCountdown
		r.countdown = RaceCountdownTime
		r.winnerID = ""
		r.progress = make(map[string]*raceProgress)
	}
}

// Phase returns the current race phase.
func (r *Race) Phase() string {
	return r.phase
}

// Update advances the race state machine and each car's checkpoint
// progress.
func (r *Race) Update(dt float64, cars map[string]*Car, track *Track) {
	switch r.phase {
	case RaceCountdown:
		r.countdown -= dt
		if r.countdown <= 0 {
			r.countdown = 0
			r.phase = RaceRunning
		}
	case RaceRunning:
		for id, car := range cars {
			p, ok := r.progress[id]
			if !ok {
				p = &raceProgress{}
				r.progress[id] = p
			}
			if p.finished {
				continue
			}
			wx, wz := track.Waypoint(p.checkpoint)
			if Distance(car.X, car.Z, wx, wz) > CheckpointRadius {
				continue
			}
			p.checkpoint++
			if p.checkpoint >= track.WaypointCount() {
				p.checkpoint = 0
				p.lap++
				if p.lap >= r.laps {
					p.finished = true
					if r.winnerID == "" {
						r.winnerID = id
						r.phase = RaceFinished
					}
				}
			}
		}
	}
	// Drop progress for cars that left the room.
	for id := range r.progress {
		if _, ok := cars[id]; !ok {
			delete(r.progress, id)
		}
	}
}

// ToState converts to the broadcast representation. Player order follows
// the cars slice so the output is stable per snapshot.
func (r *Race) ToState(cars []CarState) *RaceState {
	st := &RaceState{
		Phase:     r.phase,
		Countdown: round2(r.countdown),
		Laps:      r.laps,
		WinnerID:  r.winnerID,
	}
	for _, c := range cars {
		p, ok := r.progress[c.PlayerID]
		if !ok {
			p = &raceProgress{}
		}
		st.Players = append(st.Players, RacePlayerState{
			PlayerID:   c.PlayerID,
			Username:   c.Username,
			Lap:        p.lap,
			Checkpoint: p.checkpoint,
			Finished:   p.finished,
		})
	}
	return st
}

// radioStations is the fixed station rotation every room cycles through.
var radioStations = []string{
	"Neon Drive FM",
	"Turbo Beats",
	"Desert Static",
	"Night Circuit",
}

// Radio is the room's shared radio.
type Radio struct {
	station   int
	startedAt float64
}

// Cycle advances to the next station at the given server time.
func (r *Radio) Cycle(now float64) {
	r.station = (r.station + 1) % len(radioStations)
	r.startedAt = now
}

// ToState converts to the broadcast representation.
func (r *Radio) ToState() *RadioState {
	return &RadioState{
		Station:   r.station,
		Name:      radioStations[r.station],
		StartedAt: round2(r.startedAt),
	}
}
