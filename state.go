package main

// RoomState is the authoritative snapshot of one room. Entity collections
// are keyed by a stable identity string; key uniqueness within a collection
// is an invariant. Collection order carries no meaning on the wire.
type RoomState struct {
	RoomID     string         `json:"roomId" msgpack:"roomId"`
	TrackID    string         `json:"trackId" msgpack:"trackId"`
	ServerTime float64        `json:"serverTime" msgpack:"serverTime"`
	Cars       []CarState     `json:"cars" msgpack:"cars"`
	Missiles   []MissileState `json:"missiles" msgpack:"missiles"`
	Items      []ItemState    `json:"items" msgpack:"items"`
	Radio      *RadioState    `json:"radio,omitempty" msgpack:"radio,omitempty"`
	Race       *RaceState     `json:"race,omitempty" msgpack:"race,omitempty"`
}

// CarState is the broadcast representation of one car.
type CarState struct {
	PlayerID           string  `json:"playerId" msgpack:"playerId"`
	Username           string  `json:"username,omitempty" msgpack:"username,omitempty"`
	X                  float64 `json:"x" msgpack:"x"`
	Z                  float64 `json:"z" msgpack:"z"`
	Angle              float64 `json:"angle" msgpack:"angle"` // radians
	Speed              float64 `json:"speed" msgpack:"speed"`
	IsNPC              bool    `json:"isNpc,omitempty" msgpack:"isNpc,omitempty"`
	TurboActive        bool    `json:"turboActive,omitempty" msgpack:"turboActive,omitempty"`
	TurboCharges       int     `json:"turboCharges,omitempty" msgpack:"turboCharges,omitempty"`
	TurboRecharge      float64 `json:"turboRecharge,omitempty" msgpack:"turboRecharge,omitempty"`
	TurboDurationLeft  float64 `json:"turboDurationLeft,omitempty" msgpack:"turboDurationLeft,omitempty"`
	MissileCharges     int     `json:"missileCharges,omitempty" msgpack:"missileCharges,omitempty"`
	MissileRecharge    float64 `json:"missileRecharge,omitempty" msgpack:"missileRecharge,omitempty"`
	ImpactSpinTimeLeft float64 `json:"impactSpinTimeLeft,omitempty" msgpack:"impactSpinTimeLeft,omitempty"`
}

// MissileState is the broadcast representation of one missile.
type MissileState struct {
	ID       string  `json:"id" msgpack:"id"`
	OwnerID  string  `json:"ownerId" msgpack:"ownerId"`
	X        float64 `json:"x" msgpack:"x"`
	Z        float64 `json:"z" msgpack:"z"`
	Angle    float64 `json:"angle" msgpack:"angle"`
	Speed    float64 `json:"speed" msgpack:"speed"`
	TargetID string  `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
}

// Item types
const (
	ItemNitro = "nitro"
	ItemShoot = "shoot"
)

// ItemState is an atomic spawn/pickup entity. Items are never partially
// mutated, so deltas only add or remove them.
type ItemState struct {
	ID    string  `json:"id" msgpack:"id"`
	Type  string  `json:"type" msgpack:"type"`
	X     float64 `json:"x" msgpack:"x"`
	Z     float64 `json:"z" msgpack:"z"`
	Angle float64 `json:"angle" msgpack:"angle"`
}

// RadioState describes what the room radio is playing.
type RadioState struct {
	Station   int     `json:"station" msgpack:"station"`
	Name      string  `json:"name" msgpack:"name"`
	StartedAt float64 `json:"startedAt" msgpack:"startedAt"`
}

// Race phases
const (
	RaceLobby     = "lobby"
	RaceCountdown = "countdown"
	RaceRunning   = "running"
	RaceFinished  = "finished"
)

// RaceState tracks the race lifecycle and per-player progress.
type RaceState struct {
	Phase     string            `json:"phase" msgpack:"phase"`
	Countdown float64           `json:"countdown,omitempty" msgpack:"countdown,omitempty"`
	Laps      int               `json:"laps" msgpack:"laps"`
	Players   []RacePlayerState `json:"players,omitempty" msgpack:"players,omitempty"`
	WinnerID  string            `json:"winnerId,omitempty" msgpack:"winnerId,omitempty"`
}

// RacePlayerState is one player's race progress.
type RacePlayerState struct {
	PlayerID   string `json:"playerId" msgpack:"playerId"`
	Username   string `json:"username,omitempty" msgpack:"username,omitempty"`
	Lap        int    `json:"lap" msgpack:"lap"`
	Checkpoint int    `json:"checkpoint" msgpack:"checkpoint"`
	Finished   bool   `json:"finished,omitempty" msgpack:"finished,omitempty"`
}

// RoomStateDelta is the incremental diff applied against the last
// reconciled snapshot. Scalar fields are present-or-absent whole-value
// overrides; absence means "unchanged", never "clear".
type RoomStateDelta struct {
	RoomID     *string        `json:"roomId,omitempty" msgpack:"roomId,omitempty"`
	TrackID    *string        `json:"trackId,omitempty" msgpack:"trackId,omitempty"`
	ServerTime *float64       `json:"serverTime,omitempty" msgpack:"serverTime,omitempty"`
	Cars       *CarsDelta     `json:"cars,omitempty" msgpack:"cars,omitempty"`
	Missiles   *MissilesDelta `json:"missiles,omitempty" msgpack:"missiles,omitempty"`
	Items      *ItemsDelta    `json:"items,omitempty" msgpack:"items,omitempty"`
	Radio      *RadioState    `json:"radio,omitempty" msgpack:"radio,omitempty"`
	Race       *RaceState     `json:"race,omitempty" msgpack:"race,omitempty"`
}

// CarsDelta carries incremental changes to the car collection.
type CarsDelta struct {
	Added   []CarState `json:"added,omitempty" msgpack:"added,omitempty"`
	Updated []CarPatch `json:"updated,omitempty" msgpack:"updated,omitempty"`
	Removed []string   `json:"removed,omitempty" msgpack:"removed,omitempty"`
}

// MissilesDelta carries incremental changes to the missile collection.
type MissilesDelta struct {
	Added   []MissileState `json:"added,omitempty" msgpack:"added,omitempty"`
	Updated []MissilePatch `json:"updated,omitempty" msgpack:"updated,omitempty"`
	Removed []string       `json:"removed,omitempty" msgpack:"removed,omitempty"`
}

// ItemsDelta carries incremental changes to the item collection. Items
// have no update path.
type ItemsDelta struct {
	Added   []ItemState `json:"added,omitempty" msgpack:"added,omitempty"`
	Removed []string    `json:"removed,omitempty" msgpack:"removed,omitempty"`
}

// CarPatch is a partial-field update for one car. Nil fields mean
// "unchanged". Merging is explicit per field; see mergeCar.
type CarPatch struct {
	PlayerID           string   `json:"playerId" msgpack:"playerId"`
	Username           *string  `json:"username,omitempty" msgpack:"username,omitempty"`
	X                  *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Z                  *float64 `json:"z,omitempty" msgpack:"z,omitempty"`
	Angle              *float64 `json:"angle,omitempty" msgpack:"angle,omitempty"`
	Speed              *float64 `json:"speed,omitempty" msgpack:"speed,omitempty"`
	IsNPC              *bool    `json:"isNpc,omitempty" msgpack:"isNpc,omitempty"`
	TurboActive        *bool    `json:"turboActive,omitempty" msgpack:"turboActive,omitempty"`
	TurboCharges       *int     `json:"turboCharges,omitempty" msgpack:"turboCharges,omitempty"`
	TurboRecharge      *float64 `json:"turboRecharge,omitempty" msgpack:"turboRecharge,omitempty"`
	TurboDurationLeft  *float64 `json:"turboDurationLeft,omitempty" msgpack:"turboDurationLeft,omitempty"`
	MissileCharges     *int     `json:"missileCharges,omitempty" msgpack:"missileCharges,omitempty"`
	MissileRecharge    *float64 `json:"missileRecharge,omitempty" msgpack:"missileRecharge,omitempty"`
	ImpactSpinTimeLeft *float64 `json:"impactSpinTimeLeft,omitempty" msgpack:"impactSpinTimeLeft,omitempty"`
}

// MissilePatch is a partial-field update for one missile.
type MissilePatch struct {
	ID       string   `json:"id" msgpack:"id"`
	OwnerID  *string  `json:"ownerId,omitempty" msgpack:"ownerId,omitempty"`
	X        *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Z        *float64 `json:"z,omitempty" msgpack:"z,omitempty"`
	Angle    *float64 `json:"angle,omitempty" msgpack:"angle,omitempty"`
	Speed    *float64 `json:"speed,omitempty" msgpack:"speed,omitempty"`
	TargetID *string  `json:"targetId,omitempty" msgpack:"targetId,omitempty"`
}

// Clone returns a deep copy so snapshots can be held across ticks without
// sharing slice or pointer memory.
func (s *RoomState) Clone() *RoomState {
	if s == nil {
		return nil
	}
	out := &RoomState{
		RoomID:     s.RoomID,
		TrackID:    s.TrackID,
		ServerTime: s.ServerTime,
	}
	if s.Cars != nil {
		out.Cars = append([]CarState(nil), s.Cars...)
	}
	if s.Missiles != nil {
		out.Missiles = append([]MissileState(nil), s.Missiles...)
	}
	if s.Items != nil {
		out.Items = append([]ItemState(nil), s.Items...)
	}
	if s.Radio != nil {
		radio := *s.Radio
		out.Radio = &radio
	}
	if s.Race != nil {
		race := *s.Race
		race.Players = append([]RacePlayerState(nil), s.Race.Players...)
		out.Race = &race
	}
	return out
}
