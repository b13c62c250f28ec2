package main

import "math"

const (
	MissileSpeed      = 70.0 // world units/s
	MissileLifetime   = 5.0  // seconds
	MissileTurnRate   = 3.5  // radians/s homing authority
	MissileHitRadius  = 2.8
	MissileAimRadius  = 40.0 // target acquisition range at launch
	MissileAimAhead   = 18.0 // acquisition circle center, ahead of the shooter
	MissileSpawnAhead = 4.0
)

// Missile is a homing projectile fired by a car.
type Missile struct {
	ID       string
	OwnerID  string
	X, Z     float64
	Angle    float64
	Speed    float64
	TargetID string
	Life     float64
	Alive    bool
}

// NewMissile spawns a missile just ahead of its owner, inheriting the
// owner's heading. Target acquisition happens separately in the game loop
// so it can use the tick's spatial index.
func NewMissile(owner *Car) *Missile {
	return &Missile{
		ID:      GenerateID(3),
		OwnerID: owner.ID,
		X:       owner.X + math.Cos(owner.Angle)*MissileSpawnAhead,
		Z:       owner.Z + math.Sin(owner.Angle)*MissileSpawnAhead,
		Angle:   owner.Angle,
		Speed:   MissileSpeed,
		Life:    MissileLifetime,
		Alive:   true,
	}
}

// Home steers the missile toward the target position, rate-limited by
// MissileTurnRate.
func (m *Missile) Home(targetX, targetZ, dt float64) {
	desired := math.Atan2(targetZ-m.Z, targetX-m.X)
	diff := NormalizeAngle(desired - m.Angle)
	maxTurn := MissileTurnRate * dt
	if diff > maxTurn {
		diff = maxTurn
	} else if diff < -maxTurn {
		diff = -maxTurn
	}
	m.Angle = NormalizeAngle(m.Angle + diff)
}

// Update moves the missile one tick.
func (m *Missile) Update(dt float64) {
	if !m.Alive {
		return
	}
	m.X += math.Cos(m.Angle) * m.Speed * dt
	m.Z += math.Sin(m.Angle) * m.Speed * dt
	m.Life -= dt
	if m.Life <= 0 {
		m.Alive = false
	}
}

// ToState converts to the broadcast representation.
func (m *Missile) ToState() MissileState {
	return MissileState{
		ID:       m.ID,
		OwnerID:  m.OwnerID,
		X:        round2(m.X),
		Z:        round2(m.Z),
		Angle:    round2(m.Angle),
		Speed:    round2(m.Speed),
		TargetID: m.TargetID,
	}
}
