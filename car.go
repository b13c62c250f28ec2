package main

import "math"

const (
	CarAccel          = 28.0 // world units/s²
	CarBrakeDecel     = 42.0
	CarDrag           = 0.6  // fraction of speed shed per second when coasting
	CarMaxSpeed       = 46.0 // world units/s
	CarReverseSpeed   = -8.0
	CarTurnRate       = 2.6 // radians/s at full steer
	CarRadius         = 2.2
	TurboMaxCharges   = 3
	TurboRechargeTime = 9.0 // seconds per charge
	TurboDuration     = 2.5
	TurboSpeedMul     = 1.45
	MissileMaxCharges = 2
	MissileRecharge   = 7.0
	ImpactSpinTime    = 1.6 // seconds of spin after a missile hit
	ImpactSpinRate    = 7.0 // radians/s while spinning
)

// Car is the authoritative server entity for one racer, player or NPC.
type Car struct {
	ID       string
	Username string
	IsNPC    bool

	X, Z  float64
	Angle float64 // radians, heading on the track plane
	Speed float64 // signed, world units/s

	// Latest controller input
	Steer    float64
	Throttle float64
	Brake    float64

	// Turbo state machine
	TurboCharges      int
	TurboRecharge     float64 // time until next charge restores
	TurboActive       bool
	TurboDurationLeft float64

	// Missile ammunition
	MissileCharges   int
	MissileRechargeT float64

	// Spin-out after a missile impact; steering is ignored while > 0
	ImpactSpinTimeLeft float64

	// NPC waypoint progress
	waypoint int
}

// NewCar spawns a car at the given grid slot along the track start line.
func NewCar(id, username string, isNPC bool, track *Track, slot int) *Car {
	x, z, angle := track.StartSlot(slot)
	return &Car{
		ID:               id,
		Username:         username,
		IsNPC:            isNPC,
		X:                x,
		Z:                z,
		Angle:            angle,
		TurboCharges:     1,
		MissileCharges:   1,
		MissileRechargeT: MissileRecharge,
	}
}

// SetInput stores the latest controller input, clamped to valid ranges.
func (c *Car) SetInput(steer, throttle, brake float64) {
	c.Steer = Clamp(steer, -1, 1)
	c.Throttle = Clamp(throttle, 0, 1)
	c.Brake = Clamp(brake, 0, 1)
}

// TriggerTurbo consumes a turbo charge if one is available.
func (c *Car) TriggerTurbo() bool {
	if c.TurboActive || c.TurboCharges <= 0 {
		return false
	}
	c.TurboCharges--
	c.TurboActive = true
	c.TurboDurationLeft = TurboDuration
	return true
}

// CanFire reports whether the car has a missile charge ready.
func (c *Car) CanFire() bool {
	return c.MissileCharges > 0 && c.ImpactSpinTimeLeft <= 0
}

// ConsumeMissile spends one missile charge.
func (c *Car) ConsumeMissile() {
	if c.MissileCharges > 0 {
		c.MissileCharges--
	}
}

// Update advances the car one tick (dt in seconds).
func (c *Car) Update(dt float64, track *Track) {
	if c.IsNPC {
		c.steerToWaypoint(track)
	}

	if c.ImpactSpinTimeLeft > 0 {
		// Spun-out cars rotate and bleed speed; steering is ignored.
		c.ImpactSpinTimeLeft -= dt
		c.Angle = NormalizeAngle(c.Angle + ImpactSpinRate*dt)
		c.Speed *= math.Pow(0.2, dt)
	} else {
		// Steering authority scales with speed so stationary cars don't
		// rotate in place.
		steerScale := Clamp(math.Abs(c.Speed)/10.0, 0, 1)
		c.Angle = NormalizeAngle(c.Angle + c.Steer*CarTurnRate*steerScale*dt)

		c.Speed += c.Throttle * CarAccel * dt
		if c.Brake > 0 {
			c.Speed -= c.Brake * CarBrakeDecel * dt
		}
		c.Speed -= c.Speed * CarDrag * dt
	}

	// Turbo state machine
	if c.TurboActive {
		c.TurboDurationLeft -= dt
		if c.TurboDurationLeft <= 0 {
			c.TurboActive = false
			c.TurboDurationLeft = 0
		}
	}
	if c.TurboCharges < TurboMaxCharges {
		c.TurboRecharge += dt
		if c.TurboRecharge >= TurboRechargeTime {
			c.TurboRecharge = 0
			c.TurboCharges++
		}
	} else {
		c.TurboRecharge = 0
	}
	if c.MissileCharges < MissileMaxCharges {
		c.MissileRechargeT -= dt
		if c.MissileRechargeT <= 0 {
			c.MissileCharges++
			c.MissileRechargeT = MissileRecharge
		}
	}

	maxSpd := CarMaxSpeed
	if c.TurboActive {
		maxSpd *= TurboSpeedMul
	}
	c.Speed = Clamp(c.Speed, CarReverseSpeed, maxSpd)

	c.X += math.Cos(c.Angle) * c.Speed * dt
	c.Z += math.Sin(c.Angle) * c.Speed * dt
}

// steerToWaypoint drives NPC cars around the track waypoint loop.
func (c *Car) steerToWaypoint(track *Track) {
	wx, wz := track.Waypoint(c.waypoint)
	if Distance(c.X, c.Z, wx, wz) < track.WaypointRadius {
		c.waypoint = (c.waypoint + 1) % track.WaypointCount()
		wx, wz = track.Waypoint(c.waypoint)
	}
	desired := math.Atan2(wz-c.Z, wx-c.X)
	diff := NormalizeAngle(desired - c.Angle)
	c.Steer = Clamp(diff*2.0, -1, 1)
	c.Throttle = 0.85
	c.Brake = 0
	if math.Abs(diff) > 1.2 {
		c.Throttle = 0.4
	}
}

// ToState converts to the broadcast representation.
func (c *Car) ToState() CarState {
	return CarState{
		PlayerID:           c.ID,
		Username:           c.Username,
		X:                  round2(c.X),
		Z:                  round2(c.Z),
		Angle:              round2(c.Angle),
		Speed:              round2(c.Speed),
		IsNPC:              c.IsNPC,
		TurboActive:        c.TurboActive,
		TurboCharges:       c.TurboCharges,
		TurboRecharge:      round2(c.TurboRecharge),
		TurboDurationLeft:  round2(c.TurboDurationLeft),
		MissileCharges:     c.MissileCharges,
		MissileRecharge:    round2(c.MissileRechargeT),
		ImpactSpinTimeLeft: round2(c.ImpactSpinTimeLeft),
	}
}

// round2 quantizes to 2 decimals to keep wire payloads small and diffs
// quiet for sub-centimeter jitter.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
