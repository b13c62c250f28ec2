package main

import "math"

const (
	// PosFilterRate is k in the exponential position filter
	// rendered += (target - rendered) * (1 - exp(-k*dt)).
	PosFilterRate = 8.0

	// AngleFilterRate is the matching rate for heading convergence.
	AngleFilterRate = 10.0

	// headingBlendEps: below this displacement the momentum heading is
	// too noisy to use at all.
	headingBlendEps = 1e-4

	// Turbo pitch pose: the nose lifts while turbo is active above a
	// speed threshold. The pose rises faster than it falls and is
	// anchored at the rear axle, not the car origin.
	TurboPitchMax      = 0.22 // radians
	TurboPitchSpeedMin = 18.0 // world units/s
	TurboPitchRiseRate = 1.4  // radians/s
	TurboPitchFallRate = 0.5
	RearAxleOffset     = 1.6 // distance from car origin to rear axle
)

// CarSmoother converts a car's discrete network targets into a continuous
// rendered transform. Position converges via a frame-time-parameterized
// exponential filter so smoothness does not depend on frame rate.
//
// The rendered heading blends the authoritative angle with the heading
// derived from displacement between the two most recent targets, weighted
// by normalized speed: at high speed momentum predicts visual attitude
// better; near standstill the displacement is noise and the raw angle
// dominates.
type CarSmoother struct {
	initialized bool

	// Discrete target transform from the last snapshot
	targetX, targetZ float64
	targetAngle      float64
	targetSpeed      float64
	turboActive      bool

	// Previous target position, for the momentum heading
	prevTargetX, prevTargetZ float64

	// Continuously updated rendered transform
	x, z  float64
	angle float64
	pitch float64
}

// SetTarget feeds the smoother a new discrete target from a snapshot.
// The first target snaps the rendered transform instead of filtering
// toward it from the origin.
func (s *CarSmoother) SetTarget(c CarState) {
	if !s.initialized {
		s.initialized = true
		s.x, s.z = c.X, c.Z
		s.angle = c.Angle
		s.prevTargetX, s.prevTargetZ = c.X, c.Z
	} else {
		s.prevTargetX, s.prevTargetZ = s.targetX, s.targetZ
	}
	s.targetX, s.targetZ = c.X, c.Z
	s.targetAngle = c.Angle
	s.targetSpeed = c.Speed
	s.turboActive = c.TurboActive
}

// desiredHeading blends authoritative angle with the momentum heading.
func (s *CarSmoother) desiredHeading() float64 {
	dx := s.targetX - s.prevTargetX
	dz := s.targetZ - s.prevTargetZ
	if dx*dx+dz*dz < headingBlendEps {
		return s.targetAngle
	}
	momentum := math.Atan2(dz, dx)
	w := Clamp(math.Abs(s.targetSpeed)/CarMaxSpeed, 0, 1)
	return LerpAngle(s.targetAngle, momentum, w)
}

// Advance moves the rendered transform toward the target by dt seconds.
func (s *CarSmoother) Advance(dt float64) {
	if !s.initialized || dt <= 0 {
		return
	}
	posAlpha := 1 - math.Exp(-PosFilterRate*dt)
	s.x += (s.targetX - s.x) * posAlpha
	s.z += (s.targetZ - s.z) * posAlpha

	angAlpha := 1 - math.Exp(-AngleFilterRate*dt)
	s.angle = NormalizeAngle(s.angle + NormalizeAngle(s.desiredHeading()-s.angle)*angAlpha)

	// Turbo pitch: asymmetric rate toward the toggled target, clamped so
	// a single step never overshoots.
	pitchTarget := 0.0
	if s.turboActive && math.Abs(s.targetSpeed) > TurboPitchSpeedMin {
		pitchTarget = TurboPitchMax
	}
	if s.pitch < pitchTarget {
		s.pitch += TurboPitchRiseRate * dt
		if s.pitch > pitchTarget {
			s.pitch = pitchTarget
		}
	} else if s.pitch > pitchTarget {
		s.pitch -= TurboPitchFallRate * dt
		if s.pitch < pitchTarget {
			s.pitch = pitchTarget
		}
	}
}

// Position returns the rendered planar position without pose correction.
func (s *CarSmoother) Position() (x, z float64) {
	return s.x, s.z
}

// Angle returns the rendered heading.
func (s *CarSmoother) Angle() float64 {
	return s.angle
}

// Pitch returns the current turbo pitch pose.
func (s *CarSmoother) Pitch() float64 {
	return s.pitch
}

// Transform returns the render-time transform with the pitch rotation
// anchored at the rear axle: rotating about the axle pulls the origin
// back along the forward axis and lifts it. The correction is recomputed
// from this frame's heading on every call; caching it against a stale
// heading makes the car drift visibly over time.
func (s *CarSmoother) Transform() (x, y, z, angle, pitch float64) {
	forwardShift := RearAxleOffset * (math.Cos(s.pitch) - 1)
	y = RearAxleOffset * math.Sin(s.pitch)
	x = s.x + math.Cos(s.angle)*forwardShift
	z = s.z + math.Sin(s.angle)*forwardShift
	return x, y, z, s.angle, s.pitch
}

// MissileSmoother is the position-only variant for missiles: same
// exponential filter, heading from the displacement between the two
// most recent targets with the authoritative angle as fallback.
type MissileSmoother struct {
	initialized              bool
	targetX, targetZ         float64
	targetAngle              float64
	prevTargetX, prevTargetZ float64
	x, z                     float64
	angle                    float64
}

// SetTarget feeds a new discrete missile target.
func (m *MissileSmoother) SetTarget(st MissileState) {
	if !m.initialized {
		m.initialized = true
		m.x, m.z = st.X, st.Z
		m.angle = st.Angle
		m.prevTargetX, m.prevTargetZ = st.X, st.Z
	} else {
		m.prevTargetX, m.prevTargetZ = m.targetX, m.targetZ
	}
	m.targetX, m.targetZ = st.X, st.Z
	m.targetAngle = st.Angle
}

// Advance moves the rendered transform toward the target by dt seconds.
func (m *MissileSmoother) Advance(dt float64) {
	if !m.initialized || dt <= 0 {
		return
	}
	alpha := 1 - math.Exp(-PosFilterRate*dt)
	m.x += (m.targetX - m.x) * alpha
	m.z += (m.targetZ - m.z) * alpha

	// Heading comes from target displacement, not the shrinking
	// rendered-to-target offset, so it holds once position converges.
	desired := m.targetAngle
	dx := m.targetX - m.prevTargetX
	dz := m.targetZ - m.prevTargetZ
	if dx*dx+dz*dz > headingBlendEps {
		desired = math.Atan2(dz, dx)
	}
	m.angle = NormalizeAngle(m.angle + NormalizeAngle(desired-m.angle)*(1-math.Exp(-AngleFilterRate*dt)))
}

// Position returns the rendered planar position.
func (m *MissileSmoother) Position() (x, z float64) {
	return m.x, m.z
}

// Angle returns the rendered heading.
func (m *MissileSmoother) Angle() float64 {
	return m.angle
}
