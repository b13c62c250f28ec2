package main

import (
	"math"
	"testing"
)

func TestSmootherMonotoneConvergence(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0})
	s.SetTarget(CarState{X: 10, Z: 0})

	prevDist := 10.0
	for i := 0; i < 20; i++ {
		s.Advance(0.1)
		x, z := s.Position()
		dist := Distance(x, z, 10, 0)
		if dist < 0 {
			t.Fatalf("distance went negative at step %d", i)
		}
		if dist >= prevDist {
			t.Fatalf("distance not strictly decreasing at step %d: %v >= %v", i, dist, prevDist)
		}
		if x > 10 {
			t.Fatalf("overshot target at step %d: x=%v", i, x)
		}
		prevDist = dist
	}
	if prevDist > 0.01 {
		t.Errorf("expected near-convergence after 2s, still %v away", prevDist)
	}
}

func TestSmootherFirstTargetSnaps(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 100, Z: -40, Angle: 1.5})
	x, z := s.Position()
	if x != 100 || z != -40 || s.Angle() != 1.5 {
		t.Errorf("first target should snap, got (%v,%v,%v)", x, z, s.Angle())
	}
}

func TestSmootherFrameRateIndependence(t *testing.T) {
	var coarse, fine CarSmoother
	for _, s := range []*CarSmoother{&coarse, &fine} {
		s.SetTarget(CarState{X: 0, Z: 0})
		s.SetTarget(CarState{X: 10, Z: 0})
	}
	coarse.Advance(0.2)
	for i := 0; i < 10; i++ {
		fine.Advance(0.02)
	}
	cx, _ := coarse.Position()
	fx, _ := fine.Position()
	if math.Abs(cx-fx) > 1e-9 {
		t.Errorf("exponential filter must be frame-rate independent: %v vs %v", cx, fx)
	}
}

func TestSmootherHeadingAtZeroSpeed(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Angle: 1.0, Speed: 0})
	// Tiny displacement with zero speed: raw angle must dominate fully.
	s.SetTarget(CarState{X: 0.05, Z: 0.05, Angle: 1.0, Speed: 0})
	if got := s.desiredHeading(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("at zero speed the authoritative angle must win, got %v", got)
	}
}

func TestSmootherHeadingAtFullSpeed(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Angle: 1.0, Speed: CarMaxSpeed})
	// Displacement points along +x (heading 0), angle says 1.0 rad.
	s.SetTarget(CarState{X: 2, Z: 0, Angle: 1.0, Speed: CarMaxSpeed})
	if got := s.desiredHeading(); math.Abs(got) > 1e-9 {
		t.Errorf("at max speed the momentum heading must win, got %v", got)
	}
}

func TestSmootherHeadingBlendMidSpeed(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Angle: 1.0, Speed: CarMaxSpeed / 2})
	s.SetTarget(CarState{X: 2, Z: 0, Angle: 1.0, Speed: CarMaxSpeed / 2})
	want := LerpAngle(1.0, 0, 0.5)
	if got := s.desiredHeading(); math.Abs(got-want) > 1e-9 {
		t.Errorf("half speed should blend evenly: want %v, got %v", want, got)
	}
}

func TestSmootherNoDisplacementUsesAngle(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 5, Z: 5, Angle: 2.0, Speed: CarMaxSpeed})
	s.SetTarget(CarState{X: 5, Z: 5, Angle: 2.0, Speed: CarMaxSpeed})
	if got := s.desiredHeading(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("zero displacement must fall back to the raw angle, got %v", got)
	}
}

func TestTurboPitchAsymmetricRates(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Speed: CarMaxSpeed, TurboActive: true})

	s.Advance(0.05)
	risen := s.Pitch()
	if risen <= 0 {
		t.Fatal("pitch should rise while turbo is active at speed")
	}

	// Rise to full
	for i := 0; i < 100; i++ {
		s.Advance(0.05)
	}
	if s.Pitch() != TurboPitchMax {
		t.Errorf("pitch should clamp exactly at max, got %v", s.Pitch())
	}

	// Turbo off: falls, and slower than it rose
	s.SetTarget(CarState{X: 0, Z: 0, Speed: CarMaxSpeed, TurboActive: false})
	s.Advance(0.05)
	fallen := TurboPitchMax - s.Pitch()
	if fallen <= 0 {
		t.Fatal("pitch should fall once turbo ends")
	}
	if fallen >= risen {
		t.Errorf("fall rate must be slower than rise rate: fell %v, rose %v", fallen, risen)
	}

	for i := 0; i < 200; i++ {
		s.Advance(0.05)
	}
	if s.Pitch() != 0 {
		t.Errorf("pitch should settle exactly at zero, got %v", s.Pitch())
	}
}

func TestTurboPitchNeedsSpeed(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Speed: TurboPitchSpeedMin / 2, TurboActive: true})
	s.Advance(0.5)
	if s.Pitch() != 0 {
		t.Errorf("pitch must stay flat below the speed threshold, got %v", s.Pitch())
	}
}

func TestTransformAnchorsAtRearAxle(t *testing.T) {
	var s CarSmoother
	s.SetTarget(CarState{X: 0, Z: 0, Speed: CarMaxSpeed, TurboActive: true})
	for i := 0; i < 100; i++ {
		s.Advance(0.05)
	}
	x, y, z, _, pitch := s.Transform()
	if pitch != TurboPitchMax {
		t.Fatalf("expected full pitch, got %v", pitch)
	}
	if y <= 0 {
		t.Errorf("pitched car origin should lift, got y=%v", y)
	}
	// Rear axle must stay fixed: axle = origin - forward*RearAxleOffset
	// projected through the pitch rotation lands back at the flat axle.
	axleX := x - math.Cos(s.Angle())*RearAxleOffset*math.Cos(pitch)
	flatAxleX := s.x - math.Cos(s.Angle())*RearAxleOffset
	if math.Abs(axleX-flatAxleX) > 1e-9 {
		t.Errorf("rear axle moved: %v vs %v", axleX, flatAxleX)
	}
	_ = z

	// The correction must follow the current heading, not a cached one.
	s.angle = math.Pi / 2
	x2, _, z2, _, _ := s.Transform()
	if x2 == x {
		t.Error("correction did not track the current frame's heading")
	}
	if math.Abs((z2-s.z)-(x-s.x)) > 1e-9 {
		t.Errorf("rotated heading should move the correction onto z, got dz=%v want %v", z2-s.z, x-s.x)
	}
}

func TestMissileSmootherConverges(t *testing.T) {
	var m MissileSmoother
	m.SetTarget(MissileState{X: 0, Z: 0, Angle: 0})
	m.SetTarget(MissileState{X: 0, Z: 8, Angle: 0})

	prev := 8.0
	for i := 0; i < 40; i++ {
		m.Advance(0.05)
		x, z := m.Position()
		d := Distance(x, z, 0, 8)
		if d >= prev {
			t.Fatalf("missile smoother not converging at step %d", i)
		}
		prev = d
	}
	// Heading should have turned toward the displacement direction (+z).
	if math.Abs(NormalizeAngle(m.Angle()-math.Pi/2)) > 0.2 {
		t.Errorf("missile heading should track displacement, got %v", m.Angle())
	}
}

func TestMissileSmootherHeadingHoldsAfterConvergence(t *testing.T) {
	var m MissileSmoother
	m.SetTarget(MissileState{X: 0, Z: 0, Angle: 0})
	m.SetTarget(MissileState{X: 0, Z: 8, Angle: 0})

	// Long after the position converges the heading must stay on the
	// displacement direction instead of decaying back to the raw angle.
	for i := 0; i < 200; i++ {
		m.Advance(0.05)
	}
	if math.Abs(NormalizeAngle(m.Angle()-math.Pi/2)) > 1e-3 {
		t.Errorf("converged heading decayed to %v, want pi/2", m.Angle())
	}
}
