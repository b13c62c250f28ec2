package main

import "math"

const (
	TrackWaypoints      = 16
	TrackRadiusX        = 120.0
	TrackRadiusZ        = 80.0
	CheckpointRadius    = 14.0
	DefaultTrackID      = "sunset-loop"
	defaultWaypointNear = 10.0
)

// Track is the racing circuit: an oval loop of waypoints that double as
// lap checkpoints. Geometry generation proper (meshes, scenery) lives
// outside this core; the track here is only what the simulation needs.
type Track struct {
	ID             string
	WaypointRadius float64
	points         [][2]float64
}

// NewTrack builds the waypoint loop for the named circuit.
func NewTrack(id string) *Track {
	if id == "" {
		id = DefaultTrackID
	}
	t := &Track{ID: id, WaypointRadius: defaultWaypointNear}
	for i := 0; i < TrackWaypoints; i++ {
		a := 2 * math.Pi * float64(i) / TrackWaypoints
		t.points = append(t.points, [2]float64{
			math.Cos(a) * TrackRadiusX,
			math.Sin(a) * TrackRadiusZ,
		})
	}
	return t
}

// WaypointCount returns the number of waypoints in the loop.
func (t *Track) WaypointCount() int {
	return len(t.points)
}

// Waypoint returns the position of waypoint i.
func (t *Track) Waypoint(i int) (x, z float64) {
	p := t.points[i%len(t.points)]
	return p[0], p[1]
}

// StartSlot returns the grid position and heading for a starting slot.
// Slots stagger backwards from the start line, alternating sides.
func (t *Track) StartSlot(slot int) (x, z, angle float64) {
	sx, sz := t.Waypoint(0)
	// Heading at the start line points toward waypoint 1.
	nx, nz := t.Waypoint(1)
	angle = math.Atan2(nz-sz, nx-sx)
	back := float64(slot/2+1) * 5.0
	side := 2.5
	if slot%2 == 1 {
		side = -2.5
	}
	x = sx - math.Cos(angle)*back - math.Sin(angle)*side
	z = sz - math.Sin(angle)*back + math.Cos(angle)*side
	return x, z, angle
}

// ItemSpot returns a random position near the racing line for an item
// spawn, oriented along the local track direction.
func (t *Track) ItemSpot() (x, z, angle float64) {
	i := int(randFloat() * float64(len(t.points)))
	if i >= len(t.points) {
		i = len(t.points) - 1
	}
	wx, wz := t.Waypoint(i)
	nx, nz := t.Waypoint(i + 1)
	angle = math.Atan2(nz-wz, nx-wx)
	// Offset sideways off the waypoint so items sit on the track, not on
	// the ideal line.
	off := (randFloat() - 0.5) * 12.0
	x = wx - math.Sin(angle)*off
	z = wz + math.Cos(angle)*off
	return x, z, angle
}
