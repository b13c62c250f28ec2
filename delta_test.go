package main

import (
	"testing"
)

func carByID(t *testing.T, cars []CarState, id string) CarState {
	t.Helper()
	for _, c := range cars {
		if c.PlayerID == id {
			return c
		}
	}
	t.Fatalf("car %q not found in %v", id, cars)
	return CarState{}
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestReconcileNilBase(t *testing.T) {
	delta := &RoomStateDelta{Cars: &CarsDelta{Added: []CarState{{PlayerID: "a"}}}}
	if got := Reconcile(nil, delta); got != nil {
		t.Errorf("nil base must yield nil (caller requests resync), got %+v", got)
	}
}

func TestReconcilePartialCarUpdate(t *testing.T) {
	base := &RoomState{
		Cars: []CarState{{PlayerID: "a", X: 0, Z: 0, Angle: 0, Speed: 5}},
	}
	delta := &RoomStateDelta{
		Cars: &CarsDelta{Updated: []CarPatch{{PlayerID: "a", X: f64(1), Z: f64(0)}}},
	}

	got := Reconcile(base, delta)
	car := carByID(t, got.Cars, "a")
	if car.X != 1 || car.Z != 0 || car.Angle != 0 || car.Speed != 5 {
		t.Errorf("expected {x:1 z:0 angle:0 speed:5}, got %+v", car)
	}
	// Base must be untouched
	if base.Cars[0].X != 0 {
		t.Error("reconcile mutated the base snapshot")
	}
}

func TestReconcileRemoveThenAddWins(t *testing.T) {
	base := &RoomState{
		Cars: []CarState{{PlayerID: "a", Speed: 5}},
	}
	delta := &RoomStateDelta{
		Cars: &CarsDelta{
			Removed: []string{"a"},
			Added:   []CarState{{PlayerID: "b", Speed: 7}},
		},
	}

	got := Reconcile(base, delta)
	if len(got.Cars) != 1 {
		t.Fatalf("expected exactly 1 car, got %d", len(got.Cars))
	}
	if got.Cars[0].PlayerID != "b" {
		t.Errorf("expected only car b, got %+v", got.Cars)
	}
}

func TestReconcileSameIDRemovedAndAdded(t *testing.T) {
	base := &RoomState{Cars: []CarState{{PlayerID: "a", Speed: 5}}}
	delta := &RoomStateDelta{
		Cars: &CarsDelta{
			Removed: []string{"a"},
			Added:   []CarState{{PlayerID: "a", Speed: 9}},
		},
	}

	got := Reconcile(base, delta)
	car := carByID(t, got.Cars, "a")
	if car.Speed != 9 {
		t.Errorf("add must win over remove within one delta, got %+v", car)
	}
}

func TestReconcileUpdateUnknownIDInserts(t *testing.T) {
	base := &RoomState{}
	delta := &RoomStateDelta{
		Cars: &CarsDelta{Updated: []CarPatch{{PlayerID: "new", X: f64(3)}}},
	}
	got := Reconcile(base, delta)
	car := carByID(t, got.Cars, "new")
	if car.X != 3 {
		t.Errorf("unknown updated id should insert as-is, got %+v", car)
	}
}

func TestReconcileItemsAddRemoveOnly(t *testing.T) {
	base := &RoomState{Items: []ItemState{
		{ID: "i1", Type: ItemNitro},
		{ID: "i2", Type: ItemShoot},
	}}
	delta := &RoomStateDelta{
		Items: &ItemsDelta{
			Removed: []string{"i1"},
			Added:   []ItemState{{ID: "i3", Type: ItemNitro}},
		},
	}
	got := Reconcile(base, delta)
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %v", got.Items)
	}
	ids := map[string]bool{}
	for _, it := range got.Items {
		ids[it.ID] = true
	}
	if ids["i1"] || !ids["i2"] || !ids["i3"] {
		t.Errorf("expected items {i2,i3}, got %v", got.Items)
	}
}

func TestReconcileScalarOverrides(t *testing.T) {
	base := &RoomState{
		RoomID:     "r1",
		TrackID:    "t1",
		ServerTime: 10,
		Radio:      &RadioState{Station: 0, Name: "A"},
	}

	// Absent scalars mean unchanged
	got := Reconcile(base, &RoomStateDelta{})
	if got.RoomID != "r1" || got.TrackID != "t1" || got.ServerTime != 10 || got.Radio.Name != "A" {
		t.Errorf("absent scalars must stay unchanged, got %+v", got)
	}

	got = Reconcile(base, &RoomStateDelta{
		ServerTime: f64(11),
		Radio:      &RadioState{Station: 1, Name: "B"},
		TrackID:    str("t2"),
	})
	if got.ServerTime != 11 || got.Radio.Name != "B" || got.TrackID != "t2" || got.RoomID != "r1" {
		t.Errorf("supplied scalars must replace whole values, got %+v", got)
	}
}

func TestDiffReconcileRoundTrip(t *testing.T) {
	a := &RoomState{
		RoomID:     "room",
		TrackID:    "track",
		ServerTime: 1,
		Cars: []CarState{
			{PlayerID: "a", X: 0, Z: 0, Speed: 5},
			{PlayerID: "b", X: 10, Z: 10, Speed: 3, TurboCharges: 1},
			{PlayerID: "gone", X: 1, Z: 1},
		},
		Missiles: []MissileState{{ID: "m1", OwnerID: "a", X: 2, Z: 2, TargetID: "b"}},
		Items:    []ItemState{{ID: "i1", Type: ItemNitro, X: 5, Z: 5}},
		Radio:    &RadioState{Station: 0, Name: "A"},
		Race: &RaceState{Phase: RaceRunning, Laps: 3, Players: []RacePlayerState{
			{PlayerID: "a", Lap: 0, Checkpoint: 2},
		}},
	}
	b := &RoomState{
		RoomID:     "room",
		TrackID:    "track",
		ServerTime: 1.05,
		Cars: []CarState{
			{PlayerID: "a", X: 0.4, Z: 0.1, Speed: 5.5, TurboActive: true, IsNPC: true},
			{PlayerID: "b", X: 10, Z: 10, Speed: 3, TurboCharges: 1}, // unchanged
			{PlayerID: "c", X: -4, Z: 0, Speed: 1},
		},
		Missiles: []MissileState{{ID: "m1", OwnerID: "c", X: 3, Z: 3, TargetID: "b"}},
		Items:    []ItemState{{ID: "i2", Type: ItemShoot, X: 6, Z: 6}},
		Radio:    &RadioState{Station: 1, Name: "B"},
		Race: &RaceState{Phase: RaceRunning, Laps: 3, Players: []RacePlayerState{
			{PlayerID: "a", Lap: 0, Checkpoint: 3},
		}},
	}

	delta := Diff(a, b)
	got := Reconcile(a, delta)
	assertStatesEqual(t, b, got)

	// A delta between identical snapshots must be empty.
	if d := Diff(b, b.Clone()); !d.Empty() {
		t.Errorf("diff of identical snapshots should be empty, got %+v", d)
	}
}

func TestDiffCarriesEveryCarField(t *testing.T) {
	a := &RoomState{Cars: []CarState{{PlayerID: "a", Username: "bot"}}}
	b := &RoomState{Cars: []CarState{{PlayerID: "a", Username: "bot", IsNPC: true}}}

	got := Reconcile(a, Diff(a, b))
	if car := carByID(t, got.Cars, "a"); !car.IsNPC {
		t.Errorf("round trip lost isNpc change: got %+v", car)
	}
}

func TestMissilePatchInsertKeepsOwner(t *testing.T) {
	// An update patch landing on an id absent from the base inserts the
	// merged missile; the owner must survive that path.
	delta := &RoomStateDelta{
		Missiles: &MissilesDelta{
			Updated: []MissilePatch{{ID: "m9", OwnerID: str("a"), X: f64(2)}},
		},
	}
	got := Reconcile(&RoomState{}, delta)
	if len(got.Missiles) != 1 {
		t.Fatalf("expected inserted missile, got %v", got.Missiles)
	}
	if m := got.Missiles[0]; m.OwnerID != "a" || m.X != 2 {
		t.Errorf("inserted missile lost fields: %+v", m)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	base := &RoomState{
		Cars:  []CarState{{PlayerID: "a", X: 0, Speed: 5}},
		Items: []ItemState{{ID: "i1"}},
	}
	delta := &RoomStateDelta{
		ServerTime: f64(2),
		Cars: &CarsDelta{
			Updated: []CarPatch{{PlayerID: "a", X: f64(1)}},
			Removed: []string{"zombie"},
		},
		Items: &ItemsDelta{Removed: []string{"i1"}},
	}

	once := Reconcile(base, delta)
	twice := Reconcile(once, delta)
	assertStatesEqual(t, once, twice)
}

// assertStatesEqual compares snapshots up to collection order.
func assertStatesEqual(t *testing.T, want, got *RoomState) {
	t.Helper()
	if want.RoomID != got.RoomID || want.TrackID != got.TrackID || want.ServerTime != got.ServerTime {
		t.Errorf("scalars differ: want %+v, got %+v", want, got)
	}
	if (want.Radio == nil) != (got.Radio == nil) {
		t.Fatalf("radio presence differs")
	}
	if want.Radio != nil && *want.Radio != *got.Radio {
		t.Errorf("radio differs: want %+v, got %+v", *want.Radio, *got.Radio)
	}
	if (want.Race == nil) != (got.Race == nil) {
		t.Fatalf("race presence differs")
	}
	if want.Race != nil && !raceEqual(want.Race, got.Race) {
		t.Errorf("race differs: want %+v, got %+v", *want.Race, *got.Race)
	}

	wantCars := map[string]CarState{}
	for _, c := range want.Cars {
		wantCars[c.PlayerID] = c
	}
	if len(got.Cars) != len(wantCars) {
		t.Fatalf("car count: want %d, got %d (%v)", len(wantCars), len(got.Cars), got.Cars)
	}
	for _, c := range got.Cars {
		if wantCars[c.PlayerID] != c {
			t.Errorf("car %s: want %+v, got %+v", c.PlayerID, wantCars[c.PlayerID], c)
		}
	}

	wantMissiles := map[string]MissileState{}
	for _, m := range want.Missiles {
		wantMissiles[m.ID] = m
	}
	if len(got.Missiles) != len(wantMissiles) {
		t.Fatalf("missile count: want %d, got %d", len(wantMissiles), len(got.Missiles))
	}
	for _, m := range got.Missiles {
		if wantMissiles[m.ID] != m {
			t.Errorf("missile %s: want %+v, got %+v", m.ID, wantMissiles[m.ID], m)
		}
	}

	wantItems := map[string]ItemState{}
	for _, it := range want.Items {
		wantItems[it.ID] = it
	}
	if len(got.Items) != len(wantItems) {
		t.Fatalf("item count: want %d, got %d", len(wantItems), len(got.Items))
	}
	for _, it := range got.Items {
		if wantItems[it.ID] != it {
			t.Errorf("item %s: want %+v, got %+v", it.ID, wantItems[it.ID], it)
		}
	}
}
