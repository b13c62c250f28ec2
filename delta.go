package main

// Reconcile merges an incremental delta into the last full snapshot and
// returns the new snapshot. A nil base means no full snapshot has been
// received yet; the caller must request a resync, so Reconcile returns nil
// rather than synthesizing state from nothing.
//
// For ID-keyed collections removal is applied before update/add, so an id
// present in both removed and added within the same delta ends up present
// (add wins). That ordering is a contract, not an accident. Output
// collection order is unspecified.
func Reconcile(base *RoomState, delta *RoomStateDelta) *RoomState {
	if base == nil {
		return nil
	}
	out := base.Clone()
	if delta == nil {
		return out
	}

	if delta.RoomID != nil {
		out.RoomID = *delta.RoomID
	}
	if delta.TrackID != nil {
		out.TrackID = *delta.TrackID
	}
	if delta.ServerTime != nil {
		out.ServerTime = *delta.ServerTime
	}
	if delta.Radio != nil {
		radio := *delta.Radio
		out.Radio = &radio
	}
	if delta.Race != nil {
		race := *delta.Race
		race.Players = append([]RacePlayerState(nil), delta.Race.Players...)
		out.Race = &race
	}

	if delta.Cars != nil {
		cars := make(map[string]CarState, len(out.Cars))
		for _, c := range out.Cars {
			cars[c.PlayerID] = c
		}
		for _, id := range delta.Cars.Removed {
			delete(cars, id)
		}
		for _, patch := range delta.Cars.Updated {
			if existing, ok := cars[patch.PlayerID]; ok {
				cars[patch.PlayerID] = mergeCar(existing, patch)
			} else {
				cars[patch.PlayerID] = mergeCar(CarState{PlayerID: patch.PlayerID}, patch)
			}
		}
		for _, c := range delta.Cars.Added {
			cars[c.PlayerID] = c
		}
		out.Cars = make([]CarState, 0, len(cars))
		for _, c := range cars {
			out.Cars = append(out.Cars, c)
		}
	}

	if delta.Missiles != nil {
		missiles := make(map[string]MissileState, len(out.Missiles))
		for _, m := range out.Missiles {
			missiles[m.ID] = m
		}
		for _, id := range delta.Missiles.Removed {
			delete(missiles, id)
		}
		for _, patch := range delta.Missiles.Updated {
			if existing, ok := missiles[patch.ID]; ok {
				missiles[patch.ID] = mergeMissile(existing, patch)
			} else {
				missiles[patch.ID] = mergeMissile(MissileState{ID: patch.ID}, patch)
			}
		}
		for _, m := range delta.Missiles.Added {
			missiles[m.ID] = m
		}
		out.Missiles = make([]MissileState, 0, len(missiles))
		for _, m := range missiles {
			out.Missiles = append(out.Missiles, m)
		}
	}

	if delta.Items != nil {
		items := make(map[string]ItemState, len(out.Items))
		for _, it := range out.Items {
			items[it.ID] = it
		}
		for _, id := range delta.Items.Removed {
			delete(items, id)
		}
		for _, it := range delta.Items.Added {
			items[it.ID] = it
		}
		out.Items = make([]ItemState, 0, len(items))
		for _, it := range items {
			out.Items = append(out.Items, it)
		}
	}

	return out
}

// mergeCar applies the supplied fields of a patch onto a car. Nil patch
// fields leave the base value untouched.
func mergeCar(base CarState, p CarPatch) CarState {
	if p.Username != nil {
		base.Username = *p.Username
	}
	if p.X != nil {
		base.X = *p.X
	}
	if p.Z != nil {
		base.Z = *p.Z
	}
	if p.Angle != nil {
		base.Angle = *p.Angle
	}
	if p.Speed != nil {
		base.Speed = *p.Speed
	}
	if p.IsNPC != nil {
		base.IsNPC = *p.IsNPC
	}
	if p.TurboActive != nil {
		base.TurboActive = *p.TurboActive
	}
	if p.TurboCharges != nil {
		base.TurboCharges = *p.TurboCharges
	}
	if p.TurboRecharge != nil {
		base.TurboRecharge = *p.TurboRecharge
	}
	if p.TurboDurationLeft != nil {
		base.TurboDurationLeft = *p.TurboDurationLeft
	}
	if p.MissileCharges != nil {
		base.MissileCharges = *p.MissileCharges
	}
	if p.MissileRecharge != nil {
		base.MissileRecharge = *p.MissileRecharge
	}
	if p.ImpactSpinTimeLeft != nil {
		base.ImpactSpinTimeLeft = *p.ImpactSpinTimeLeft
	}
	return base
}

// mergeMissile applies the supplied fields of a patch onto a missile.
func mergeMissile(base MissileState, p MissilePatch) MissileState {
	if p.OwnerID != nil {
		base.OwnerID = *p.OwnerID
	}
	if p.X != nil {
		base.X = *p.X
	}
	if p.Z != nil {
		base.Z = *p.Z
	}
	if p.Angle != nil {
		base.Angle = *p.Angle
	}
	if p.Speed != nil {
		base.Speed = *p.Speed
	}
	if p.TargetID != nil {
		base.TargetID = *p.TargetID
	}
	return base
}

// Diff produces the delta that transforms prev into next, the server-side
// counterpart of Reconcile: Reconcile(prev, Diff(prev, next)) equals next
// up to collection order.
func Diff(prev, next *RoomState) *RoomStateDelta {
	d := &RoomStateDelta{}
	if prev == nil {
		// Degenerate case; callers should send a full snapshot instead.
		prev = &RoomState{}
	}

	if next.RoomID != prev.RoomID {
		v := next.RoomID
		d.RoomID = &v
	}
	if next.TrackID != prev.TrackID {
		v := next.TrackID
		d.TrackID = &v
	}
	if next.ServerTime != prev.ServerTime {
		v := next.ServerTime
		d.ServerTime = &v
	}
	if next.Radio != nil && (prev.Radio == nil || *next.Radio != *prev.Radio) {
		radio := *next.Radio
		d.Radio = &radio
	}
	if next.Race != nil && (prev.Race == nil || !raceEqual(prev.Race, next.Race)) {
		race := *next.Race
		race.Players = append([]RacePlayerState(nil), next.Race.Players...)
		d.Race = &race
	}

	d.Cars = diffCars(prev.Cars, next.Cars)
	d.Missiles = diffMissiles(prev.Missiles, next.Missiles)
	d.Items = diffItems(prev.Items, next.Items)
	return d
}

// Empty reports whether the delta carries no changes at all.
func (d *RoomStateDelta) Empty() bool {
	return d.RoomID == nil && d.TrackID == nil && d.ServerTime == nil &&
		d.Radio == nil && d.Race == nil &&
		d.Cars == nil && d.Missiles == nil && d.Items == nil
}

func diffCars(prev, next []CarState) *CarsDelta {
	prevByID := make(map[string]CarState, len(prev))
	for _, c := range prev {
		prevByID[c.PlayerID] = c
	}
	d := &CarsDelta{}
	seen := make(map[string]bool, len(next))
	for _, c := range next {
		seen[c.PlayerID] = true
		old, ok := prevByID[c.PlayerID]
		if !ok {
			d.Added = append(d.Added, c)
			continue
		}
		if patch, changed := diffCar(old, c); changed {
			d.Updated = append(d.Updated, patch)
		}
	}
	for _, c := range prev {
		if !seen[c.PlayerID] {
			d.Removed = append(d.Removed, c.PlayerID)
		}
	}
	if d.Added == nil && d.Updated == nil && d.Removed == nil {
		return nil
	}
	return d
}

func diffCar(old, cur CarState) (CarPatch, bool) {
	p := CarPatch{PlayerID: cur.PlayerID}
	changed := false
	if cur.Username != old.Username {
		v := cur.Username
		p.Username = &v
		changed = true
	}
	if cur.X != old.X {
		v := cur.X
		p.X = &v
		changed = true
	}
	if cur.Z != old.Z {
		v := cur.Z
		p.Z = &v
		changed = true
	}
	if cur.Angle != old.Angle {
		v := cur.Angle
		p.Angle = &v
		changed = true
	}
	if cur.Speed != old.Speed {
		v := cur.Speed
		p.Speed = &v
		changed = true
	}
	if cur.IsNPC != old.IsNPC {
		v := cur.IsNPC
		p.IsNPC = &v
		changed = true
	}
	if cur.TurboActive != old.TurboActive {
		v := cur.TurboActive
		p.TurboActive = &v
		changed = true
	}
	if cur.TurboCharges != old.TurboCharges {
		v := cur.TurboCharges
		p.TurboCharges = &v
		changed = true
	}
	if cur.TurboRecharge != old.TurboRecharge {
		v := cur.TurboRecharge
		p.TurboRecharge = &v
		changed = true
	}
	if cur.TurboDurationLeft != old.TurboDurationLeft {
		v := cur.TurboDurationLeft
		p.TurboDurationLeft = &v
		changed = true
	}
	if cur.MissileCharges != old.MissileCharges {
		v := cur.MissileCharges
		p.MissileCharges = &v
		changed = true
	}
	if cur.MissileRecharge != old.MissileRecharge {
		v := cur.MissileRecharge
		p.MissileRecharge = &v
		changed = true
	}
	if cur.ImpactSpinTimeLeft != old.ImpactSpinTimeLeft {
		v := cur.ImpactSpinTimeLeft
		p.ImpactSpinTimeLeft = &v
		changed = true
	}
	return p, changed
}

func diffMissiles(prev, next []MissileState) *MissilesDelta {
	prevByID := make(map[string]MissileState, len(prev))
	for _, m := range prev {
		prevByID[m.ID] = m
	}
	d := &MissilesDelta{}
	seen := make(map[string]bool, len(next))
	for _, m := range next {
		seen[m.ID] = true
		old, ok := prevByID[m.ID]
		if !ok {
			d.Added = append(d.Added, m)
			continue
		}
		if patch, changed := diffMissile(old, m); changed {
			d.Updated = append(d.Updated, patch)
		}
	}
	for _, m := range prev {
		if !seen[m.ID] {
			d.Removed = append(d.Removed, m.ID)
		}
	}
	if d.Added == nil && d.Updated == nil && d.Removed == nil {
		return nil
	}
	return d
}

func diffMissile(old, cur MissileState) (MissilePatch, bool) {
	p := MissilePatch{ID: cur.ID}
	changed := false
	if cur.OwnerID != old.OwnerID {
		v := cur.OwnerID
		p.OwnerID = &v
		changed = true
	}
	if cur.X != old.X {
		v := cur.X
		p.X = &v
		changed = true
	}
	if cur.Z != old.Z {
		v := cur.Z
		p.Z = &v
		changed = true
	}
	if cur.Angle != old.Angle {
		v := cur.Angle
		p.Angle = &v
		changed = true
	}
	if cur.Speed != old.Speed {
		v := cur.Speed
		p.Speed = &v
		changed = true
	}
	if cur.TargetID != old.TargetID {
		v := cur.TargetID
		p.TargetID = &v
		changed = true
	}
	return p, changed
}

func diffItems(prev, next []ItemState) *ItemsDelta {
	prevByID := make(map[string]bool, len(prev))
	for _, it := range prev {
		prevByID[it.ID] = true
	}
	nextByID := make(map[string]bool, len(next))
	d := &ItemsDelta{}
	for _, it := range next {
		nextByID[it.ID] = true
		if !prevByID[it.ID] {
			d.Added = append(d.Added, it)
		}
	}
	for _, it := range prev {
		if !nextByID[it.ID] {
			d.Removed = append(d.Removed, it.ID)
		}
	}
	if d.Added == nil && d.Removed == nil {
		return nil
	}
	return d
}

func raceEqual(a, b *RaceState) bool {
	if a.Phase != b.Phase || a.Countdown != b.Countdown || a.Laps != b.Laps ||
		a.WinnerID != b.WinnerID || len(a.Players) != len(b.Players) {
		return false
	}
	for i := range a.Players {
		if a.Players[i] != b.Players[i] {
			return false
		}
	}
	return true
}
