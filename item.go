package main

const (
	ItemPickupRadius = 3.0
	ItemSpawnPeriod  = 4.0 // seconds between spawn attempts
	MaxItemsPerRoom  = 12
)

// Item is a pickup lying on the track. Items are atomic: they exist, then
// they are picked up or replaced; nothing about them mutates in between.
type Item struct {
	ID    string
	Type  string // ItemNitro or ItemShoot
	X, Z  float64
	Angle float64
}

// NewItem spawns an item of a random type at a random spot near the
// racing line.
func NewItem(track *Track) *Item {
	itemType := ItemNitro
	if randFloat() < 0.5 {
		itemType = ItemShoot
	}
	x, z, angle := track.ItemSpot()
	return &Item{
		ID:    GenerateID(4),
		Type:  itemType,
		X:     x,
		Z:     z,
		Angle: angle,
	}
}

// Apply grants the item's effect to a car.
func (it *Item) Apply(c *Car) {
	switch it.Type {
	case ItemNitro:
		if c.TurboCharges < TurboMaxCharges {
			c.TurboCharges++
		}
	case ItemShoot:
		if c.MissileCharges < MissileMaxCharges {
			c.MissileCharges++
		}
	}
}

// ToState converts to the broadcast representation.
func (it *Item) ToState() ItemState {
	return ItemState{
		ID:    it.ID,
		Type:  it.Type,
		X:     round2(it.X),
		Z:     round2(it.Z),
		Angle: round2(it.Angle),
	}
}
