package main

import (
	"sync"
	"testing"
)

func TestDefaultRoomSharedAcrossConcurrentJoiners(t *testing.T) {
	rm := NewRoomManager(nil)

	const joiners = 16
	rooms := make([]*Room, joiners)
	var wg sync.WaitGroup
	wg.Add(joiners)
	for i := 0; i < joiners; i++ {
		go func(i int) {
			defer wg.Done()
			rooms[i] = rm.DefaultRoom()
		}(i)
	}
	wg.Wait()

	if rooms[0] == nil {
		t.Fatal("default room not created")
	}
	for i, r := range rooms {
		if r != rooms[0] {
			t.Fatalf("joiner %d got a different room: %v vs %v", i, r.ID, rooms[0].ID)
		}
	}
	if rm.RoomCount() != 1 {
		t.Errorf("expected a single room, have %d", rm.RoomCount())
	}
	rooms[0].Game.Stop()
}

func TestRemovePlayerTearsDownEmptyRoom(t *testing.T) {
	rm := NewRoomManager(nil)
	room := rm.CreateRoom("")
	if room == nil {
		t.Fatal("create failed")
	}
	room.Game.AddCar("p1", "Racer")

	rm.RemovePlayer(room.ID, "p1")
	if rm.GetRoom(room.ID) != nil {
		t.Error("empty non-default room should be torn down")
	}
}

func TestDefaultRoomSurvivesLastPlayerLeaving(t *testing.T) {
	rm := NewRoomManager(nil)
	room := rm.DefaultRoom()
	room.Game.AddCar("p1", "Racer")

	rm.RemovePlayer(room.ID, "p1")
	if rm.GetRoom(room.ID) == nil {
		t.Error("default room must stay up for drop-ins")
	}
	room.Game.Stop()
}
