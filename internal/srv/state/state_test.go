package state

import (
	"github.com/jypelle/artbox/apimodel"
	"sync"
	"testing"
	"time"
)

func TestInitialState(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ss := NewSwitchState(start)

	snap := ss.Snapshot()
	if snap.Known || snap.Changed {
		t.Errorf("expected unknown and unchanged state, got %+v", snap)
	}
	if !snap.LastChanged.Equal(start) {
		t.Errorf("expected last change at startup, got %v", snap.LastChanged)
	}
}

func TestPublishUpdatesOnlyOnDifference(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ss := NewSwitchState(start)
	c := apimodel.Coordinate{A: 2, B: 1, C: 5}

	// first reading differs from the unknown sentinel, even for 0-0-0
	if !ss.Publish(apimodel.Coordinate{}, start.Add(time.Second)) {
		t.Fatal("first publish should be a change")
	}
	if !ss.Publish(c, start.Add(2*time.Second)) {
		t.Fatal("different coordinate should be a change")
	}
	if ss.Publish(c, start.Add(3*time.Second)) {
		t.Fatal("same coordinate should not be a change")
	}

	snap := ss.Snapshot()
	if snap.Coordinate != c {
		t.Errorf("expected %v, got %v", c, snap.Coordinate)
	}
	if !snap.LastChanged.Equal(start.Add(2 * time.Second)) {
		t.Errorf("timestamp moved without a change: %v", snap.LastChanged)
	}
}

func TestConsumeClearsChanged(t *testing.T) {
	start := time.Now()
	ss := NewSwitchState(start)
	ss.Publish(apimodel.Coordinate{A: 1}, start)

	if snap := ss.Snapshot(); !snap.Changed {
		t.Fatal("snapshot should not consume the change")
	}
	if snap := ss.Consume(); !snap.Changed || !snap.Known {
		t.Fatalf("expected pending change, got %+v", snap)
	}
	if snap := ss.Consume(); snap.Changed {
		t.Fatal("change consumed twice")
	}

	// a publish of the same coordinate does not re-arm the flag
	ss.Publish(apimodel.Coordinate{A: 1}, start.Add(time.Second))
	if snap := ss.Consume(); snap.Changed {
		t.Fatal("unchanged coordinate re-armed the flag")
	}
}

func TestConcurrentSnapshotsAreWhole(t *testing.T) {
	start := time.Now()
	ss := NewSwitchState(start)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			// digits and timestamp always move together
			c := apimodel.CoordinateAt(i)
			ss.Publish(c, start.Add(time.Duration(c.Index())*time.Second))
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := ss.Consume()
		if !snap.Known {
			continue
		}
		want := start.Add(time.Duration(snap.Coordinate.Index()) * time.Second)
		if !snap.LastChanged.Equal(want) {
			t.Fatalf("torn snapshot: %v at %v", snap.Coordinate, snap.LastChanged)
		}
	}
	wg.Wait()
}
