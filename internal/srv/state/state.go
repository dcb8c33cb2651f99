// Package state holds the switch state shared between the polling loop
// (single writer) and the control loop (readers).
package state

import (
	"github.com/jypelle/artbox/apimodel"
	"sync"
	"time"
)

// Snapshot is a consistent copy of the shared switch state.
type Snapshot struct {
	// Known is false until a first complete switch reading has been published
	Known       bool
	Coordinate  apimodel.Coordinate
	LastChanged time.Time
	// Changed reports a coordinate change not consumed yet
	Changed bool
}

type SwitchState struct {
	lock     sync.RWMutex
	snapshot Snapshot
}

// NewSwitchState creates the state with an unknown coordinate. The creation
// time counts as the last change so that inactivity is measured from startup.
func NewSwitchState(now time.Time) *SwitchState {
	return &SwitchState{
		snapshot: Snapshot{LastChanged: now},
	}
}

// Publish stores a complete coordinate reading. The timestamp and the changed
// flag are updated only if the coordinate differs from the stored one.
func (ss *SwitchState) Publish(coordinate apimodel.Coordinate, now time.Time) bool {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if ss.snapshot.Known && ss.snapshot.Coordinate == coordinate {
		return false
	}
	ss.snapshot = Snapshot{
		Known:       true,
		Coordinate:  coordinate,
		LastChanged: now,
		Changed:     true,
	}
	return true
}

// Snapshot returns the current state without consuming the change.
func (ss *SwitchState) Snapshot() Snapshot {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.snapshot
}

// Consume returns the current state and clears the changed flag.
func (ss *SwitchState) Consume() Snapshot {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	snapshot := ss.snapshot
	ss.snapshot.Changed = false
	return snapshot
}
