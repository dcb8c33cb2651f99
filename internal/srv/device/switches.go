package device

import (
	"errors"
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/srv/config"
	"github.com/jypelle/artbox/internal/srv/state"
	"github.com/sirupsen/logrus"
	"sync"
	"time"
)

var ErrDecodeAmbiguous = errors.New("unrecognized switch bit pattern")

// DecodeError reports a port value matching no switch position, usually read
// while the switch is between two detents.
type DecodeError struct {
	Switch int
	Raw    byte
}

func (e *DecodeError) Error() string {
	if e.Switch < 0 {
		return fmt.Sprintf("%v 0x%02X", ErrDecodeAmbiguous, e.Raw)
	}
	return fmt.Sprintf("switch %d: %v 0x%02X", e.Switch+1, ErrDecodeAmbiguous, e.Raw)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecodeAmbiguous
}

// One input held low per position: P0 low is position 1, P5 low is position 6.
var positionPatterns = map[byte]apimodel.Position{
	0xFE: 1,
	0xFD: 2,
	0xFB: 3,
	0xF7: 4,
	0xEF: 5,
	0xDF: 6,
}

// DecodePosition maps a switch expander port value to a position.
func DecodePosition(raw byte) (apimodel.Position, error) {
	position, ok := positionPatterns[raw]
	if !ok {
		return apimodel.UnknownPosition, &DecodeError{Switch: -1, Raw: raw}
	}
	return position, nil
}

// EncodePosition returns the port value read when a switch is at position.
func EncodePosition(position apimodel.Position) byte {
	return ^byte(1 << uint(position-1))
}

type switchReading struct {
	param    config.BusDeviceParam
	// last known good position, guarded by Switches.lock
	position apimodel.Position
	failing  bool
}

// Switches reads the three rotary switches and publishes the selected
// coordinate into the shared switch state.
type Switches struct {
	lock        sync.Mutex
	bus         *Bus
	switchState *state.SwitchState
	now         func() time.Time

	readings [apimodel.SwitchCount]*switchReading

	pollPeriod  time.Duration
	joinTimeout time.Duration
	checkTicker *time.Ticker

	askDone chan bool
	done    chan bool
}

func NewSwitches(bus *Bus, busParam config.BusParam, switchState *state.SwitchState, pollPeriod time.Duration, joinTimeout time.Duration) *Switches {
	device := Switches{
		bus:         bus,
		switchState: switchState,
		now:         time.Now,
		pollPeriod:  pollPeriod,
		joinTimeout: joinTimeout,
		askDone:     make(chan bool, 1),
		done:        make(chan bool, 1),
	}
	for i := range device.readings {
		device.readings[i] = &switchReading{param: busParam.Switches[i]}
	}
	return &device
}

// ReadPosition reads one switch (0-2). Failed reads return UnknownPosition
// with a BusError or a DecodeError.
func (d *Switches) ReadPosition(switchIndex int) (apimodel.Position, error) {
	param := d.readings[switchIndex].param
	raw, err := d.bus.ReadByte(param.Channel, param.Address)
	if err != nil {
		return apimodel.UnknownPosition, err
	}
	position, err := DecodePosition(raw)
	if err != nil {
		return apimodel.UnknownPosition, &DecodeError{Switch: switchIndex, Raw: raw}
	}
	return position, nil
}

// Poll reads every switch once. The coordinate is published only when the
// three reads succeed, otherwise the previous one stays untouched.
// Poll must not be called concurrently.
func (d *Switches) Poll() {
	var positions [apimodel.SwitchCount]apimodel.Position
	complete := true
	for i, reading := range d.readings {
		position, err := d.ReadPosition(i)
		if err != nil {
			complete = false
			if !reading.failing {
				logrus.Warnf("Unable to read switch %d: %v", i+1, err)
			} else {
				logrus.Debugf("Unable to read switch %d: %v", i+1, err)
			}
			reading.failing = true
			continue
		}
		if reading.failing {
			logrus.Infof("Switch %d readable again", i+1)
			reading.failing = false
		}
		positions[i] = position
	}

	d.lock.Lock()
	for i, reading := range d.readings {
		if positions[i].Known() && reading.position != positions[i] {
			logrus.Debugf("Switch %d: %s -> %s", i+1, reading.position, positions[i])
			reading.position = positions[i]
		}
	}
	d.lock.Unlock()

	if !complete {
		return
	}

	coordinate, err := apimodel.CoordinateFromPositions(positions)
	if err != nil {
		return
	}
	if d.switchState.Publish(coordinate, d.now()) {
		logrus.Infof("Switches moved to %s", coordinate.Stem())
	}
}

// Positions returns the last known good position of each switch.
func (d *Switches) Positions() [apimodel.SwitchCount]apimodel.Position {
	d.lock.Lock()
	defer d.lock.Unlock()

	var positions [apimodel.SwitchCount]apimodel.Position
	for i, reading := range d.readings {
		positions[i] = reading.position
	}
	return positions
}

func (d *Switches) Start() {
	logrus.Infof("Start switches device")

	// Start periodic check
	d.checkTicker = time.NewTicker(d.pollPeriod)
	go func() {
		d.Poll()
		for loop := true; loop; {
			select {
			case <-d.askDone:
				loop = false
			case <-d.checkTicker.C:
				// a stop request wins over a pending tick
				select {
				case <-d.askDone:
					loop = false
				default:
					d.Poll()
				}
			}
		}
		d.done <- true
	}()
}

// StopSendingEvent stops polling and waits, at most joinTimeout, for the
// polling goroutine to finish its current tick.
func (d *Switches) StopSendingEvent() bool {
	logrus.Infof("Stop switches device")

	d.checkTicker.Stop()
	d.askDone <- true

	timer := time.NewTimer(d.joinTimeout)
	defer timer.Stop()
	select {
	case <-d.done:
		return true
	case <-timer.C:
		logrus.Warnf("Switches polling did not stop within %v", d.joinTimeout)
		return false
	}
}
