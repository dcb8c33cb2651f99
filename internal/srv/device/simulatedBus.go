package device

import (
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/srv/config"
	"periph.io/x/conn/v3/physic"
	"sync"
)

type simulatedDevice struct {
	channel int
	addr    uint16
}

// SimulatedBus emulates the multiplexer, the three switch expanders and the
// LCD backpack, so the whole stack runs without hardware.
type SimulatedBus struct {
	lock     sync.Mutex
	muxAddr  uint16
	selected int

	switches []simulatedDevice
	raw      []byte
	lcd      *simulatedDevice
	lcdBytes int
}

func NewSimulatedBus(busParam config.BusParam) *SimulatedBus {
	s := &SimulatedBus{
		muxAddr:  busParam.MuxAddress,
		selected: -1,
	}
	for _, sw := range busParam.Switches {
		s.switches = append(s.switches, simulatedDevice{channel: sw.Channel, addr: sw.Address})
		s.raw = append(s.raw, EncodePosition(1))
	}
	if busParam.Lcd.Enabled {
		s.lcd = &simulatedDevice{channel: busParam.Lcd.Channel, addr: busParam.Lcd.Address}
	}
	return s
}

func (s *SimulatedBus) String() string {
	return "simulated-i2c"
}

func (s *SimulatedBus) SetSpeed(f physic.Frequency) error {
	return nil
}

func (s *SimulatedBus) Close() error {
	return nil
}

func (s *SimulatedBus) Tx(addr uint16, w, r []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if addr == s.muxAddr {
		if len(w) != 1 || len(r) != 0 {
			return fmt.Errorf("multiplexer expects a single control byte")
		}
		s.selected = -1
		for ch := 0; ch < muxChannelCount; ch++ {
			if w[0] == 1<<uint(ch) {
				s.selected = ch
			}
		}
		return nil
	}

	for i, sw := range s.switches {
		if sw.channel == s.selected && sw.addr == addr {
			for j := range r {
				r[j] = s.raw[i]
			}
			return nil
		}
	}
	if s.lcd != nil && s.lcd.channel == s.selected && s.lcd.addr == addr {
		s.lcdBytes += len(w)
		return nil
	}
	return fmt.Errorf("no device at address 0x%02X on channel %d", addr, s.selected)
}

// SetPosition turns a simulated switch (0-2) to a position (1-6).
func (s *SimulatedBus) SetPosition(switchIndex int, position apimodel.Position) error {
	if !position.Known() {
		return fmt.Errorf("invalid position %d", position)
	}
	return s.SetRaw(switchIndex, EncodePosition(position))
}

// SetRaw sets the port value returned by a simulated switch expander.
func (s *SimulatedBus) SetRaw(switchIndex int, raw byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if switchIndex < 0 || switchIndex >= len(s.raw) {
		return fmt.Errorf("invalid switch %d", switchIndex)
	}
	s.raw[switchIndex] = raw
	return nil
}

// Position returns the current position of a simulated switch.
func (s *SimulatedBus) Position(switchIndex int) apimodel.Position {
	s.lock.Lock()
	defer s.lock.Unlock()

	if switchIndex < 0 || switchIndex >= len(s.raw) {
		return apimodel.UnknownPosition
	}
	position, _ := DecodePosition(s.raw[switchIndex])
	return position
}

// Turn moves a simulated switch by delta detents, wrapping around.
func (s *SimulatedBus) Turn(switchIndex int, delta int) error {
	position := s.Position(switchIndex)
	if !position.Known() {
		position = 1
	}
	next := (int(position)-1+delta)%apimodel.PositionCount + 1
	if next < 1 {
		next += apimodel.PositionCount
	}
	return s.SetPosition(switchIndex, apimodel.Position(next))
}

// LcdBytes counts the bytes written to the simulated LCD backpack.
func (s *SimulatedBus) LcdBytes() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lcdBytes
}
