package device

import (
	"errors"
	"fmt"
	"periph.io/x/conn/v3/i2c"
	"time"
)

const muxChannelCount = 8

var ErrBusTimeout = errors.New("bus transaction timed out")

// BusError reports a failed transaction with a device behind the multiplexer.
type BusError struct {
	Channel int
	Addr    uint16
	Err     error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("i2c channel %d address 0x%02X: %v", e.Channel, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Bus serializes every transaction on an I²C bus shared through a PCA9548A
// multiplexer. The selected channel is global hardware state: selecting it and
// talking to the device happen in the same critical section.
type Bus struct {
	bus     i2c.Bus
	muxAddr uint16
	settle  time.Duration
	timeout time.Duration

	// one token, held from channel selection to the end of the transaction
	token chan struct{}
}

func NewBus(bus i2c.Bus, muxAddr uint16, settle time.Duration, timeout time.Duration) *Bus {
	return &Bus{
		bus:     bus,
		muxAddr: muxAddr,
		settle:  settle,
		timeout: timeout,
		token:   make(chan struct{}, 1),
	}
}

// Tx selects channel then runs a transaction with the device at addr.
// Waiting for the bus and the transaction itself are bounded by the bus
// timeout. After a timeout r must not be reused: the hardware may still fill it.
func (b *Bus) Tx(channel int, addr uint16, w, r []byte) error {
	if channel < 0 || channel >= muxChannelCount {
		return &BusError{Channel: channel, Addr: addr, Err: fmt.Errorf("invalid channel %d", channel)}
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.token <- struct{}{}:
	case <-timer.C:
		return &BusError{Channel: channel, Addr: addr, Err: ErrBusTimeout}
	}

	result := make(chan error, 1)
	go func() {
		// the token is released only once the hardware is done
		defer func() { <-b.token }()
		result <- b.tx(channel, addr, w, r)
	}()

	select {
	case err := <-result:
		if err != nil {
			return &BusError{Channel: channel, Addr: addr, Err: err}
		}
		return nil
	case <-timer.C:
		return &BusError{Channel: channel, Addr: addr, Err: ErrBusTimeout}
	}
}

func (b *Bus) tx(channel int, addr uint16, w, r []byte) error {
	if err := b.bus.Tx(b.muxAddr, []byte{1 << uint(channel)}, nil); err != nil {
		return fmt.Errorf("select channel: %w", err)
	}
	if b.settle > 0 {
		time.Sleep(b.settle)
	}
	return b.bus.Tx(addr, w, r)
}

// ReadByte reads the port of a register-less device such as a PCF8574.
func (b *Bus) ReadByte(channel int, addr uint16) (byte, error) {
	r := make([]byte, 1)
	if err := b.Tx(channel, addr, nil, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (b *Bus) Write(channel int, addr uint16, data []byte) error {
	return b.Tx(channel, addr, data, nil)
}

// Port returns a view of one multiplexer channel for device drivers.
func (b *Bus) Port(channel int) *Port {
	return &Port{bus: b, channel: channel}
}

// Port is a single multiplexer channel. Each transaction goes through Bus.Tx,
// so it reselects the channel and is serialized with every other bus user.
type Port struct {
	bus     *Bus
	channel int
}

func (p *Port) Tx(addr uint16, w, r []byte) error {
	return p.bus.Tx(p.channel, addr, w, r)
}

func (p *Port) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return p.bus.Tx(p.channel, uint16(addr), []byte{reg}, buf)
}

func (p *Port) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return p.bus.Tx(p.channel, uint16(addr), append([]byte{reg}, buf...), nil)
}

func (p *Port) Channel() int {
	return p.channel
}
