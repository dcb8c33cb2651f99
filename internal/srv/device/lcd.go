package device

import (
	"github.com/jypelle/artbox/internal/srv/config"
	"github.com/sirupsen/logrus"
	"strings"
	"sync"
	"tinygo.org/x/drivers/hd44780i2c"
)

// lcdPort records the last bus error, the LCD driver does not report them.
type lcdPort struct {
	*Port
	lock    sync.Mutex
	lastErr error
}

func (p *lcdPort) Tx(addr uint16, w, r []byte) error {
	err := p.Port.Tx(addr, w, r)
	if err != nil {
		p.lock.Lock()
		p.lastErr = err
		p.lock.Unlock()
	}
	return err
}

func (p *lcdPort) takeError() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	err := p.lastErr
	p.lastErr = nil
	return err
}

// Lcd drives the 20x4 character display sitting on its own multiplexer channel.
type Lcd struct {
	port    *lcdPort
	address uint16
	cols    int
	rows    int
	dev     hd44780i2c.Device

	failing bool

	askLines chan []string
	askDone  chan bool
	done     chan bool
}

func NewLcd(bus *Bus, lcdParam config.LcdParam) *Lcd {
	device := Lcd{
		port:     &lcdPort{Port: bus.Port(lcdParam.Channel)},
		address:  lcdParam.Address,
		cols:     lcdParam.Cols,
		rows:     lcdParam.Rows,
		askLines: make(chan []string, 1),
		askDone:  make(chan bool),
		done:     make(chan bool),
	}
	return &device
}

func (d *Lcd) Start() {
	logrus.Infof("Start lcd device")

	d.dev = hd44780i2c.New(d.port, uint8(d.address))
	err := d.dev.Configure(hd44780i2c.Config{
		Width:  uint8(d.cols),
		Height: uint8(d.rows),
	})
	if err != nil {
		logrus.Warnf("Unable to configure lcd: %v", err)
	}
	d.dev.ClearDisplay()
	d.checkError("initialize")

	go func() {
		for loop := true; loop; {
			select {
			case <-d.askDone:
				loop = false
			case lines := <-d.askLines:
				d.write(lines)
			}
		}
		d.dev.ClearDisplay()
		d.checkError("clear")
		d.done <- true
	}()
}

func (d *Lcd) Stop() {
	logrus.Infof("Stop lcd device")
	d.askDone <- true
	<-d.done
}

// ShowLines queues lines for display without blocking. Only the latest
// request is kept when the LCD is busy.
func (d *Lcd) ShowLines(lines []string) {
	for {
		select {
		case d.askLines <- lines:
			return
		default:
		}
		select {
		case <-d.askLines:
		default:
		}
	}
}

func (d *Lcd) write(lines []string) {
	for row := 0; row < d.rows; row++ {
		var line string
		if row < len(lines) {
			line = lines[row]
		}
		d.dev.SetCursor(0, uint8(row))
		d.dev.Print([]byte(FitLcdLine(line, d.cols)))
	}
	d.checkError("write")
}

func (d *Lcd) checkError(action string) {
	err := d.port.takeError()
	if err != nil {
		if !d.failing {
			logrus.Warnf("Unable to %s lcd: %v", action, err)
		} else {
			logrus.Debugf("Unable to %s lcd: %v", action, err)
		}
		d.failing = true
		return
	}
	d.failing = false
}

// FitLcdLine truncates or pads a line to the LCD width. Characters outside
// printable ASCII are not in the LCD font and become '?'.
func FitLcdLine(line string, cols int) string {
	var sb strings.Builder
	n := 0
	for _, r := range line {
		if n == cols {
			break
		}
		if r < 0x20 || r > 0x7E {
			r = '?'
		}
		sb.WriteRune(r)
		n++
	}
	for ; n < cols; n++ {
		sb.WriteByte(' ')
	}
	return sb.String()
}
