package device

import (
	"errors"
	"github.com/jypelle/artbox/internal/srv/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"image"
	"image/color"
	"time"
)

var ErrWindowUnavailable = errors.New("window backend not available on this platform")

// Surface is where frames end up: a framebuffer device, the simulation
// window or any test double.
type Surface interface {
	Bounds() image.Rectangle
	Draw(img image.Image) error
	Close() error
}

const KEY_ESCAPE = "Escape"

const CROSSFADE_FPS = 60

// KeyHandler receives the names of keys pressed in the simulation window.
type KeyHandler func(name string)

type displayRequest struct {
	img  image.Image
	fade bool
}

type Display struct {
	param     config.ScreenParam
	surface   Surface
	crossfade time.Duration
	failing   bool

	// last frame handed to the surface, owned by the draw goroutine
	current image.Image

	windowed   bool
	window     windowBackend
	keyHandler KeyHandler

	askImg  chan displayRequest
	askDone chan bool
	done    chan bool
}

func NewDisplay(screenParam config.ScreenParam, windowed bool, keyHandler KeyHandler) *Display {
	return &Display{
		param:      screenParam,
		crossfade:  screenParam.Crossfade(),
		windowed:   windowed,
		keyHandler: keyHandler,
		askImg:     make(chan displayRequest, 1),
		askDone:    make(chan bool),
		done:       make(chan bool),
	}
}

// NewSurfaceDisplay drives an already opened surface.
func NewSurfaceDisplay(surface Surface, crossfade time.Duration) *Display {
	d := NewDisplay(config.ScreenParam{
		Width:  surface.Bounds().Dx(),
		Height: surface.Bounds().Dy(),
	}, false, nil)
	d.surface = surface
	d.crossfade = crossfade
	return d
}

func (d *Display) Start() error {
	logrus.Infof("Start display device")

	if d.windowed && d.surface == nil {
		surface, err := d.startWindow()
		if err == nil {
			d.surface = surface
		} else {
			logrus.Warnf("Unable to open display window, falling back to framebuffer: %v", err)
		}
	}

	if d.surface == nil {
		fb, err := OpenFramebuffer(d.param.Framebuffer)
		if err != nil {
			return err
		}
		logrus.Infof("Framebuffer %s: %dx%d", d.param.Framebuffer, fb.Bounds().Dx(), fb.Bounds().Dy())
		d.surface = fb
	}

	go func() {
		for loop := true; loop; {
			select {
			case <-d.askDone:
				loop = false
			case req := <-d.askImg:
				loop = d.show(req)
			}
		}
		if err := d.surface.Close(); err != nil {
			logrus.Warnf("Unable to close display: %v", err)
		}
		d.done <- true
	}()
	return nil
}

func (d *Display) Stop() {
	logrus.Infof("Stop display device")
	d.askDone <- true
	<-d.done
}

// Bounds is the size frames should be composed at.
func (d *Display) Bounds() image.Rectangle {
	if d.surface != nil {
		return d.surface.Bounds()
	}
	return image.Rect(0, 0, d.param.Width, d.param.Height)
}

// ShowImage replaces the screen content at once. It never blocks: a frame
// not yet drawn is replaced by the newer one.
func (d *Display) ShowImage(img image.Image) {
	d.ask(displayRequest{img: img})
}

// FadeImage is ShowImage with a crossfade from the frame on screen.
func (d *Display) FadeImage(img image.Image) {
	d.ask(displayRequest{img: img, fade: true})
}

func (d *Display) ask(req displayRequest) {
	for {
		select {
		case d.askImg <- req:
			return
		default:
		}
		select {
		case <-d.askImg:
		default:
		}
	}
}

// show draws a request and reports false if a stop was asked meanwhile.
func (d *Display) show(req displayRequest) bool {
	for {
		if !req.fade || d.crossfade <= 0 || d.current == nil || d.current.Bounds() != req.img.Bounds() {
			d.draw(req.img)
			return true
		}

		next, stop := d.fade(req.img)
		if stop {
			return false
		}
		if next == nil {
			return true
		}
		// a newer frame arrived mid-fade, it starts from what is on screen
		req = *next
	}
}

// fade blends from the current frame to img, one step per tick. It returns
// early with a newer request, or with stop set when asked to stop.
func (d *Display) fade(img image.Image) (*displayRequest, bool) {
	steps := int(d.crossfade.Seconds() * CROSSFADE_FPS)
	if steps < 1 {
		steps = 1
	}
	ticker := time.NewTicker(d.crossfade / time.Duration(steps))
	defer ticker.Stop()

	from := d.current
	for i := 1; i <= steps; i++ {
		if i == steps {
			d.draw(img)
			return nil, false
		}
		d.draw(BlendFrames(from, img, uint8(255*i/steps)))

		select {
		case <-d.askDone:
			return nil, true
		case req := <-d.askImg:
			return &req, false
		case <-ticker.C:
		}
	}
	return nil, false
}

// BlendFrames draws to over from with the given opacity, in a new image.
func BlendFrames(from, to image.Image, alpha uint8) *image.RGBA {
	bounds := from.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, from, bounds.Min, draw.Src)
	draw.DrawMask(dst, bounds, to, to.Bounds().Min, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
	return dst
}

func (d *Display) draw(img image.Image) {
	d.current = img
	err := d.surface.Draw(img)
	if err != nil {
		if !d.failing {
			logrus.Warnf("Unable to draw frame: %v", err)
		}
		d.failing = true
		return
	}
	if d.failing {
		logrus.Infof("Display recovered")
	}
	d.failing = false
}
