//go:build !arm && !arm64

package device

import (
	"gioui.org/app"
	"gioui.org/io/key"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"github.com/sirupsen/logrus"
	"image"
	"image/color"
	"sync"
)

type windowBackend struct {
	window *app.Window
	lock   sync.RWMutex
	frame  image.Image
}

// windowSurface shows frames in the simulation window.
type windowSurface struct {
	d *Display
}

func (w windowSurface) Bounds() image.Rectangle {
	return image.Rect(0, 0, w.d.param.Width, w.d.param.Height)
}

func (w windowSurface) Draw(img image.Image) error {
	w.d.window.lock.Lock()
	w.d.window.frame = img
	w.d.window.lock.Unlock()
	w.d.window.window.Invalidate()
	return nil
}

func (w windowSurface) Close() error {
	w.d.window.window.Close()
	return nil
}

func (d *Display) startWindow() (Surface, error) {
	d.window.window = app.NewWindow(
		app.Title("artbox"),
		app.Size(unit.Px(float32(d.param.Width)/2), unit.Px(float32(d.param.Height)/2)),
		app.MinSize(unit.Px(320), unit.Px(180)),
	)
	go func() {
		if err := d.gioloop(); err != nil {
			logrus.Errorf("Display window closed: %v", err)
		}
	}()
	go app.Main()
	return windowSurface{d: d}, nil
}

func (d *Display) gioloop() error {
	var ops op.Ops
	for {
		e := <-d.window.window.Events()
		switch e := e.(type) {
		case system.DestroyEvent:
			return e.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, e)

			for _, ev := range gtx.Events(d) {
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press && d.keyHandler != nil {
					name := ke.Name
					if name == key.NameEscape {
						name = KEY_ESCAPE
					}
					d.keyHandler(name)
				}
			}

			d.window.lock.RLock()
			lastImg := d.window.frame
			d.window.lock.RUnlock()

			paint.Fill(gtx.Ops, color.NRGBA{A: 0xFF})
			if lastImg != nil {
				img := widget.Image{Src: paint.NewImageOp(lastImg), Fit: widget.Contain}
				img.Layout(gtx)
			}

			key.InputOp{Tag: d}.Add(gtx.Ops)
			key.FocusOp{Tag: d}.Add(gtx.Ops)
			e.Frame(gtx.Ops)
		}
	}
}
