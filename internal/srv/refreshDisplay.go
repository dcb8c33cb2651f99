package srv

import (
	"errors"
	"fmt"
	"github.com/jypelle/artbox/apimodel"
	"github.com/jypelle/artbox/internal/images"
	"github.com/jypelle/artbox/internal/srv/mode"
	"golang.org/x/image/draw"
	"image"
)

// Frame is everything shown on screen. Equal frames render identically.
type Frame struct {
	Mode       apimodel.Mode
	Coordinate apimodel.Coordinate
	Image      image.Image
	Missing    bool
	Err        string
	Overlay    [apimodel.SwitchCount]string
}

func NewFrame(output mode.Output, img image.Image, err error) Frame {
	frame := Frame{
		Mode:       output.Mode,
		Coordinate: output.Coordinate,
		Image:      img,
	}
	if err != nil {
		frame.Image = nil
		frame.Err = err.Error()
		var loadErr *images.LoadError
		if errors.As(err, &loadErr) {
			frame.Missing = loadErr.Missing()
			frame.Err = loadErr.Err.Error()
		}
	}
	return frame
}

// Marker is the headline drawn instead of an unavailable image.
func (f Frame) Marker() string {
	if f.Missing {
		return "Missing: " + f.Coordinate.Filename()
	}
	return "Unreadable: " + f.Coordinate.Filename()
}

// FadesFrom reports whether switching from previous to f is a crossfade:
// both show an image and the image changed. Markers are never faded.
func (f Frame) FadesFrom(previous Frame) bool {
	return f.Image != nil && previous.Image != nil && f.Image != previous.Image
}

// ComposeFrame renders a frame on a black canvas of the given size.
func ComposeFrame(bounds image.Rectangle, frame Frame, overlay bool) *image.RGBA {
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.Black, image.Point{}, draw.Src)
	scale := TextScale(bounds)

	if frame.Image != nil {
		AddScaledImage(img, frame.Image)
	} else {
		centerY := bounds.Min.Y + bounds.Dy()/2
		lineHeight := LabelSize(" ").Y * scale
		AddCenteredLabel(img, centerY, scale, frame.Marker())
		if frame.Err != "" {
			AddCenteredLabel(img, centerY+2*lineHeight, scale, frame.Err)
		}
	}

	if overlay {
		AddOverlay(img, scale, frame.Overlay[:])
	}
	return img
}

// refreshDisplay hands a new frame to the display, unless it is already shown.
// Only a change between two available images is crossfaded.
func (s *ServerApp) refreshDisplay(frame Frame) bool {
	if s.frameShown && frame == s.lastFrame {
		return false
	}
	fade := s.frameShown && frame.FadesFrom(s.lastFrame)
	s.lastFrame = frame
	s.frameShown = true

	img := ComposeFrame(s.displayDevice.Bounds(), frame, s.ScreenParam.Overlay)
	if fade {
		s.displayDevice.FadeImage(img)
	} else {
		s.displayDevice.ShowImage(img)
	}
	return true
}

// labelLines returns one line per switch: its label, or its position number.
func (s *ServerApp) labelLines(digits [apimodel.SwitchCount]int) [apimodel.SwitchCount]string {
	var lines [apimodel.SwitchCount]string
	for i, digit := range digits {
		if text, ok := s.labels.Text(i, digit); ok {
			lines[i] = text
		} else {
			lines[i] = fmt.Sprintf("SW%d: Pos %d", i+1, digit+1)
		}
	}
	return lines
}

// lcdDigits picks what the LCD describes: the switches themselves in
// interactive mode, the displayed image in screensaver mode.
func (s *ServerApp) lcdDigits(output mode.Output) [apimodel.SwitchCount]int {
	digits := output.Coordinate.Digits()
	if output.LabelSource != mode.SWITCH_POSITIONS_LABELS {
		return digits
	}
	positions := s.switchesDevice.Positions()
	for _, p := range positions {
		if !p.Known() {
			return digits
		}
	}
	for i, p := range positions {
		digits[i] = int(p) - 1
	}
	return digits
}

func (s *ServerApp) refreshLcd(output mode.Output) {
	if s.lcdDevice == nil {
		return
	}
	lines := s.labelLines(s.lcdDigits(output))
	s.lcdDevice.ShowLines([]string{output.Mode.Title(), lines[0], lines[1], lines[2]})
}
