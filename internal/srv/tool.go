package srv

import (
	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
)

var col = color.RGBA{240, 240, 240, 255}
var uniformImage = image.NewUniform(col)
var overlayBoxImage = image.NewUniform(color.NRGBA{0, 0, 0, 160})

const (
	overlayMargin  = 10
	overlayPadding = 12
	overlayGap     = 6
)

// TextScale zooms the bitmap font so text stays readable on large screens.
func TextScale(bounds image.Rectangle) int {
	scale := bounds.Dy() / 270
	if scale < 1 {
		scale = 1
	}
	return scale
}

// LabelSize is the unscaled size of a rendered label.
func LabelSize(label string) image.Point {
	return image.Pt(
		font.MeasureString(bitmapfont.Face, label).Ceil(),
		bitmapfont.Face.Metrics().Height.Ceil(),
	)
}

// AddLabel draws label with its top left corner at pt, zoomed scale times.
func AddLabel(img draw.Image, pt image.Point, scale int, label string) {
	size := LabelSize(label)
	if size.X == 0 || size.Y == 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rectangle{Max: size})
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  uniformImage,
		Face: bitmapfont.Face,
		Dot:  fixed.Point26_6{X: 0, Y: bitmapfont.Face.Metrics().Ascent},
	}
	d.DrawString(label)

	target := image.Rectangle{Min: pt, Max: pt.Add(size.Mul(scale))}
	draw.NearestNeighbor.Scale(img, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

func AddCenteredLabel(img draw.Image, centerY int, scale int, label string) {
	size := LabelSize(label).Mul(scale)
	bounds := img.Bounds()
	AddLabel(img, image.Pt(bounds.Min.X+(bounds.Dx()-size.X)/2, centerY-size.Y/2), scale, label)
}

// FitRect is the largest rectangle with the proportions of src centered in bounds.
func FitRect(bounds image.Rectangle, src image.Rectangle) image.Rectangle {
	if src.Empty() || bounds.Empty() {
		return image.Rectangle{}
	}
	w := bounds.Dx()
	h := w * src.Dy() / src.Dx()
	if h > bounds.Dy() {
		h = bounds.Dy()
		w = h * src.Dx() / src.Dy()
	}
	min := bounds.Min.Add(image.Pt((bounds.Dx()-w)/2, (bounds.Dy()-h)/2))
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(w, h))}
}

// AddScaledImage draws src scaled to fit img, keeping its aspect ratio.
func AddScaledImage(img draw.Image, src image.Image) {
	target := FitRect(img.Bounds(), src.Bounds())
	if target.Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(img, target, src, src.Bounds(), draw.Src, nil)
}

// AddOverlay draws lines in a translucent box at the top left corner.
func AddOverlay(img draw.Image, scale int, lines []string) {
	if len(lines) == 0 {
		return
	}
	lineHeight := bitmapfont.Face.Metrics().Height.Ceil() * scale
	width := 0
	for _, line := range lines {
		if w := LabelSize(line).X * scale; w > width {
			width = w
		}
	}

	origin := img.Bounds().Min.Add(image.Pt(overlayMargin, overlayMargin))
	box := image.Rectangle{
		Min: origin,
		Max: origin.Add(image.Pt(
			width+2*overlayPadding,
			len(lines)*lineHeight+(len(lines)-1)*overlayGap+2*overlayPadding,
		)),
	}
	draw.Draw(img, box, overlayBoxImage, image.Point{}, draw.Over)

	for i, line := range lines {
		pt := origin.Add(image.Pt(overlayPadding, overlayPadding+i*(lineHeight+overlayGap)))
		AddLabel(img, pt, scale, line)
	}
}
