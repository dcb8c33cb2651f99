package device

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Framebuffer writes frames to a Linux framebuffer device (16 or 32 bpp).
type Framebuffer struct {
	out    io.WriterAt
	closer io.Closer
	width  int
	height int
	stride int
	bpp    int

	rgba *image.RGBA
	buf  []byte
}

// OpenFramebuffer opens a device such as /dev/fb0, reading its geometry from sysfs.
func OpenFramebuffer(path string) (*Framebuffer, error) {
	sysDir := filepath.Join("/sys/class/graphics", filepath.Base(path))

	size, err := readSysfs(sysDir, "virtual_size")
	if err != nil {
		return nil, err
	}
	dims := strings.Split(size, ",")
	if len(dims) != 2 {
		return nil, fmt.Errorf("unexpected framebuffer size %q", size)
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return nil, fmt.Errorf("unexpected framebuffer width %q", dims[0])
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return nil, fmt.Errorf("unexpected framebuffer height %q", dims[1])
	}
	bpp, err := readSysfsInt(sysDir, "bits_per_pixel")
	if err != nil {
		return nil, err
	}
	stride, err := readSysfsInt(sysDir, "stride")
	if err != nil {
		stride = width * bpp / 8
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to open framebuffer: %w", err)
	}
	fb, err := NewFramebuffer(file, width, height, stride, bpp)
	if err != nil {
		file.Close()
		return nil, err
	}
	fb.closer = file
	return fb, nil
}

func NewFramebuffer(out io.WriterAt, width, height, stride, bpp int) (*Framebuffer, error) {
	if bpp != 16 && bpp != 32 {
		return nil, fmt.Errorf("unsupported framebuffer depth: %d bpp", bpp)
	}
	if stride < width*bpp/8 {
		return nil, fmt.Errorf("framebuffer stride %d too small for width %d", stride, width)
	}
	return &Framebuffer{
		out:    out,
		width:  width,
		height: height,
		stride: stride,
		bpp:    bpp,
		rgba:   image.NewRGBA(image.Rect(0, 0, width, height)),
		buf:    make([]byte, stride*height),
	}, nil
}

func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// Draw writes img, anchored at its top left corner, to the framebuffer.
func (f *Framebuffer) Draw(img image.Image) error {
	draw.Draw(f.rgba, f.rgba.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(f.rgba, f.rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	for y := 0; y < f.height; y++ {
		src := f.rgba.Pix[y*f.rgba.Stride : y*f.rgba.Stride+f.width*4]
		dst := f.buf[y*f.stride:]
		for x := 0; x < f.width; x++ {
			r, g, b := src[x*4], src[x*4+1], src[x*4+2]
			switch f.bpp {
			case 32:
				// XRGB8888, little endian
				dst[x*4] = b
				dst[x*4+1] = g
				dst[x*4+2] = r
				dst[x*4+3] = 0xFF
			case 16:
				// RGB565, little endian
				v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
				dst[x*2] = byte(v)
				dst[x*2+1] = byte(v >> 8)
			}
		}
	}
	_, err := f.out.WriteAt(f.buf, 0)
	return err
}

func (f *Framebuffer) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func readSysfs(dir, name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("unable to read framebuffer %s: %w", name, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readSysfsInt(dir, name string) (int, error) {
	value, err := readSysfs(dir, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("unexpected framebuffer %s %q", name, value)
	}
	return n, nil
}
