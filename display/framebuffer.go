//go:build screen

package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/d21d3q/framebuffer"
	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	defaultDevice = "/dev/fb0"
	defaultFont   = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
)

// Display draws onto a 16bpp (RGB565) framebuffer.
type Display struct {
	mu              sync.Mutex
	dc              *gg.Context
	canvas          *image.RGBA // logical drawing surface
	frame           *image.RGBA // canvas scaled to the framebuffer size
	pixBuffer       []byte
	backBuffer      []byte
	width           int
	height          int
	lineLengthBytes int
	font            string
	logger          *zap.Logger
}

// New opens the framebuffer device.
func New(cfg Config, logger *zap.Logger) (*Display, error) {
	device := cfg.Device
	if device == "" {
		device = defaultDevice
	}
	font := cfg.Font
	if font == "" {
		font = defaultFont
	}

	fb, err := framebuffer.OpenFrameBuffer(device, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open framebuffer: %w", err)
	}
	varInfo, err := fb.VarScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get variable screen info: %w", err)
	}
	fixedInfo, err := fb.FixScreenInfo()
	if err != nil {
		return nil, fmt.Errorf("get fixed screen info: %w", err)
	}
	pix, err := fb.Pixels()
	if err != nil {
		return nil, fmt.Errorf("get pixel data: %w", err)
	}

	d := &Display{
		pixBuffer:       pix,
		width:           int(varInfo.XRes),
		height:          int(varInfo.YRes),
		lineLengthBytes: int(fixedInfo.LineLength),
		font:            font,
		logger:          logger,
	}
	d.backBuffer = make([]byte, d.height*d.lineLengthBytes)

	cw, ch := cfg.Width, cfg.Height
	if cw <= 0 || ch <= 0 {
		cw, ch = d.width, d.height
	}
	d.canvas = image.NewRGBA(image.Rect(0, 0, cw, ch))
	d.frame = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	d.dc = gg.NewContextForRGBA(d.canvas)

	logger.Info("Framebuffer display",
		zap.String("device", device),
		zap.Int("width", d.width),
		zap.Int("height", d.height),
		zap.Any("bpp", varInfo.BitsPerPixel))

	d.Clear()
	return d, nil
}

// Show fills the screen with bg and draws a title with optional lines below.
func (d *Display) Show(bg Colour, title string, lines ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := float64(d.canvas.Rect.Dx())
	h := float64(d.canvas.Rect.Dy())
	fg := textColour(bg)

	d.dc.SetRGB(bg.R, bg.G, bg.B)
	d.dc.DrawRectangle(0, 0, w, h)
	d.dc.Fill()

	y := h/2 - float64(len(lines))*25
	d.setFontSize(h / 6)
	d.dc.SetRGB(fg.R, fg.G, fg.B)
	d.dc.DrawStringAnchored(title, w/2, y, 0.5, 0.5)

	d.setFontSize(h / 12)
	for _, line := range lines {
		y += h / 8
		d.dc.DrawStringAnchored(line, w/2, y, 0.5, 0.5)
	}
	d.update()
}

// Clear blanks the screen.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pixBuffer {
		d.pixBuffer[i] = 0
	}
}

// Release blanks the screen.
func (d *Display) Release() error {
	d.Clear()
	return nil
}

func (d *Display) setFontSize(size float64) {
	if err := d.dc.LoadFontFace(d.font, size); err != nil {
		d.logger.Warn("Load font", zap.String("font", d.font), zap.Error(err))
	}
}

// update scales the canvas to the framebuffer and converts it to RGB565.
func (d *Display) update() {
	src := d.canvas
	if !src.Rect.Eq(d.frame.Rect) {
		draw.ApproxBiLinear.Scale(d.frame, d.frame.Rect, d.canvas, d.canvas.Rect, draw.Src, nil)
		src = d.frame
	}

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			pixel16 := uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
			idx := y*d.lineLengthBytes + x*2
			if idx+1 < len(d.backBuffer) {
				binary.LittleEndian.PutUint16(d.backBuffer[idx:], pixel16)
			}
		}
	}
	copy(d.pixBuffer, d.backBuffer)
}
