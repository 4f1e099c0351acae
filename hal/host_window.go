//go:build !tinygo && cgo

package hal

import (
	"image"

	"github.com/KanekiZLF/Stream-Deck-Esp32/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Simulator key map:
//
//	1 2 3 4 / Q W E R / A S D F / Z X C V   pad keys 1..16
//	ArrowUp / ArrowDown                     encoder rotate
//	Enter                                   encoder push
//	F5 / F6                                 host app serial handshake
//	F7                                      WiFi access point up/down
const (
	hostPadGap   = 8
	hostPadCell  = 60
	hostPadInset = 4
)

var hostPadKeys = [hostButtonCount]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyQ, ebiten.KeyW, ebiten.KeyE, ebiten.KeyR,
	ebiten.KeyA, ebiten.KeyS, ebiten.KeyD, ebiten.KeyF,
	ebiten.KeyZ, ebiten.KeyX, ebiten.KeyC, ebiten.KeyV,
}

// RunWindow starts a desktop window that displays the TFT framebuffer
// next to a 4x4 pad grid lit with the LED strip colors, and forwards
// keyboard input. It blocks until the window closes.
func RunWindow(newApp func(HAL) func() error) error {
	h := New().(*hostHAL)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	w, hgt := g.Layout(0, 0)
	ebiten.SetWindowTitle("Deck (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(w*2, hgt*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	step    func() error
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	padImg  *image.RGBA
	padTex  *ebiten.Image
	ledSnap [][3]uint8
}

func (g *hostGame) Update() error {
	g.pollPad()
	g.pollEncoder()
	g.pollHotkeys()
	g.h.t.step(1)
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) pollPad() {
	var mask uint16
	for i, key := range hostPadKeys {
		if ebiten.IsKeyPressed(key) {
			mask |= 1 << uint(i)
		}
	}
	g.h.buttons.set(mask)
}

func (g *hostGame) pollEncoder() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		g.h.enc.emit(EncoderEvent{Delta: -1})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		g.h.enc.emit(EncoderEvent{Delta: 1})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.h.enc.emit(EncoderEvent{Press: true})
	}
}

// F5/F6 mimic the host app announcing and leaving the serial link.
func (g *hostGame) pollHotkeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.h.serial.inject([]byte("CONNECTED\n"))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF6) {
		g.h.serial.inject([]byte("DISCONNECT\n"))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF7) {
		g.h.wifi.toggleLink()
	}
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	if g.padImg == nil {
		g.padImg = image.NewRGBA(image.Rect(0, 0, 4*hostPadCell, 4*hostPadCell))
		g.padTex = ebiten.NewImage(4*hostPadCell, 4*hostPadCell)
		g.ledSnap = make([][3]uint8, hostStripLen)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.ReplacePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)

	g.drawPad()
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(fb.width+hostPadGap), 0)
	screen.DrawImage(g.padTex, &op)
}

func (g *hostGame) drawPad() {
	g.h.strip.snapshot(g.ledSnap)
	mask := g.h.buttons.Read()
	pix := g.padImg.Pix
	w := g.padImg.Bounds().Dx()

	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = 0x18
		pix[i+1] = 0x18
		pix[i+2] = 0x18
		pix[i+3] = 0xFF
	}

	for i := 0; i < hostButtonCount; i++ {
		cx := (i % 4) * hostPadCell
		cy := (i / 4) * hostPadCell
		c := g.ledSnap[i]
		pressed := mask&(1<<uint(i)) != 0
		for y := hostPadInset; y < hostPadCell-hostPadInset; y++ {
			for x := hostPadInset; x < hostPadCell-hostPadInset; x++ {
				border := y < hostPadInset+2 || y >= hostPadCell-hostPadInset-2 ||
					x < hostPadInset+2 || x >= hostPadCell-hostPadInset-2
				j := ((cy+y)*w + cx + x) * 4
				switch {
				case border && pressed:
					pix[j+0], pix[j+1], pix[j+2] = 0xFF, 0xFF, 0xFF
				case border:
					pix[j+0], pix[j+1], pix[j+2] = 0x40, 0x40, 0x40
				default:
					pix[j+0], pix[j+1], pix[j+2] = c[0], c[1], c[2]
				}
				pix[j+3] = 0xFF
			}
		}
	}
	g.padTex.ReplacePixels(g.padImg.Pix)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width + hostPadGap + 4*hostPadCell, g.h.fb.height
}
