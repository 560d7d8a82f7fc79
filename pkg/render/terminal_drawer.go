package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/decker502/sparkfx/pkg/systems"
)

// brightnessRamp orders glyphs from faint to dense.
var brightnessRamp = []rune(" .:-=+*#%@")

// CellAspect is the height of a terminal cell relative to its width.
const CellAspect = 2.0

// TerminalDrawer renders snapshots into a tcell screen. Each cell keeps the
// brightest particle that falls into it; brightness is colour luminance
// times alpha and selects the glyph.
//
// Camera units are cells: PixelsPerUnit is the number of columns per world
// unit, rows are scaled down by CellAspect.
type TerminalDrawer struct {
	screen tcell.Screen
	bg     tcell.Style

	w, h  int
	cells []cell
}

type cell struct {
	level   float64
	r, g, b float64
}

func NewTerminalDrawer(screen tcell.Screen) *TerminalDrawer {
	return &TerminalDrawer{
		screen: screen,
		bg:     tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite),
	}
}

// Camera returns a camera filling the screen with ppu columns per world unit.
func (d *TerminalDrawer) Camera(ppu float64) Camera {
	w, h := d.screen.Size()
	return Camera{Width: w, Height: int(float64(h) * CellAspect), PixelsPerUnit: ppu}
}

// Begin clears the accumulation buffer for a new frame.
func (d *TerminalDrawer) Begin() {
	d.w, d.h = d.screen.Size()
	n := d.w * d.h
	if cap(d.cells) < n {
		d.cells = make([]cell, n)
	}
	d.cells = d.cells[:n]
	clear(d.cells)
}

// Draw accumulates one snapshot. cam.Height is in half-rows, see Camera.
func (d *TerminalDrawer) Draw(cam Camera, snap *systems.Snapshot) {
	for i := 0; i < snap.Count; i++ {
		x, y := cam.WorldToScreen(snap.Positions[i])
		cx := int(math.Floor(x))
		cy := int(math.Floor(y / CellAspect))
		if cx < 0 || cy < 0 || cx >= d.w || cy >= d.h {
			continue
		}
		c := snap.Colors[i]
		r, g, b, a := float64(clamp01(c.X())), float64(clamp01(c.Y())), float64(clamp01(c.Z())), float64(clamp01(c.W()))
		level := (0.2126*r + 0.7152*g + 0.0722*b) * a
		dst := &d.cells[cy*d.w+cx]
		if level > dst.level {
			*dst = cell{level: level, r: r, g: g, b: b}
		}
	}
}

// End writes the accumulated cells to the screen. The caller calls Show.
func (d *TerminalDrawer) End() {
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			c := d.cells[y*d.w+x]
			glyph := glyphFor(c.level)
			style := d.bg
			if glyph != ' ' {
				style = style.Foreground(tcell.NewRGBColor(int32(c.r*255), int32(c.g*255), int32(c.b*255)))
			}
			d.screen.SetContent(x, y, glyph, nil, style)
		}
	}
}

// DrawText writes a line of text starting at (x, y), clipped to the screen.
func (d *TerminalDrawer) DrawText(x, y int, text string, style tcell.Style) {
	w, h := d.screen.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range text {
		if x >= w {
			return
		}
		if x >= 0 {
			d.screen.SetContent(x, y, r, nil, style)
		}
		x++
	}
}

func glyphFor(level float64) rune {
	if level <= 0 {
		return ' '
	}
	i := int(math.Ceil(level * float64(len(brightnessRamp)-1)))
	return brightnessRamp[min(i, len(brightnessRamp)-1)]
}
