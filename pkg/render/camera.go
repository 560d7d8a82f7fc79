// Package render draws effect snapshots: EbitenDrawer for the graphical
// viewer, TerminalDrawer for terminals.
package render

import "github.com/go-gl/mathgl/mgl64"

// Camera projects the world XY plane onto a screen. World Y points up,
// screen Y points down; Z is ignored.
type Camera struct {
	Width, Height int
	PixelsPerUnit float64
	Center        mgl64.Vec2
}

// WorldToScreen returns the screen position of a world point.
func (c Camera) WorldToScreen(p mgl64.Vec3) (x, y float64) {
	x = (p.X()-c.Center.X())*c.PixelsPerUnit + float64(c.Width)/2
	y = float64(c.Height)/2 - (p.Y()-c.Center.Y())*c.PixelsPerUnit
	return x, y
}

// ScreenToWorld is the inverse of WorldToScreen on the Z = 0 plane.
func (c Camera) ScreenToWorld(x, y float64) mgl64.Vec3 {
	if c.PixelsPerUnit == 0 {
		return mgl64.Vec3{c.Center.X(), c.Center.Y(), 0}
	}
	return mgl64.Vec3{
		(x-float64(c.Width)/2)/c.PixelsPerUnit + c.Center.X(),
		(float64(c.Height)/2-y)/c.PixelsPerUnit + c.Center.Y(),
		0,
	}
}

// Visible reports whether a world point lies on screen, extended by margin
// world units on every side.
func (c Camera) Visible(p mgl64.Vec3, margin float64) bool {
	x, y := c.WorldToScreen(p)
	m := margin * c.PixelsPerUnit
	return x >= -m && x <= float64(c.Width)+m && y >= -m && y <= float64(c.Height)+m
}
