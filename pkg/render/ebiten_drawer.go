package render

import (
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/systems"
)

// TexturePaths maps a texture handle back to its path.
type TexturePaths interface {
	Path(h descriptor.TextureHandle) (string, bool)
}

// maxQuadsPerBatch keeps vertex indices within uint16.
const maxQuadsPerBatch = math.MaxUint16 / 4

// fallbackSize is the edge length of the procedural sprite in pixels.
const fallbackSize = 32

// EbitenDrawer draws snapshots as textured quads, one DrawTriangles call per
// batch. Textures are loaded lazily from fsys; a texture that cannot be
// loaded is replaced by a procedural soft dot and reported once.
//
// EbitenDrawer must only be used from the ebiten game goroutine.
type EbitenDrawer struct {
	paths TexturePaths
	fsys  fs.FS

	images   map[descriptor.TextureHandle]*ebiten.Image
	fallback *ebiten.Image

	// 顶点和索引数组（复用，避免每帧分配）
	vertices []ebiten.Vertex
	indices  []uint16

	// Additive 使用加法混合（适合发光类特效）
	Additive bool

	log *zap.Logger
}

// NewEbitenDrawer creates a drawer. paths and fsys may be nil, in which case
// every particle uses the procedural sprite.
func NewEbitenDrawer(paths TexturePaths, fsys fs.FS, logger *zap.Logger) *EbitenDrawer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EbitenDrawer{
		paths:    paths,
		fsys:     fsys,
		images:   make(map[descriptor.TextureHandle]*ebiten.Image),
		vertices: make([]ebiten.Vertex, 0, 4096),
		indices:  make([]uint16, 0, 6144),
		log:      logger.Named("drawer"),
	}
}

// Draw renders one snapshot onto dst.
func (d *EbitenDrawer) Draw(dst *ebiten.Image, cam Camera, snap *systems.Snapshot) {
	if snap.Count == 0 {
		return
	}
	img := d.texture(snap.TextureHandle)
	b := img.Bounds()
	src := [4]float32{float32(b.Min.X), float32(b.Min.Y), float32(b.Max.X), float32(b.Max.Y)}

	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	if d.Additive {
		// 加法混合模式（用于发光效果）
		op.Blend = ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	}

	for start := 0; start < snap.Count; start += maxQuadsPerBatch {
		end := min(start+maxQuadsPerBatch, snap.Count)
		d.vertices = d.vertices[:0]
		d.indices = d.indices[:0]
		for i := start; i < end; i++ {
			d.vertices, d.indices = appendQuad(d.vertices, d.indices, cam, snap, i, src)
		}
		dst.DrawTriangles(d.vertices, d.indices, img, op)
	}
}

// appendQuad adds the four corners and two triangles of particle i.
func appendQuad(vs []ebiten.Vertex, is []uint16, cam Camera, snap *systems.Snapshot, i int, src [4]float32) ([]ebiten.Vertex, []uint16) {
	corners := quadCorners(cam, snap.Positions[i], snap.Sizes[i], particleAngle(snap, i))
	c := snap.Colors[i]
	r, g, b, a := clamp01(c.X()), clamp01(c.Y()), clamp01(c.Z()), clamp01(c.W())

	// 纹理坐标：左上、右上、左下、右下
	uv := [4][2]float32{{src[0], src[1]}, {src[2], src[1]}, {src[0], src[3]}, {src[2], src[3]}}
	base := uint16(len(vs))
	for k := range corners {
		vs = append(vs, ebiten.Vertex{
			DstX: corners[k][0], DstY: corners[k][1],
			SrcX: uv[k][0], SrcY: uv[k][1],
			ColorR: r, ColorG: g, ColorB: b, ColorA: a,
		})
	}
	is = append(is,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
	return vs, is
}

// particleAngle returns the world-space rotation of particle i in radians.
// Billboards in this orthographic view always face the camera, so only
// OrientAlongVelocity rotates a quad.
func particleAngle(snap *systems.Snapshot, i int) float64 {
	if !snap.OrientAlongVelocity {
		return 0
	}
	v := snap.Velocities[i]
	if v.X() == 0 && v.Y() == 0 {
		return 0
	}
	return math.Atan2(v.Y(), v.X())
}

// quadCorners returns the screen corners (top-left, top-right, bottom-left,
// bottom-right) of a particle of world size size rotated by angle.
func quadCorners(cam Camera, pos mgl64.Vec3, size mgl64.Vec2, angle float64) [4][2]float32 {
	cx, cy := cam.WorldToScreen(pos)
	hw := size.X() * cam.PixelsPerUnit / 2
	hh := size.Y() * cam.PixelsPerUnit / 2

	// 屏幕 Y 轴向下，世界角度取反
	sin, cos := math.Sincos(-angle)
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {-hw, hh}, {hw, hh}}
	var out [4][2]float32
	for k, p := range local {
		out[k][0] = float32(cx + p[0]*cos - p[1]*sin)
		out[k][1] = float32(cy + p[0]*sin + p[1]*cos)
	}
	return out
}

func clamp01(f float64) float32 {
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f > 1:
		return 1
	}
	return float32(f)
}

// texture returns the image for a handle, loading it on first use.
func (d *EbitenDrawer) texture(h descriptor.TextureHandle) *ebiten.Image {
	if img, ok := d.images[h]; ok {
		return img
	}
	img := d.load(h)
	d.images[h] = img
	return img
}

func (d *EbitenDrawer) load(h descriptor.TextureHandle) *ebiten.Image {
	if h == descriptor.NoTexture || d.paths == nil || d.fsys == nil {
		return d.fallbackImage()
	}
	p, ok := d.paths.Path(h)
	if !ok {
		return d.fallbackImage()
	}
	f, err := d.fsys.Open(p)
	if err != nil {
		d.log.Warn("texture not loaded, using procedural sprite", zap.String("path", p), zap.Error(err))
		return d.fallbackImage()
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		d.log.Warn("texture not decoded, using procedural sprite", zap.String("path", p), zap.Error(err))
		return d.fallbackImage()
	}
	return ebiten.NewImageFromImage(src)
}

func (d *EbitenDrawer) fallbackImage() *ebiten.Image {
	if d.fallback == nil {
		d.fallback = ebiten.NewImageFromImage(softDot(fallbackSize))
	}
	return d.fallback
}

// softDot draws a white disc whose alpha falls off quadratically to the rim.
func softDot(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) + 0.5 - r) / r
			dy := (float64(y) + 0.5 - r) / r
			f := 1 - (dx*dx + dy*dy)
			if f <= 0 {
				continue
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: uint8(255 * f * f)})
		}
	}
	return img
}
