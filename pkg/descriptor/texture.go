package descriptor

// TextureHandle identifies a resolved texture. The engine never looks inside it;
// it is carried through to the render snapshot for the renderer.
type TextureHandle uint32

// NoTexture is the handle of an effect without a texture.
const NoTexture TextureHandle = 0

// TextureResolver maps a texture path from a descriptor to a handle.
// Implementations must be safe for concurrent use.
type TextureResolver interface {
	Resolve(path string) (TextureHandle, error)
}
