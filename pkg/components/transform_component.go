package components

import "github.com/go-gl/mathgl/mgl64"

// TransformComponent 存储实体的世界变换
//
// Position 为世界坐标；Rotation 为绕 Z 轴的旋转（弧度）；Scale 为统一缩放。
// Dirty 由修改方设置，World 在下一帧把矩阵同步到特效实例后清除。
type TransformComponent struct {
	Position mgl64.Vec3
	Rotation float64
	Scale    float64

	Dirty bool
}

// NewTransform 创建位于 pos 的单位变换
func NewTransform(pos mgl64.Vec3) *TransformComponent {
	return &TransformComponent{Position: pos, Scale: 1, Dirty: true}
}

// Matrix 返回 平移 * 旋转 * 缩放 矩阵
func (t *TransformComponent) Matrix() mgl64.Mat4 {
	scale := t.Scale
	if scale == 0 {
		scale = 1
	}
	return mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(mgl64.HomogRotate3DZ(t.Rotation)).
		Mul4(mgl64.Scale3D(scale, scale, scale))
}
