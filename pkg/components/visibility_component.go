package components

// VisibilityComponent 记录宿主报告的可见性
//
// 引擎本身不做视锥裁剪：WhenVisible 特效只信任这里的标记。
type VisibilityComponent struct {
	Visible bool
}
