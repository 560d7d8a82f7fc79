package components

import "github.com/decker502/sparkfx/pkg/effect"

// EffectComponent 持有实体上运行的粒子特效实例
//
// Instance 由 World 创建和销毁；实体被删除时实例被 Dispose。
//
// This is a pure data component following ECS principles - it contains no methods.
type EffectComponent struct {
	// Name 特效名称（预设名、库条目名或描述文件的名称）
	Name string

	// Instance 运行中的特效实例
	Instance *effect.Instance

	// DespawnWhenDone 发射器停止且没有存活粒子时自动删除实体（用于一次性爆发特效）
	DespawnWhenDone bool
}
