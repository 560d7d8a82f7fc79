// Package scenes 查看器场景
package scenes

import (
	"context"
	"fmt"
	"image/color"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/ecs"
	"github.com/decker502/sparkfx/pkg/effect"
	"github.com/decker502/sparkfx/pkg/game"
	"github.com/decker502/sparkfx/pkg/render"
)

var backgroundColor = color.RGBA{25, 25, 38, 255}

// PreviewDeps 预览场景共享的依赖
type PreviewDeps struct {
	World        *game.World
	SceneManager *game.SceneManager
	Settings     *game.SettingsManager // 可为 nil
	Drawer       *render.EbitenDrawer
	Camera       render.Camera
	Names        []string // 可切换的特效名称（N/B 键循环）
	Logger       *zap.Logger
}

// PreviewScene 在屏幕中央预览一个特效
//
// 操作：
//
//	Space      - 暂停/继续
//	R          - 重置特效
//	A          - 开关发射
//	V          - 切换可见性（WhenVisible 特效在不可见时停止模拟）
//	H          - 显示/隐藏统计信息
//	N / B      - 下一个/上一个特效
//	+ / -      - 缩放
//	鼠标左键拖动 - 移动特效（Local 空间的粒子跟随移动）
type PreviewScene struct {
	deps   PreviewDeps
	effect string
	entity ecs.EntityID

	camera  render.Camera
	paused  bool
	visible bool
	status  string
	log     *zap.Logger
}

// NewPreviewScene 生成特效实体并返回场景
// 调用方负责在切换前清空 World（见 Factory）
func NewPreviewScene(ctx context.Context, deps PreviewDeps, effectName string) (*PreviewScene, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	id, err := deps.World.Spawn(ctx, effectName, mgl64.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", effectName, err)
	}

	cam := deps.Camera
	if deps.Settings != nil {
		if ppu := deps.Settings.GetSettings().PixelsPerUnit; ppu > 0 {
			cam.PixelsPerUnit = ppu
		}
		deps.Settings.SetLastEffect(effectName)
	}

	return &PreviewScene{
		deps:    deps,
		effect:  effectName,
		entity:  id,
		camera:  cam,
		visible: true,
		status:  "Selected: " + effectName,
		log:     deps.Logger.Named("preview"),
	}, nil
}

// Factory 返回 SceneManager 使用的场景工厂
// 每次切换特效都会清空 World，场景之间不共享实体
func Factory(ctx context.Context, deps PreviewDeps) game.SceneFactory {
	return func(effectName string) (game.Scene, error) {
		deps.World.Clear()
		return NewPreviewScene(ctx, deps, effectName)
	}
}

// Update 处理输入并推进模拟
func (s *PreviewScene) Update(dt float64) error {
	if err := s.handleInput(); err != nil {
		return err
	}
	if s.paused {
		return nil
	}
	return s.deps.World.Update(context.Background(), dt)
}

func (s *PreviewScene) handleInput() error {
	inst, err := s.deps.World.Instance(s.entity)
	if err != nil {
		return err
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		s.paused = !s.paused
		if s.paused {
			s.status = "PAUSED - Space to resume"
			return inst.Pause()
		}
		s.status = "Resumed"
		return inst.Resume()

	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		s.paused = false
		s.status = "Reset"
		return inst.Reset()

	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		if inst.Emitting() {
			s.status = "Emission off"
			return inst.Deactivate()
		}
		s.status = "Emission on"
		return inst.Activate()

	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		s.visible = !s.visible
		s.status = fmt.Sprintf("Visible: %v", s.visible)
		return s.deps.World.SetVisible(s.entity, s.visible)

	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		if s.deps.Settings != nil {
			s.deps.Settings.ToggleHUD()
		}

	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		return s.switchEffect(1)

	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		return s.switchEffect(-1)

	case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyKPAdd):
		s.zoom(1.25)

	case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract):
		s.zoom(0.8)
	}

	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		return s.deps.World.SetPosition(s.entity, s.camera.ScreenToWorld(float64(x), float64(y)))
	}
	return nil
}

func (s *PreviewScene) zoom(f float64) {
	s.camera.PixelsPerUnit = min(max(s.camera.PixelsPerUnit*f, 4), 2000)
	if s.deps.Settings != nil {
		s.deps.Settings.SetPixelsPerUnit(s.camera.PixelsPerUnit)
	}
	s.status = fmt.Sprintf("Zoom: %.0f px/unit", s.camera.PixelsPerUnit)
}

// switchEffect 加载列表中相邻的特效；失败时保留当前场景
func (s *PreviewScene) switchEffect(delta int) error {
	next, ok := cycleName(s.deps.Names, s.effect, delta)
	if !ok {
		s.status = "No other effects"
		return nil
	}
	if err := s.deps.SceneManager.Load(next); err != nil {
		s.status = fmt.Sprintf("Load %s failed: %v", next, err)
		// 工厂已清空 World，重新生成当前特效
		id, spawnErr := s.deps.World.Spawn(context.Background(), s.effect, mgl64.Vec3{})
		if spawnErr != nil {
			return spawnErr
		}
		s.entity = id
	}
	return nil
}

// cycleName 返回 names 中 current 之后第 delta 个名称（循环）
// current 不在列表中时从第一个开始
func cycleName(names []string, current string, delta int) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	i := slices.IndexFunc(names, func(n string) bool { return strings.EqualFold(n, current) })
	if i < 0 {
		return names[0], !strings.EqualFold(names[0], current)
	}
	n := len(names)
	j := ((i+delta)%n + n) % n
	if j == i {
		return "", false
	}
	return names[j], true
}

// Draw 绘制粒子和统计信息
func (s *PreviewScene) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	s.camera.Width, s.camera.Height = w, h
	for _, es := range s.deps.World.Snapshots() {
		s.deps.Drawer.Draw(screen, s.camera, es.Snapshot)
	}

	if s.deps.Settings != nil && !s.deps.Settings.GetSettings().ShowHUD {
		return
	}
	inst, err := s.deps.World.Instance(s.entity)
	if err != nil {
		return
	}
	for i, line := range hudLines(s.effect, inst, s.status) {
		ebitenutil.DebugPrintAt(screen, line, 10, 10+i*20)
	}
	ebitenutil.DebugPrintAt(screen, "Space=Pause R=Reset A=Emit V=Visible N/B=Next/Prev +/-=Zoom H=HUD Q=Quit", 10, h-30)
}

func hudLines(name string, inst *effect.Instance, status string) []string {
	d := inst.Descriptor()
	stats := inst.Stats()
	lines := []string{
		fmt.Sprintf("Effect: %s  [%s, %s]", name, d.SimulationSpace, d.SimulationCondition),
		fmt.Sprintf("State: %s  Spawner: %s  Emitting: %v", inst.State(), inst.SpawnerState(), inst.Emitting()),
		fmt.Sprintf("Particles: %d/%d  Elapsed: %.2fs", inst.Live(), d.Capacity, inst.Elapsed()),
		fmt.Sprintf("Frame: spawned %d  dropped %d  reclaimed %d", stats.Spawned, stats.Dropped, stats.Reclaimed),
	}
	if status != "" {
		lines = append(lines, status)
	}
	return lines
}

// SaveOnExit 实现 game.Saveable，保存查看器设置
func (s *PreviewScene) SaveOnExit() bool {
	if s.deps.Settings == nil {
		return true
	}
	if err := s.deps.Settings.Save(); err != nil {
		s.log.Warn("save settings failed", zap.Error(err))
		return false
	}
	return true
}
