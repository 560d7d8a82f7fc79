package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/game"
	"github.com/decker502/sparkfx/pkg/render"
	"github.com/decker502/sparkfx/pkg/scenes"
)

// ErrQuit 由 Update 返回以结束 ebiten.RunGame
var ErrQuit = errors.New("quit requested")

// Config 定义查看器启动配置
type Config struct {
	// Effect 启动时加载的特效，为空时使用上次查看的特效或配置文件中的值
	Effect string
	// PixelsPerUnit 覆盖配置文件中的缩放，0 表示不覆盖
	PixelsPerUnit float64
	// Additive 使用加法混合绘制粒子
	Additive bool
}

// App 是查看器的核心包装器，实现 ebiten.Game 接口
type App struct {
	rt           *Runtime
	sceneManager *game.SceneManager
	settings     *game.SettingsManager
	width        int
	height       int
	lastUpdate   time.Time

	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数

	log *zap.Logger
}

// NewApp 创建查看器并加载第一个特效
//
// 特效加载顺序：cfg.Effect、上次查看的特效、配置文件中的 viewer.effect、default 预设。
func NewApp(ctx context.Context, rt *Runtime, cfg Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("app")
	vc := rt.Config.Viewer

	// 设置存储失败时降级为内存设置
	var settingsData *gdata.Manager
	if m, err := gdata.Open(gdata.Config{AppName: rt.Config.Library.AppName}); err != nil {
		log.Warn("settings storage unavailable", zap.Error(err))
	} else {
		settingsData = m
	}
	settings := game.NewSettingsManager(settingsData, logger)

	ppu := vc.PixelsPerUnit
	if cfg.PixelsPerUnit > 0 {
		ppu = cfg.PixelsPerUnit
		settings.SetPixelsPerUnit(0)
	}

	names, err := rt.Resources.Names(ctx)
	if err != nil {
		log.Warn("list effects failed", zap.Error(err))
	}

	drawer := render.NewEbitenDrawer(rt.Textures, rt.TextureFS, logger)
	drawer.Additive = cfg.Additive

	sm := game.NewSceneManager(nil, logger)
	deps := scenes.PreviewDeps{
		World:        rt.World,
		SceneManager: sm,
		Settings:     settings,
		Drawer:       drawer,
		Camera:       render.Camera{Width: vc.Width, Height: vc.Height, PixelsPerUnit: ppu},
		Names:        names,
		Logger:       logger,
	}
	sm.SetSceneFactory(scenes.Factory(ctx, deps))

	var loadErr error
	for _, name := range startCandidates(cfg.Effect, settings.GetSettings().LastEffect, vc.Effect) {
		if loadErr = sm.Load(name); loadErr == nil {
			break
		}
		log.Warn("effect not loaded", zap.String("effect", name), zap.Error(loadErr))
	}
	if loadErr != nil {
		return nil, fmt.Errorf("no effect could be loaded: %w", loadErr)
	}
	log.Info("viewer started", zap.String("effect", sm.CurrentName()), zap.Int("effects", len(names)))

	return &App{
		rt:           rt,
		sceneManager: sm,
		settings:     settings,
		width:        vc.Width,
		height:       vc.Height,
		log:          log,
	}, nil
}

// startCandidates 去掉空值和重复项，保留顺序，最后补上 default
func startCandidates(names ...string) []string {
	out := make([]string, 0, len(names)+1)
	seen := make(map[string]bool)
	for _, n := range append(names, "default") {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Update 更新查看器逻辑
// 使用真实帧间隔，World 负责限制最大步长
func (a *App) Update() error {
	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			ebiten.SetWindowSize(a.width, a.height)
			a.pendingWindowSizeReset = false
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ErrQuit
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		if ebiten.IsFullscreen() {
			ebiten.SetFullscreen(false)
			if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
				ebiten.RestoreWindow()
			}
			a.pendingWindowSizeReset = true
			a.windowSizeResetCountdown = 3
		} else {
			ebiten.SetFullscreen(true)
		}
	}

	now := time.Now()
	dt := 1.0 / float64(ebiten.TPS())
	if !a.lastUpdate.IsZero() {
		dt = now.Sub(a.lastUpdate).Seconds()
	}
	a.lastUpdate = now
	return a.sceneManager.Update(dt)
}

// Draw 绘制当前场景
func (a *App) Draw(screen *ebiten.Image) {
	a.sceneManager.Draw(screen)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.width, a.height
}

// Shutdown 保存设置并释放运行时
func (a *App) Shutdown() error {
	if s, ok := a.sceneManager.GetCurrentScene().(game.Saveable); ok {
		if !s.SaveOnExit() {
			a.log.Warn("scene state not saved")
		}
	}
	return a.rt.Close()
}

// GetSceneManager 返回场景管理器
func (a *App) GetSceneManager() *game.SceneManager {
	return a.sceneManager
}
