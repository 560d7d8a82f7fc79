package game

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// SceneFactory 场景工厂函数类型
// 用于按特效名称创建预览场景，避免循环依赖
type SceneFactory func(effect string) (Scene, error)

// SceneManager controls which scene is active.
// It ensures only one scene's Update and Draw methods are called at any given time.
type SceneManager struct {
	currentScene Scene
	currentName  string
	sceneFactory SceneFactory
	log          *zap.Logger
}

// NewSceneManager creates a manager with no active scene; use SwitchTo or
// Load to set the initial scene.
func NewSceneManager(factory SceneFactory, logger *zap.Logger) *SceneManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SceneManager{sceneFactory: factory, log: logger.Named("scenes")}
}

// SetSceneFactory 设置场景工厂
// 工厂通常需要引用 SceneManager 本身，因此允许创建后再设置
func (sm *SceneManager) SetSceneFactory(factory SceneFactory) {
	sm.sceneFactory = factory
}

// SwitchTo changes the active scene.
func (sm *SceneManager) SwitchTo(name string, scene Scene) {
	sm.currentScene = scene
	sm.currentName = name
}

// GetCurrentScene 返回当前活动的场景，没有时返回 nil
func (sm *SceneManager) GetCurrentScene() Scene {
	return sm.currentScene
}

// CurrentName 返回当前场景对应的特效名称
func (sm *SceneManager) CurrentName() string {
	return sm.currentName
}

// Load 创建并切换到指定特效的场景
// 创建失败时保留当前场景
func (sm *SceneManager) Load(effect string) error {
	if sm.sceneFactory == nil {
		return fmt.Errorf("load scene %q: no scene factory", effect)
	}
	scene, err := sm.sceneFactory(effect)
	if err != nil {
		sm.log.Warn("create scene failed", zap.String("effect", effect), zap.Error(err))
		return err
	}
	sm.SwitchTo(effect, scene)
	sm.log.Info("scene switched", zap.String("effect", effect))
	return nil
}

// Update updates the currently active scene.
// If no scene is active, this method does nothing.
func (sm *SceneManager) Update(deltaTime float64) error {
	if sm.currentScene == nil {
		return nil
	}
	return sm.currentScene.Update(deltaTime)
}

// Draw renders the currently active scene.
// If no scene is active, this method does nothing.
func (sm *SceneManager) Draw(screen *ebiten.Image) {
	if sm.currentScene != nil {
		sm.currentScene.Draw(screen)
	}
}
