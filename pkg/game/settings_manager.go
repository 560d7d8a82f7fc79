package game

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ViewerSettings 查看器的持久化设置
// 下次启动时恢复上次查看的特效和缩放
type ViewerSettings struct {
	LastEffect    string  `yaml:"lastEffect"`    // 上次查看的特效
	PixelsPerUnit float64 `yaml:"pixelsPerUnit"` // 0 表示使用配置文件中的值
	ShowHUD       bool    `yaml:"showHUD"`       // 是否显示统计信息
}

// DefaultSettings 返回默认设置
func DefaultSettings() *ViewerSettings {
	return &ViewerSettings{ShowHUD: true}
}

// SettingsManager 设置管理器
// 负责查看器设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *ViewerSettings
	log          *zap.Logger
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "viewer"
)

// NewSettingsManager 创建新的设置管理器实例
//
// gdataManager 可为 nil（降级模式，仅内存设置）。
// 加载失败不是致命错误：记录警告并使用默认设置。
func NewSettingsManager(gdataManager *gdata.Manager, logger *zap.Logger) *SettingsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
		log:          logger.Named("settings"),
	}
	if err := sm.Load(); err != nil {
		sm.log.Warn("load settings failed, using defaults", zap.Error(err))
	}
	return sm
}

// Load 从 gdata 加载设置
// 如果 gdataManager 为 nil 或数据不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	if sm.gdataManager == nil || !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if loaded.PixelsPerUnit < 0 {
		loaded.PixelsPerUnit = 0
	}

	sm.settings = loaded
	sm.log.Debug("settings loaded", zap.String("lastEffect", loaded.LastEffect))
	return nil
}

// Save 保存设置到 gdata
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *ViewerSettings {
	return sm.settings
}

// SetLastEffect 记录当前查看的特效
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetLastEffect(name string) {
	sm.settings.LastEffect = name
}

// SetPixelsPerUnit 设置缩放，负数视为 0（使用配置值）
func (sm *SettingsManager) SetPixelsPerUnit(ppu float64) {
	sm.settings.PixelsPerUnit = max(0, ppu)
}

// ToggleHUD 切换统计信息显示
func (sm *SettingsManager) ToggleHUD() {
	sm.settings.ShowHUD = !sm.settings.ShowHUD
}
