package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EngineConfig 引擎运行配置
// 所有字段都有默认值，配置文件只需写出需要覆盖的部分
type EngineConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Library    LibraryConfig    `yaml:"library"`
	Assets     AssetsConfig     `yaml:"assets"`
	Viewer     ViewerConfig     `yaml:"viewer"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Format string `yaml:"format"` // console（彩色，开发用）或 json（生产用）
}

// SimulationConfig 模拟配置
type SimulationConfig struct {
	Workers   int     `yaml:"workers"`   // 并行模拟的最大 goroutine 数
	FixedStep float64 `yaml:"fixedStep"` // 固定步长（秒），0 表示使用帧间隔
	MaxStep   float64 `yaml:"maxStep"`   // 单帧最大步长（秒），防止卡顿后的大跳跃
	Seed      uint64  `yaml:"seed"`      // 随机种子，0 表示每次运行随机
}

// LibraryConfig 特效库配置
type LibraryConfig struct {
	Backend  string `yaml:"backend"`  // gdata / postgres / none
	AppName  string `yaml:"appName"`  // gdata 应用名（决定本地存储目录）
	DSN      string `yaml:"dsn"`      // postgres 连接串，支持 ${ENV} 展开
	MaxConns int32  `yaml:"maxConns"` // postgres 连接池大小
}

// AssetsConfig 资源配置
type AssetsConfig struct {
	Presets     bool     `yaml:"presets"`     // 是否启用内置预设
	Dirs        []string `yaml:"dirs"`        // 描述文件搜索目录（按顺序）
	TextureRoot string   `yaml:"textureRoot"` // 纹理根目录
}

// ViewerConfig 查看器配置
type ViewerConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	PixelsPerUnit float64 `yaml:"pixelsPerUnit"` // 每个世界单位对应的像素数
	Effect        string  `yaml:"effect"`        // 启动时加载的特效
}

// Library backends.
const (
	BackendGData    = "gdata"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

func defaults() EngineConfig {
	return EngineConfig{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Simulation: SimulationConfig{
			Workers: 4,
			MaxStep: 0.1,
		},
		Library: LibraryConfig{
			Backend:  BackendGData,
			AppName:  "sparkfx",
			MaxConns: 4,
		},
		Assets: AssetsConfig{
			Presets:     true,
			Dirs:        []string{"effects"},
			TextureRoot: "assets",
		},
		Viewer: ViewerConfig{
			Width:         960,
			Height:        640,
			PixelsPerUnit: 120,
			Effect:        "default",
		},
	}
}

// Default 返回默认配置
func Default() *EngineConfig {
	cfg := defaults()
	return &cfg
}

// LoadEngineConfig 从 YAML 文件加载引擎配置
// 文件不存在时返回默认配置；空路径同样返回默认配置
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read engine config %s: %w", path, err)
	}

	if err := ParseEngineConfig(data, &cfg); err != nil {
		return nil, fmt.Errorf("engine config %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseEngineConfig 将 YAML 数据解析到 cfg 之上（保留未出现字段的原值）并校验
func ParseEngineConfig(data []byte, cfg *EngineConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.Library.DSN = os.ExpandEnv(cfg.Library.DSN)
	return validateEngineConfig(cfg)
}

// validateEngineConfig 验证配置取值范围
func validateEngineConfig(cfg *EngineConfig) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Logging.Format)
	}

	if cfg.Simulation.Workers < 1 {
		return fmt.Errorf("simulation.workers must be at least 1, got %d", cfg.Simulation.Workers)
	}
	if cfg.Simulation.FixedStep < 0 || cfg.Simulation.MaxStep < 0 {
		return fmt.Errorf("simulation steps must not be negative")
	}
	if cfg.Simulation.FixedStep > 0 && cfg.Simulation.MaxStep > 0 && cfg.Simulation.FixedStep > cfg.Simulation.MaxStep {
		return fmt.Errorf("simulation.fixedStep %.3f exceeds maxStep %.3f", cfg.Simulation.FixedStep, cfg.Simulation.MaxStep)
	}

	switch cfg.Library.Backend {
	case BackendGData:
		if cfg.Library.AppName == "" {
			return fmt.Errorf("library.appName is required for the gdata backend")
		}
	case BackendPostgres:
		if cfg.Library.DSN == "" {
			return fmt.Errorf("library.dsn is required for the postgres backend")
		}
		if cfg.Library.MaxConns < 1 {
			return fmt.Errorf("library.maxConns must be at least 1")
		}
	case BackendNone:
	default:
		return fmt.Errorf("library.backend must be gdata, postgres or none, got %q", cfg.Library.Backend)
	}

	if cfg.Viewer.Width <= 0 || cfg.Viewer.Height <= 0 {
		return fmt.Errorf("viewer size must be positive, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Viewer.PixelsPerUnit <= 0 {
		return fmt.Errorf("viewer.pixelsPerUnit must be positive")
	}
	return nil
}
