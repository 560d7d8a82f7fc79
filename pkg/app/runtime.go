// Package app 组装特效引擎的运行时
//
// 三个命令（图形查看器、终端查看器、effectctl）共用同一套初始化：
// 特效库、纹理缓存、资源管理器和 World。
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/embedded"
	"github.com/decker502/sparkfx/pkg/game"
	"github.com/decker502/sparkfx/pkg/library"
)

// Runtime 持有引擎的全部共享服务
type Runtime struct {
	Config    *config.EngineConfig
	Store     library.Store
	Textures  *game.TextureCache
	TextureFS fs.FS // 纹理根目录，不存在时为 nil
	Resources *game.ResourceManager
	World     *game.World

	log *zap.Logger
}

// NewRuntime 按配置初始化运行时
//
// 特效库打开失败时返回错误；纹理根目录不存在不是错误，
// 此时纹理只做路径检查，渲染使用程序生成的精灵。
func NewRuntime(ctx context.Context, cfg *config.EngineConfig, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := library.Open(ctx, cfg.Library, logger)
	if err != nil {
		return nil, fmt.Errorf("open effect library: %w", err)
	}

	textureFS := openTextureRoot(cfg.Assets.TextureRoot, logger)
	if textureFS != nil {
		embedded.Init(textureFS)
	}
	textures := game.NewTextureCache(textureFS)
	resources := game.NewResourceManager(cfg.Assets, store, logger)
	world := game.NewWorld(resources, textures, cfg.Simulation, logger)

	logger.Info("runtime ready",
		zap.String("library", cfg.Library.Backend),
		zap.Bool("presets", cfg.Assets.Presets),
		zap.Strings("dirs", cfg.Assets.Dirs),
		zap.Bool("textures", textureFS != nil),
		zap.Int("workers", cfg.Simulation.Workers))

	return &Runtime{
		Config:    cfg,
		Store:     store,
		Textures:  textures,
		TextureFS: textureFS,
		Resources: resources,
		World:     world,
		log:       logger,
	}, nil
}

func openTextureRoot(root string, logger *zap.Logger) fs.FS {
	if root == "" {
		return nil
	}
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("texture root missing", zap.String("root", root))
		return nil
	case err != nil:
		logger.Warn("texture root unreadable", zap.String("root", root), zap.Error(err))
		return nil
	case !info.IsDir():
		logger.Warn("texture root is not a directory", zap.String("root", root))
		return nil
	}
	return os.DirFS(root)
}

// Close 清空 World 并关闭特效库
func (rt *Runtime) Close() error {
	rt.World.Clear()
	if err := rt.Store.Close(); err != nil {
		return fmt.Errorf("close effect library: %w", err)
	}
	return nil
}
