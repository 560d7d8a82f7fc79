// Package embedded 提供嵌入资源的统一访问接口
//
// 内置特效预设（presets/*.yaml）直接嵌入本包；
// 宿主程序可以通过 Init() 额外挂载一个资源文件系统（纹理等），路径以 "assets/" 开头。
package embedded

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/decker502/sparkfx/pkg/descriptor"
)

//go:embed presets/*.yaml
var presetFS embed.FS

var assetsFS fs.FS

// ErrNoPreset 表示不存在该名称的内置预设
var ErrNoPreset = errors.New("no such preset")

// Init 挂载宿主资源文件系统，"assets/x.png" 对应 assets 中的 "x.png"
func Init(assets fs.FS) {
	assetsFS = assets
}

// IsInitialized 返回是否已挂载资源文件系统
func IsInitialized() bool {
	return assetsFS != nil
}

// resolve 根据路径前缀选择文件系统
// 路径必须以 "presets/" 或 "assets/" 开头
func resolve(p string) (fs.FS, string, error) {
	// 标准化路径分隔符为正斜杠（embed.FS 使用正斜杠）
	p = strings.TrimPrefix(filepath.ToSlash(p), "./")

	switch {
	case strings.HasPrefix(p, "presets/"):
		return presetFS, p, nil
	case strings.HasPrefix(p, "assets/"):
		if assetsFS == nil {
			return nil, "", fmt.Errorf("embedded assets not initialized, call Init() first")
		}
		return assetsFS, strings.TrimPrefix(p, "assets/"), nil
	}
	return nil, "", fmt.Errorf("unknown resource path prefix: %s (must start with 'presets/' or 'assets/')", p)
}

// Open 打开嵌入资源
func Open(p string) (fs.File, error) {
	fsys, name, err := resolve(p)
	if err != nil {
		return nil, err
	}
	return fsys.Open(name)
}

// ReadFile 读取嵌入资源内容
func ReadFile(p string) ([]byte, error) {
	fsys, name, err := resolve(p)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(fsys, name)
}

// Exists 检查资源是否存在
func Exists(p string) bool {
	f, err := Open(p)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// PresetNames 返回所有内置预设名称（按字母排序）
func PresetNames() []string {
	matches, _ := fs.Glob(presetFS, "presets/*.yaml")
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(path.Base(m), ".yaml"))
	}
	slices.Sort(names)
	return names
}

// ReadPreset 返回预设的 YAML 源文件
func ReadPreset(name string) ([]byte, error) {
	data, err := fs.ReadFile(presetFS, "presets/"+name+".yaml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNoPreset, name)
		}
		return nil, err
	}
	return data, nil
}

// LoadPreset 解析并校验预设
func LoadPreset(name string) (*descriptor.Descriptor, error) {
	data, err := ReadPreset(name)
	if err != nil {
		return nil, err
	}
	return descriptor.LoadNamed("preset:"+name, name, data, descriptor.FormatYAML)
}
