package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// 存储路径常量
const (
	libraryObject = "library"
	indexProperty = "index"
)

// gdataRecord 单个特效在 gdata 中的存储格式
type gdataRecord struct {
	Entry  `yaml:",inline"`
	Source string `yaml:"source"`
}

// GDataStore 基于 gdata 的本地特效库
//
// 所有数据存放在 "library" 对象下：index 属性保存条目列表（不含源码），
// 每个条目的源码单独存放在以 key 摘要命名的属性中。
// 删除条目时从索引移除并删除对应属性。
type GDataStore struct {
	mu      sync.Mutex
	manager *gdata.Manager
	index   map[string]Entry
	log     *zap.Logger
}

// OpenGData 打开应用 appName 的本地存储
func OpenGData(appName string, logger *zap.Logger) (*GDataStore, error) {
	manager, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open gdata %q: %w", appName, err)
	}
	return NewGDataStore(manager, logger)
}

// NewGDataStore 在已打开的 gdata 管理器上创建特效库
func NewGDataStore(manager *gdata.Manager, logger *zap.Logger) (*GDataStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GDataStore{
		manager: manager,
		index:   make(map[string]Entry),
		log:     logger,
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GDataStore) loadIndex() error {
	if !s.manager.ObjectPropExists(libraryObject, indexProperty) {
		return nil
	}
	data, err := s.manager.LoadObjectProp(libraryObject, indexProperty)
	if err != nil {
		return fmt.Errorf("load library index: %w", err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal library index: %w", err)
	}
	for _, e := range entries {
		s.index[e.Key] = e
	}
	s.log.Debug("library index loaded", zap.Int("entries", len(entries)))
	return nil
}

func (s *GDataStore) saveIndex() error {
	entries := make([]Entry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal library index: %w", err)
	}
	if err := s.manager.SaveObjectProp(libraryObject, indexProperty, data); err != nil {
		return fmt.Errorf("save library index: %w", err)
	}
	return nil
}

// propName 由 key 派生的属性名，只含十六进制字符，适合做文件名
func propName(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return "effect_" + hex.EncodeToString(sum[:12])
}

func (s *GDataStore) Save(_ context.Context, e Entry) (SaveResult, error) {
	key, err := entryKey(e.Name)
	if err != nil {
		return 0, err
	}
	e.Key = key
	if e.Fingerprint == "" {
		e.Fingerprint = Fingerprint(e.Source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return 0, ErrClosed
	}

	old, exists := s.index[key]
	if exists && old.Fingerprint == e.Fingerprint {
		return Unchanged, nil
	}

	data, err := yaml.Marshal(gdataRecord{Entry: e, Source: string(e.Source)})
	if err != nil {
		return 0, fmt.Errorf("marshal effect %q: %w", e.Name, err)
	}
	var prev []byte
	if exists {
		if prev, err = s.manager.LoadObjectProp(libraryObject, propName(key)); err != nil {
			return 0, fmt.Errorf("load effect %q: %w", e.Name, err)
		}
	}
	if err := s.manager.SaveObjectProp(libraryObject, propName(key), data); err != nil {
		return 0, fmt.Errorf("save effect %q: %w", e.Name, err)
	}

	e.Source = nil
	s.index[key] = e
	if err := s.saveIndex(); err != nil {
		// 索引保存失败时回滚，内存索引和源码都与已存储的索引保持一致
		if exists {
			s.index[key] = old
			err = errors.Join(err, s.manager.SaveObjectProp(libraryObject, propName(key), prev))
		} else {
			delete(s.index, key)
			err = errors.Join(err, s.manager.DeleteObjectProp(libraryObject, propName(key)))
		}
		return 0, err
	}

	s.log.Debug("effect saved", zap.String("name", e.Name), zap.Bool("replaced", exists))
	if exists {
		return Updated, nil
	}
	return Created, nil
}

func (s *GDataStore) Load(_ context.Context, name string) (Entry, error) {
	key, err := entryKey(name)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return Entry{}, ErrClosed
	}
	if _, ok := s.index[key]; !ok {
		return Entry{}, ErrNotFound
	}

	data, err := s.manager.LoadObjectProp(libraryObject, propName(key))
	if err != nil {
		return Entry{}, fmt.Errorf("load effect %q: %w", name, err)
	}
	var rec gdataRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Entry{}, fmt.Errorf("unmarshal effect %q: %w", name, err)
	}
	e := rec.Entry
	e.Source = []byte(rec.Source)
	return e, nil
}

func (s *GDataStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(s.index))
	for _, e := range s.index {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func (s *GDataStore) Delete(_ context.Context, name string) error {
	key, err := entryKey(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manager == nil {
		return ErrClosed
	}
	old, ok := s.index[key]
	if !ok {
		return ErrNotFound
	}

	delete(s.index, key)
	if err := s.saveIndex(); err != nil {
		s.index[key] = old
		return err
	}
	// 索引已更新，删除源码失败只留下孤立数据
	if err := s.manager.DeleteObjectProp(libraryObject, propName(key)); err != nil {
		s.log.Warn("delete effect data failed", zap.String("name", name), zap.Error(err))
	}
	return nil
}

func (s *GDataStore) Close() error {
	s.mu.Lock()
	s.manager = nil
	s.mu.Unlock()
	return nil
}
