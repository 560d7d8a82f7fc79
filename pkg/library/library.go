// Package library stores effect descriptor sources by name.
//
// Entries keep the original source text and format so that an exported effect
// round-trips byte for byte. Names are matched case-insensitively after
// Unicode normalisation.
package library

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/descriptor"
)

var (
	ErrNotFound    = errors.New("library: effect not found")
	ErrInvalidName = errors.New("library: invalid effect name")
	ErrClosed      = errors.New("library: store closed")
)

// SaveResult tells what Save did with an entry.
type SaveResult uint8

const (
	Created SaveResult = iota + 1
	Updated
	Unchanged
)

func (r SaveResult) String() string {
	switch r {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

// Entry is one stored effect.
type Entry struct {
	Name        string            `yaml:"name"`
	Key         string            `yaml:"key"`
	Format      descriptor.Format `yaml:"format"`
	Source      []byte            `yaml:"-"`
	Fingerprint string            `yaml:"fingerprint"`
	UpdatedAt   time.Time         `yaml:"updatedAt"`
}

// NewEntry builds an entry with its key and fingerprint filled in.
func NewEntry(name string, format descriptor.Format, source []byte) (Entry, error) {
	key, err := Key(name)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:        strings.TrimSpace(name),
		Key:         key,
		Format:      format,
		Source:      source,
		Fingerprint: Fingerprint(source),
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// Decode parses the entry source.
func (e Entry) Decode() (*descriptor.Descriptor, error) {
	return descriptor.LoadNamed("library:"+e.Name, e.Name, e.Source, e.Format)
}

var folder = cases.Fold()

// Key normalises an effect name: NFC, then Unicode case folding.
func Key(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return folder.String(norm.NFC.String(name)), nil
}

// Fingerprint is the hex blake2b-256 digest of a source.
func Fingerprint(source []byte) string {
	sum := blake2b.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Store persists effect entries.
//
// Save compares fingerprints and reports Unchanged without writing when the
// stored source is identical. List returns entries without their sources,
// ordered by key.
type Store interface {
	Save(ctx context.Context, e Entry) (SaveResult, error)
	Load(ctx context.Context, name string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open selects the backend named by the configuration.
func Open(ctx context.Context, cfg config.LibraryConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("library")

	switch cfg.Backend {
	case config.BackendGData:
		s, err := OpenGData(cfg.AppName, log)
		if err != nil {
			return nil, err
		}
		log.Info("effect library opened", zap.String("backend", cfg.Backend), zap.String("app", cfg.AppName))
		return s, nil
	case config.BackendPostgres:
		s, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConns, log)
		if err != nil {
			return nil, err
		}
		log.Info("effect library opened", zap.String("backend", cfg.Backend), zap.Int32("maxConns", cfg.MaxConns))
		return s, nil
	case config.BackendNone, "":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("library: unknown backend %q", cfg.Backend)
}

func entryKey(name string) (string, error) {
	key, err := Key(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	return key, nil
}
