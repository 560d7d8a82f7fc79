package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a descriptor source format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatLua  Format = "lua"
)

// Formats lists every format Load understands.
var Formats = []Format{FormatYAML, FormatJSON, FormatTOML, FormatLua}

// ParseFormat accepts a format name or a file extension, with or without the dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "lua":
		return FormatLua, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatOf derives the format from a file name.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Load parses and validates a descriptor. Failures are *ParseError values.
func Load(data []byte, format Format) (*Descriptor, error) {
	return load(context.Background(), "", "", data, format)
}

// LoadContext is Load with a context bounding Lua evaluation.
func LoadContext(ctx context.Context, data []byte, format Format) (*Descriptor, error) {
	return load(ctx, "", "", data, format)
}

// LoadFile reads a descriptor from disk. The format comes from the extension
// and a missing name defaults to the file name without extension.
func LoadFile(path string) (*Descriptor, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, withSource(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return load(context.Background(), path, stem, data, format)
}

// LoadNamed parses data attributed to source (used in error messages),
// defaulting the effect name to name when the data does not set one.
func LoadNamed(source, name string, data []byte, format Format) (*Descriptor, error) {
	return load(context.Background(), source, name, data, format)
}

func load(ctx context.Context, source, defaultName string, data []byte, format Format) (*Descriptor, error) {
	doc, err := decode(ctx, data, format)
	if err != nil {
		return nil, withSource(source, err)
	}
	if doc.Name == "" {
		doc.Name = defaultName
	}
	d, err := doc.build()
	if err != nil {
		return nil, withSource(source, err)
	}
	return d, nil
}

func decode(ctx context.Context, data []byte, format Format) (*document, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatJSON:
		var doc document
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("json: %w", err)}
		}
		return &doc, nil
	case FormatTOML:
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, &ParseError{Err: fmt.Errorf("toml: %w", err)}
		}
		return decodeGeneric(raw)
	case FormatLua:
		raw, err := evalLua(ctx, data)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		return decodeGeneric(raw)
	}
	return nil, &ParseError{Err: fmt.Errorf("%w: %q", ErrUnknownFormat, format)}
}

func decodeYAML(data []byte) (*document, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &ParseError{Err: fmt.Errorf("yaml: empty document")}
		}
		return nil, &ParseError{Err: fmt.Errorf("yaml: %w", err)}
	}
	return &doc, nil
}

// decodeGeneric runs loosely typed data (TOML tables, Lua tables) through the
// YAML decoder so every format shares one set of field rules.
func decodeGeneric(raw map[string]any) (*document, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("normalize: %w", err)}
	}
	return decodeYAML(data)
}

// Encode writes d in the given format. Lua is read-only.
func Encode(w io.Writer, d *Descriptor, format Format) error {
	doc := newDocument(d)
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot encode %q", ErrUnknownFormat, format)
}

// Marshal is Encode into a byte slice.
func Marshal(d *Descriptor, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
