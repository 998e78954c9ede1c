package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v2"
)

// LoadDocument reads a data file and decodes it by extension.
// SQLite databases (.db, .sqlite) are opened from the host path under fsys.Root().
func LoadDocument(fsys billy.Filesystem, path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite":
		return LoadSQLiteDocument(filepath.Join(fsys.Root(), path))
	}
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}
	return DecodeDocument(path, src)
}

// DecodeDocument decodes JSON, YAML or TOML into maps, slices and scalars.
func DecodeDocument(name string, src []byte) (any, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		v, err := oj.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json %s: %w", name, err)
		}
		return v, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(src, &v); err != nil {
			return nil, fmt.Errorf("failed to parse yaml %s: %w", name, err)
		}
		return plain(v), nil
	case ".toml":
		var v map[string]any
		if _, err := toml.Decode(string(src), &v); err != nil {
			return nil, fmt.Errorf("failed to parse toml %s: %w", name, err)
		}
		return plain(v), nil
	default:
		return nil, fmt.Errorf("unsupported data format %q", ext)
	}
}

// plain rewrites decoder-specific containers into map[string]any and []any,
// which is what JSONPath selectors and Stringify understand.
func plain(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = plain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case []map[string]any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = plain(e)
		}
		return s
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = plain(e)
		}
		return s
	default:
		return v
	}
}
