package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// CatalogFile is the on-disk form of extra window primitives. Entries whose
// name matches a default primitive replace it in place; the rest are
// appended in file order.
type CatalogFile struct {
	Primitives []CatalogEntry `json:"primitives" yaml:"primitives" toml:"primitives"`
}

// CatalogEntry is one primitive in a catalog file. Code defaults to the
// name, Locus to "ambient".
type CatalogEntry struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty" toml:"code,omitempty"`
	Locus string `json:"locus,omitempty" yaml:"locus,omitempty" toml:"locus,omitempty"`
}

// ParseLocus parses "sandbox" or "ambient"
func ParseLocus(s string) (Locus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ambient":
		return InAmbientScope, nil
	case "sandbox":
		return InSandboxScope, nil
	default:
		return 0, fmt.Errorf("unknown primitive locus %q", s)
	}
}

// LoadCatalog reads a YAML, TOML or JSON catalog file and merges it over the
// default primitives.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file CatalogFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".json":
		err = sonic.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return file.Catalog()
}

// Catalog merges the file's entries over the default primitives.
func (f CatalogFile) Catalog() (*Catalog, error) {
	specs := defaultPrimitives()
	index := make(map[string]int, len(specs))
	for i, spec := range specs {
		index[spec.Name] = i
	}

	for _, entry := range f.Primitives {
		locus, err := ParseLocus(entry.Locus)
		if err != nil {
			return nil, fmt.Errorf("primitive %q: %w", entry.Name, err)
		}
		spec := PrimitiveFrom(entry.Name, entry.Code, locus)
		if i, ok := index[entry.Name]; ok {
			specs[i] = spec
			continue
		}
		index[entry.Name] = len(specs)
		specs = append(specs, spec)
	}

	return NewCatalog(specs...)
}
