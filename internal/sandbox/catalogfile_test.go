package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalogFormats(t *testing.T) {
	files := map[string]string{
		"extra.yaml": `
primitives:
  - name: Uint8Array
  - name: Image
    code: "({ width: 0 })"
    locus: sandbox
`,
		"extra.toml": `
[[primitives]]
name = "Uint8Array"

[[primitives]]
name = "Image"
code = "({ width: 0 })"
locus = "sandbox"
`,
		"extra.json": `{"primitives": [
  {"name": "Uint8Array"},
  {"name": "Image", "code": "({ width: 0 })", "locus": "sandbox"}
]}`,
	}

	defaults := DefaultCatalog()
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			catalog, err := LoadCatalog(writeCatalog(t, name, content))
			require.NoError(t, err)

			assert.Equal(t, defaults.Len()+1, catalog.Len())

			extra, ok := catalog.Lookup("Uint8Array")
			require.True(t, ok)
			assert.Equal(t, InAmbientScope, extra.Locus)
			assert.Equal(t, "Uint8Array", extra.Code)

			image, ok := catalog.Lookup("Image")
			require.True(t, ok)
			assert.Equal(t, InSandboxScope, image.Locus)
			assert.Equal(t, "({ width: 0 })", image.Code)
		})
	}
}

func TestLoadCatalogOrder(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, "order.yaml", `
primitives:
  - name: Int32Array
  - name: Array
    code: "[].constructor"
    locus: sandbox
`))
	require.NoError(t, err)

	var names []string
	for spec := range catalog.All() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, "Array", names[0])
	assert.Equal(t, "Int32Array", names[len(names)-1])
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadCatalog(writeCatalog(t, "extra.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported catalog format")

	_, err = LoadCatalog(writeCatalog(t, "bad.yaml", "primitives:\n  - name: X\n    locus: upstairs\n"))
	assert.ErrorContains(t, err, "unknown primitive locus")

	_, err = LoadCatalog(writeCatalog(t, "syntax.yaml", "primitives:\n  - name: Broken\n    code: \"(\"\n"))
	assert.ErrorContains(t, err, "failed to compile primitive")
}

func TestCatalogFileInWindow(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, "extra.yaml", `
primitives:
  - name: Uint8Array
  - name: Image
    code: "({ width: 0 })"
    locus: sandbox
`))
	require.NoError(t, err)

	c, _ := newTestContext(t, WithCatalog(catalog))
	assert.Equal(t, true, eval(t, c, "typeof Uint8Array === 'function'").Export())
	assert.Equal(t, true, eval(t, c, "Image.constructor === Object").Export())
}
