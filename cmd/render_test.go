package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateDir(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bov.html"), []byte(body), 0o644))
	return dir
}

func TestRunRender_DefaultOutputPath(t *testing.T) {
	c := testConfig(t)
	useConfig(t, c, nil)
	dir := templateDir(t, `<h1>{{.cover.address_street}}</h1>`)
	path := writeDoc(t, testDoc)

	var out, errOut bytes.Buffer
	opts := renderOptions{templateDir: dir, templateName: "bov.html"}
	require.NoError(t, runRender(&out, &errOut, path, opts))

	outPath := filepath.Join(c.Render.OutputDir, "2341-beach.html")
	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "<h1>2341 Beach Ave</h1>", string(html))

	assert.Contains(t, out.String(), "Loading data from: "+path)
	assert.Contains(t, out.String(), "BOV rendered successfully!")
	assert.Contains(t, out.String(), "  Output: "+outPath)
	assert.Contains(t, out.String(), "  Size: 23 bytes (0.0 KB)")

	// testDoc lacks most of the sections the stock template reads.
	assert.True(t, strings.HasPrefix(errOut.String(), "WARNING: Missing keys in data file: team, property"))
	assert.Contains(t, errOut.String(), "The template may not render correctly.")
}

func TestRunRender_ExplicitOutput(t *testing.T) {
	useConfig(t, testConfig(t), nil)
	dir := templateDir(t, `ok`)
	path := writeDoc(t, `{"meta":{}}`)
	outPath := filepath.Join(t.TempDir(), "nested", "page.html")

	var out bytes.Buffer
	require.NoError(t, runRender(&out, &bytes.Buffer{}, path, renderOptions{output: outPath, templateDir: dir, templateName: "bov.html"}))

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(html))
}

func TestRunRender_MissingTemplate(t *testing.T) {
	useConfig(t, testConfig(t), nil)
	path := writeDoc(t, testDoc)

	err := runRender(&bytes.Buffer{}, &bytes.Buffer{}, path, renderOptions{templateDir: templateDir(t, "x"), templateName: "other.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `template "other.html" not found`)
}

func TestRunRender_MissingDataFile(t *testing.T) {
	useConfig(t, testConfig(t), nil)

	err := runRender(&bytes.Buffer{}, &bytes.Buffer{}, filepath.Join(t.TempDir(), "none.json"), renderOptions{templateDir: templateDir(t, "x"), templateName: "bov.html"})
	require.Error(t, err)
}

func TestRenderOptions_WithDefaults(t *testing.T) {
	useConfig(t, testConfig(t), nil)

	got := renderOptions{}.withDefaults()
	assert.Equal(t, "templates", got.templateDir)
	assert.Equal(t, "bov.html", got.templateName)

	got = renderOptions{templateDir: "custom", templateName: "alt.html"}.withDefaults()
	assert.Equal(t, "custom", got.templateDir)
	assert.Equal(t, "alt.html", got.templateName)
}

func TestRenderCommand_Flags(t *testing.T) {
	assert.Equal(t, "o", renderCmd.Flags().Lookup("output").Shorthand)
	assert.Equal(t, "t", renderCmd.Flags().Lookup("template").Shorthand)
	assert.NotNil(t, renderCmd.Flags().Lookup("template-name"))
}

func TestStockTemplateRenders(t *testing.T) {
	useConfig(t, testConfig(t), nil)
	path := writeDoc(t, `{
		"meta": {"repo_name": "stock", "title": "2341 Beach"},
		"cover": {"address_street": "2341 Beach Ave", "address_city": "Venice", "address_state": "CA", "address_zip": "90291", "price": 4250000},
		"coordinates": {"subject": [33.985, -118.4695]},
		"sale_comps": {"comps": [{"address": "10 Ocean Ave", "price": 3900000, "coords": [33.98, -118.47]}]},
		"active_comps": {"comps": [{"address": "14 Ocean Ave"}]},
		"rent_comps": {"groups": [{"name": "1BR", "comps": [{"address": "5 Pier St", "rent": 2950}]}]},
		"disclaimer": "Estimates only."
	}`)
	outPath := filepath.Join(t.TempDir(), "stock.html")

	require.NoError(t, runRender(&bytes.Buffer{}, &bytes.Buffer{}, path, renderOptions{
		output:       outPath,
		templateDir:  filepath.Join("..", "templates"),
		templateName: "bov.html",
	}))

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "<title>2341 Beach</title>")
	assert.Contains(t, page, "$4,250,000")
	assert.Contains(t, page, "$3,900,000")
	assert.Contains(t, page, "$2,950")
	assert.Contains(t, page, "Estimates only.")
	assert.Contains(t, page, "[33.985,-118.4695]")
}
