// Package render turns a BOV document into an HTML page using templates
// loaded from a directory.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bov-engine/internal/document"
)

// DefaultOutputName is used when the document has no meta.repo_name.
const DefaultOutputName = "bov-output"

// RequiredSections are the top-level keys the stock template reads. A
// missing section is reported but never stops rendering.
var RequiredSections = []string{
	"meta", "cover", "team", "property", "building_systems",
	"regulatory", "transaction_history", "coordinates",
	"sale_comps", "active_comps", "rent_comps", "financials",
	"agents", "office", "disclaimer",
}

var repoNamePath = document.NewPath(document.Key("meta"), document.Key("repo_name"))

// Renderer executes templates from a directory. Templates are parsed on
// every call so edits show up without a restart.
type Renderer struct {
	dir   string
	funcs template.FuncMap
}

// New returns a Renderer reading *.html templates from dir.
func New(dir string) *Renderer {
	return &Renderer{dir: dir, funcs: FuncMap()}
}

// Dir returns the template directory.
func (r *Renderer) Dir() string { return r.dir }

// Render executes the template named templateID with bindings as its data.
// Every *.html file in the directory is parsed, so templates may include
// each other with {{template "name.html" .}}.
func (r *Renderer) Render(templateID string, bindings map[string]any) ([]byte, error) {
	info, err := os.Stat(r.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "render: template dir %s", r.dir)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("render: %s is not a directory", r.dir)
	}

	tmpl, err := template.New("").Funcs(r.funcs).ParseGlob(filepath.Join(r.dir, "*.html"))
	if err != nil {
		return nil, eris.Wrapf(err, "render: parse templates in %s", r.dir)
	}
	if tmpl.Lookup(templateID) == nil {
		return nil, eris.Errorf("render: template %q not found in %s", templateID, r.dir)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, templateID, bindings); err != nil {
		return nil, eris.Wrapf(err, "render: execute %s", templateID)
	}
	return buf.Bytes(), nil
}

// Document renders doc with templateID.
func (r *Renderer) Document(templateID string, doc *document.Document) ([]byte, error) {
	bindings, err := doc.Bindings()
	if err != nil {
		return nil, err
	}
	return r.Render(templateID, bindings)
}

// MissingSections lists the RequiredSections doc lacks, in order.
func MissingSections(doc *document.Document) []string {
	return doc.MissingSections(RequiredSections)
}

// OutputPath returns <outputDir>/<meta.repo_name>.html, falling back to
// DefaultOutputName when the name is absent or blank.
func OutputPath(doc *document.Document, outputDir string) string {
	name := strings.TrimSpace(doc.String(repoNamePath))
	if name == "" {
		name = DefaultOutputName
	}
	return filepath.Join(outputDir, name+".html")
}

// WriteOutput writes html to path, creating parent directories. It returns
// the number of bytes written.
func WriteOutput(path string, html []byte) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "render: create output dir for %s", path)
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return 0, eris.Wrapf(err, "render: write %s", path)
	}
	return int64(len(html)), nil
}

// SizeLine formats a file size as "Size: 12,345 bytes (12.1 KB)".
func SizeLine(n int64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("Size: %d bytes (%s KB)", n, fmt.Sprintf("%.1f", float64(n)/1024))
}
