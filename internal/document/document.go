// Package document holds the BOV report as raw JSON and provides validated,
// byte-preserving reads and writes at explicit paths.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// InputError reports a source document that is missing, unreadable, or not
// a JSON object. It is always fatal to a run.
type InputError struct {
	Source string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("document: %s: %v", e.Source, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err (or any error in its chain) is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Document is an immutable JSON object. Every mutation returns a new
// Document; the receiver's bytes are never modified.
type Document struct {
	raw []byte
}

// Parse validates data as a JSON object and takes a private copy of it.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InputError{Source: "<input>", Err: errors.New("not valid JSON")}
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, &InputError{Source: "<input>", Err: errors.New("top-level value is not an object")}
	}
	return &Document{raw: bytes.Clone(data)}, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &InputError{Source: path, Err: errors.New("file not found")}
		}
		return nil, &InputError{Source: path, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		var ie *InputError
		if errors.As(err, &ie) {
			ie.Source = path
		}
		return nil, err
	}
	return doc, nil
}

// Bytes returns a copy of the raw JSON.
func (d *Document) Bytes() []byte {
	return bytes.Clone(d.raw)
}

// Root returns the parsed top-level object.
func (d *Document) Root() gjson.Result {
	return gjson.ParseBytes(d.raw)
}

// Has reports whether a top-level key is present.
func (d *Document) Has(key string) bool {
	return d.Root().Get(escapeKey(key)).Exists()
}

// MissingSections returns the keys from want that are absent at the top
// level, in the order given.
func (d *Document) MissingSections(want []string) []string {
	var missing []string
	for _, k := range want {
		if !d.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Get returns the value at p, or a non-existent Result if any step fails
// to resolve.
func (d *Document) Get(p Path) gjson.Result {
	res, err := d.resolve(p.steps)
	if err != nil {
		return gjson.Result{}
	}
	return res
}

// Lookup is Get with the failing step reported as a *PathError.
func (d *Document) Lookup(p Path) (gjson.Result, error) {
	res, err := d.resolve(p.steps)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			pe.Path = p
		}
		return gjson.Result{}, err
	}
	return res, nil
}

// resolve walks steps from the root, checking at each hop that the current
// value is the right kind of container and that the key or index exists.
func (d *Document) resolve(steps []Step) (gjson.Result, error) {
	cur := d.Root()
	for i, s := range steps {
		next, reason := child(cur, s)
		if reason != "" {
			return gjson.Result{}, &PathError{Path: NewPath(steps...), Step: i, Reason: reason}
		}
		cur = next
	}
	return cur, nil
}

func child(cur gjson.Result, s Step) (gjson.Result, string) {
	if s.isIndex {
		if !cur.IsArray() {
			return gjson.Result{}, "not an array"
		}
		arr := cur.Array()
		if s.index >= len(arr) {
			return gjson.Result{}, fmt.Sprintf("index out of range (len %d)", len(arr))
		}
		return arr[s.index], ""
	}
	if !cur.IsObject() {
		return gjson.Result{}, "not an object"
	}
	next := cur.Get(escapeKey(s.key))
	if !next.Exists() {
		return gjson.Result{}, "key not found"
	}
	return next, ""
}

// CheckSettable validates that p can be assigned without restructuring the
// document: every step but the last must resolve, the parent of a key step
// must be an object, and the parent of an index step must be an array that
// already holds that index.
func (d *Document) CheckSettable(p Path) error {
	if p.Len() == 0 {
		return eris.New("document: empty path")
	}
	parentSteps := p.steps[:len(p.steps)-1]
	parent, err := d.resolve(parentSteps)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) {
			pe.Path = p
		}
		return err
	}
	last := p.Last()
	if last.isIndex {
		if !parent.IsArray() {
			return &PathError{Path: p, Step: len(parentSteps), Reason: "parent is not an array"}
		}
		if n := len(parent.Array()); last.index >= n {
			return &PathError{Path: p, Step: len(parentSteps), Reason: fmt.Sprintf("index out of range (len %d)", n)}
		}
		return nil
	}
	if !parent.IsObject() {
		return &PathError{Path: p, Step: len(parentSteps), Reason: "parent is not an object"}
	}
	return nil
}

// SetRaw returns a copy of d with the JSON text value assigned at p. The
// bytes outside the target value are left exactly as they were.
func (d *Document) SetRaw(p Path, value string) (*Document, error) {
	if err := d.CheckSettable(p); err != nil {
		return nil, err
	}
	if !gjson.Valid(value) {
		return nil, eris.Errorf("document: invalid JSON value for %s", p)
	}
	out, err := sjson.SetRawBytes(bytes.Clone(d.raw), p.gjsonPath(), []byte(value))
	if err != nil {
		return nil, eris.Wrapf(err, "document: set %s", p)
	}
	return &Document{raw: out}, nil
}

// Pretty returns the document indented by two spaces with key order and
// non-ASCII text preserved.
func (d *Document) Pretty() []byte {
	return pretty.PrettyOptions(d.raw, &pretty.Options{
		Width:    80,
		Indent:   "  ",
		SortKeys: false,
	})
}

// Bindings decodes the document into a map for template rendering. Numbers
// are kept as json.Number so large integers print exactly.
func (d *Document) Bindings() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(d.raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "document: decode bindings")
	}
	return out, nil
}

// WriteFile atomically replaces path with the pretty-printed document. The
// content goes to a temp file in the same directory, is synced, and is then
// renamed over the target, so readers see either the old or the new file.
func WriteFile(path string, d *Document) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "document: create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	data := d.Pretty()
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "document: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return eris.Wrap(err, "document: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return eris.Wrap(err, "document: close temp file")
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return eris.Wrap(err, "document: chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return eris.Wrapf(err, "document: replace %s", path)
	}
	return nil
}

// String returns the text at p, or "" when it is missing or null. Scalars
// that are not strings render as their JSON text.
func (d *Document) String(p Path) string {
	res := d.Get(p)
	if !res.Exists() || res.Type == gjson.Null {
		return ""
	}
	if res.Type == gjson.String {
		return res.Str
	}
	if res.IsObject() || res.IsArray() {
		return strings.TrimSpace(res.Raw)
	}
	return res.Raw
}
