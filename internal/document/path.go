package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one hop of a Path: either an object key or an array index.
type Step struct {
	key     string
	index   int
	isIndex bool
}

// Key returns a step that selects an object member.
func Key(k string) Step { return Step{key: k} }

// Index returns a step that selects an array element. It panics on a
// negative index.
func Index(i int) Step {
	if i < 0 {
		panic(fmt.Sprintf("document: negative index %d", i))
	}
	return Step{index: i, isIndex: true}
}

// IsIndex reports whether the step addresses an array element.
func (s Step) IsIndex() bool { return s.isIndex }

// Key returns the object key for key steps, "" otherwise.
func (s Step) Key() string { return s.key }

// Index returns the array index for index steps, 0 otherwise.
func (s Step) Index() int { return s.index }

func (s Step) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// Path identifies one location inside a Document as an ordered list of
// steps. A Path is immutable: the step slice is never exposed.
type Path struct {
	steps []Step
}

// NewPath builds a Path from the given steps.
func NewPath(steps ...Step) Path {
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return Path{steps: cp}
}

// Len returns the number of steps.
func (p Path) Len() int { return len(p.steps) }

// Steps returns a copy of the steps.
func (p Path) Steps() []Step {
	cp := make([]Step, len(p.steps))
	copy(cp, p.steps)
	return cp
}

// Last returns the final step. It panics on an empty path.
func (p Path) Last() Step { return p.steps[len(p.steps)-1] }

// Parent returns the path without its final step.
func (p Path) Parent() Path {
	if len(p.steps) == 0 {
		return Path{}
	}
	return NewPath(p.steps[:len(p.steps)-1]...)
}

// Append returns a new path with extra steps added; p is left untouched.
func (p Path) Append(steps ...Step) Path {
	cp := make([]Step, 0, len(p.steps)+len(steps))
	cp = append(cp, p.steps...)
	cp = append(cp, steps...)
	return Path{steps: cp}
}

// Equal reports whether both paths have the same steps.
func (p Path) Equal(o Path) bool {
	if len(p.steps) != len(o.steps) {
		return false
	}
	for i := range p.steps {
		if p.steps[i] != o.steps[i] {
			return false
		}
	}
	return true
}

// String renders the path as `sale_comps.comps[0].coords`.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.steps {
		if !s.isIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// MarshalText lets paths appear as plain strings in JSON and YAML output.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// gjsonPath renders the path in gjson/sjson syntax with every key escaped.
func (p Path) gjsonPath() string {
	parts := make([]string, len(p.steps))
	for i, s := range p.steps {
		if s.isIndex {
			parts[i] = strconv.Itoa(s.index)
			continue
		}
		parts[i] = escapeKey(s.key)
	}
	return strings.Join(parts, ".")
}

// escapeKey backslash-escapes characters that gjson and sjson treat as path
// syntax.
func escapeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PathError reports a step that does not resolve against a document.
type PathError struct {
	Path   Path
	Step   int
	Reason string
}

func (e *PathError) Error() string {
	at := "<root>"
	if e.Step > 0 {
		at = NewPath(e.Path.steps[:e.Step]...).String()
	}
	return fmt.Sprintf("document: path %s: step %d (%s) after %s: %s",
		e.Path, e.Step, e.Path.steps[e.Step], at, e.Reason)
}
