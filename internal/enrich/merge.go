package enrich

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bov-engine/internal/document"
)

// Merge returns a new document with the coordinates of every resolved
// outcome written at its entry path as [latitude, longitude]. Unresolved
// outcomes are skipped and their locations left exactly as they were, as
// are outcomes whose entry was marked Unwritable at extraction.
//
// Every remaining target path is validated before anything is written. If
// one of them no longer resolves against doc, Merge returns an error and no
// document, so callers never persist a half-merged result. doc itself is
// never modified.
func Merge(doc *document.Document, outcomes []Outcome) (*document.Document, error) {
	for _, o := range Unwritten(outcomes) {
		zap.L().Warn("merge: coordinates not written",
			zap.String("label", o.Entry.Label),
			zap.String("reason", o.Entry.Unwritable),
		)
	}

	for _, o := range outcomes {
		if !writable(o) {
			continue
		}
		if err := doc.CheckSettable(o.Entry.Path); err != nil {
			return nil, eris.Wrapf(err, "merge: %s", o.Entry.Label)
		}
	}

	out := doc
	for _, o := range outcomes {
		if !writable(o) {
			continue
		}
		next, err := out.SetRaw(o.Entry.Path, o.Coordinates.JSON())
		if err != nil {
			return nil, eris.Wrapf(err, "merge: %s", o.Entry.Label)
		}
		out = next
	}

	if out == doc {
		// Nothing to write; hand back a distinct instance all the same.
		var err error
		if out, err = document.Parse(doc.Bytes()); err != nil {
			return nil, eris.Wrap(err, "merge: copy document")
		}
	}
	return out, nil
}

// Unwritten returns the resolved outcomes Merge leaves out because their
// entry has no place to be written.
func Unwritten(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Resolved() && o.Entry.Unwritable != "" {
			out = append(out, o)
		}
	}
	return out
}

func writable(o Outcome) bool {
	return o.Resolved() && o.Entry.Unwritable == ""
}
