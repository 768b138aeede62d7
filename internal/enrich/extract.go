// Package enrich finds the address-bearing fields of a BOV document,
// resolves them to coordinates one at a time, and merges the results back
// at the exact paths they came from.
package enrich

import (
	"fmt"

	"github.com/sells-group/bov-engine/internal/document"
)

// AddressEntry is one address to resolve and the path its coordinates go to.
// Unwritable is set when Path has no parent container in the document the
// entry was extracted from; such entries are still resolved and reported,
// but Merge leaves them out.
type AddressEntry struct {
	Label      string        `json:"label" yaml:"label"`
	Address    string        `json:"address" yaml:"address"`
	Path       document.Path `json:"path" yaml:"path"`
	Unwritable string        `json:"unwritable,omitempty" yaml:"unwritable,omitempty"`
}

// Sections the extractor reads. Absent sections contribute no entries.
var Sections = []string{"cover", "coordinates", "sale_comps", "active_comps", "rent_comps"}

var (
	coverPath = document.NewPath(document.Key("cover"))

	subjectTarget = document.NewPath(document.Key("coordinates"), document.Key("subject"))
	saleComps     = document.NewPath(document.Key("sale_comps"), document.Key("comps"))
	activeComps   = document.NewPath(document.Key("active_comps"), document.Key("comps"))
	rentGroups    = document.NewPath(document.Key("rent_comps"), document.Key("groups"))
)

// Extract walks doc and returns every address it knows about, in a fixed
// order: subject, sale comps, active comps, then rent comps group by group.
//
// Comparable addresses are built from the comp's own street plus the
// subject's city, state and zip. Comps are assumed to share the subject's
// market; their own city fields, when present, are ignored. List elements
// that are not objects are not comps and produce no entry.
func Extract(doc *document.Document) []AddressEntry {
	street := doc.String(coverPath.Append(document.Key("address_street")))
	city := doc.String(coverPath.Append(document.Key("address_city")))
	state := doc.String(coverPath.Append(document.Key("address_state")))
	zip := doc.String(coverPath.Append(document.Key("address_zip")))
	cityStateZip := fmt.Sprintf("%s, %s %s", city, state, zip)

	entries := []AddressEntry{newEntry(doc, "subject", fmt.Sprintf("%s, %s", street, cityStateZip), subjectTarget)}

	addComp := func(label string, comp document.Path) {
		if !doc.Get(comp).IsObject() {
			return
		}
		address := fmt.Sprintf("%s, %s", doc.String(comp.Append(document.Key("address"))), cityStateZip)
		entries = append(entries, newEntry(doc, label, address, comp.Append(document.Key("coords"))))
	}

	for i := range listLen(doc, saleComps) {
		addComp(fmt.Sprintf("sale_comp_%d", i), saleComps.Append(document.Index(i)))
	}

	for i := range listLen(doc, activeComps) {
		addComp(fmt.Sprintf("active_comp_%d", i), activeComps.Append(document.Index(i)))
	}

	for g := range listLen(doc, rentGroups) {
		comps := rentGroups.Append(document.Index(g), document.Key("comps"))
		for c := range listLen(doc, comps) {
			addComp(fmt.Sprintf("rent_comp_%d_%d", g, c), comps.Append(document.Index(c)))
		}
	}

	return entries
}

// newEntry checks target against doc and records why it cannot be written.
func newEntry(doc *document.Document, label, address string, target document.Path) AddressEntry {
	e := AddressEntry{Label: label, Address: address, Path: target}
	if err := doc.CheckSettable(target); err != nil {
		e.Unwritable = err.Error()
	}
	return e
}

// listLen returns the length of the array at p, or 0 when p is missing or
// not an array.
func listLen(doc *document.Document, p document.Path) int {
	res := doc.Get(p)
	if !res.IsArray() {
		return 0
	}
	return len(res.Array())
}
