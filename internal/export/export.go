// Package export writes geocode outcomes to GeoJSON, XLSX or YAML files.
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bov-engine/internal/enrich"
)

// Format names an export file type.
type Format string

// Supported formats.
const (
	FormatGeoJSON Format = "geojson"
	FormatXLSX    Format = "xlsx"
	FormatYAML    Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", eris.Errorf("export: unsupported file type %q (want .geojson, .json, .xlsx, .yaml)", filepath.Ext(path))
}

// WriteFile exports outcomes to path in the format its extension names.
func WriteFile(path string, outcomes []enrich.Outcome) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create dir for %s", path)
		}
	}

	if format == FormatXLSX {
		f, err := Workbook(outcomes)
		if err != nil {
			return err
		}
		return eris.Wrapf(f.Save(path), "export: save %s", path)
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if format == FormatGeoJSON {
		err = GeoJSON(out, outcomes)
	} else {
		err = YAML(out, outcomes)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "export: close %s", path)
	}
	return err
}

// GeoJSON writes resolved outcomes as a FeatureCollection of points.
// Unresolved outcomes have no geometry and are left out.
func GeoJSON(w io.Writer, outcomes []enrich.Outcome) error {
	fc := geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, o := range outcomes {
		if !o.Resolved() {
			continue
		}
		// GeoJSON positions are longitude first.
		pt := geom.NewPointFlat(geom.XY, []float64{o.Coordinates.Longitude, o.Coordinates.Latitude})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       o.Entry.Label,
			Geometry: pt,
			Properties: map[string]any{
				"label":   o.Entry.Label,
				"address": o.Entry.Address,
				"path":    o.Entry.Path.String(),
				"source":  o.Source,
				"quality": o.Quality,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	_, err = w.Write(append(data, '\n'))
	return eris.Wrap(err, "export: write geojson")
}

var sheetHeader = []string{"Label", "Address", "Path", "Status", "Latitude", "Longitude", "Source", "Quality", "Error"}

// Workbook builds a single-sheet workbook with one row per outcome.
func Workbook(outcomes []enrich.Outcome) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Outcomes")
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range sheetHeader {
		header.AddCell().SetString(h)
	}

	for _, o := range outcomes {
		row := sheet.AddRow()
		row.AddCell().SetString(o.Entry.Label)
		row.AddCell().SetString(o.Entry.Address)
		row.AddCell().SetString(o.Entry.Path.String())
		row.AddCell().SetString(string(o.Status))
		if o.Resolved() {
			row.AddCell().SetFloat(o.Coordinates.Latitude)
			row.AddCell().SetFloat(o.Coordinates.Longitude)
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(o.Source)
		row.AddCell().SetString(o.Quality)
		row.AddCell().SetString(o.Error)
	}
	return f, nil
}

type yamlReport struct {
	Summary  enrich.Summary   `yaml:"summary"`
	Outcomes []enrich.Outcome `yaml:"outcomes"`
}

// YAML writes the summary followed by every outcome.
func YAML(w io.Writer, outcomes []enrich.Outcome) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlReport{Summary: enrich.Summarize(outcomes), Outcomes: outcomes}); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: flush yaml")
}
