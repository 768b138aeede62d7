package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FuncMap returns the helpers available to templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"number":  formatNumber,
		"money":   formatMoney,
		"percent": formatPercent,
		"default": defaultValue,
		"json":    toJSON,
		"join":    join,
	}
}

// toFloat accepts the number shapes template bindings carry: json.Number
// from the document, Go numerics, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}

// formatNumber groups thousands. Whole values print without decimals;
// others print with two. Non-numeric input is returned as text.
func formatNumber(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	if isIntegral(f) {
		return printer.Sprintf("%d", int64(f))
	}
	return printer.Sprintf("%.2f", f)
}

// formatMoney renders a dollar amount, e.g. $1,250,000.
func formatMoney(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	return sign + "$" + formatNumber(f)
}

// formatPercent renders v with one decimal and a percent sign. v is
// already a percentage (5.26 prints 5.3%).
func formatPercent(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprint(v)
	}
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

// defaultValue returns v unless it is nil, an empty string or an empty
// collection. Used as {{.x | default "n/a"}}.
func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		if rv.Len() == 0 {
			return def
		}
	}
	return v
}

// toJSON embeds v in a script block, e.g. map marker coordinates.
func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

// join concatenates a list of values with sep.
func join(sep string, v any) string {
	items, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprint(it))
	}
	return strings.Join(parts, sep)
}
