package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format formats data as a table. Values it cannot lay out fall back to
// JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}
	switch t := data.(type) {
	case *Table:
		return t.render(w, f.NoHeaders)
	case Table:
		return t.render(w, f.NoHeaders)
	}

	table, err := toTable(reflect.ValueOf(data), f.Wide)
	if err != nil {
		return (&JSONFormatter{}).Format(w, data)
	}
	return table.render(w, f.NoHeaders)
}

func toTable(v reflect.Value, wide bool) (*Table, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return recordTable(v, wide), nil
	case reflect.Map:
		return mapTable(v), nil
	case reflect.Slice, reflect.Array:
		return listTable(v, wide), nil
	}
	return nil, fmt.Errorf("unsupported type: %s", v.Kind())
}

type column struct {
	name  string
	index int
}

func columns(t reflect.Type, wide bool) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (tag == "wide" && !wide) {
			continue
		}
		name := field.Name
		if j, _, _ := strings.Cut(field.Tag.Get("json"), ","); j == "-" {
			continue
		} else if j != "" {
			name = j
		}
		cols = append(cols, column{name: name, index: i})
	}
	return cols
}

// recordTable lays out one struct as FIELD/VALUE rows.
func recordTable(v reflect.Value, wide bool) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, c := range columns(v.Type(), wide) {
		t.AddRow(c.name, formatValue(v.Field(c.index)))
	}
	return t
}

// mapTable lays out a map as KEY/VALUE rows sorted by key.
func mapTable(v reflect.Value) *Table {
	t := &Table{Headers: []string{"KEY", "VALUE"}}
	iter := v.MapRange()
	for iter.Next() {
		t.AddRow(formatValue(iter.Key()), formatValue(iter.Value()))
	}
	sort.Slice(t.Rows, func(i, j int) bool { return t.Rows[i][0] < t.Rows[j][0] })
	return t
}

// listTable lays out a slice with one row per element. Struct elements
// get one column per field.
func listTable(v reflect.Value, wide bool) *Table {
	elem := v.Type().Elem()
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		t := &Table{Headers: []string{"VALUE"}}
		for i := 0; i < v.Len(); i++ {
			t.AddRow(formatValue(v.Index(i)))
		}
		return t
	}

	cols := columns(elem, wide)
	t := &Table{}
	for _, c := range cols {
		t.Headers = append(t.Headers, strings.ToUpper(c.name))
	}
	for i := 0; i < v.Len(); i++ {
		row := v.Index(i)
		for row.Kind() == reflect.Ptr {
			row = row.Elem()
		}
		cells := make([]string, 0, len(cols))
		for _, c := range cols {
			if !row.IsValid() {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, formatValue(row.Field(c.index)))
		}
		t.AddRow(cells...)
	}
	return t
}

var timeType = reflect.TypeOf(time.Time{})

// formatValue renders one cell. Empty values print as "-".
func formatValue(v reflect.Value) string {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "-"
	}
	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.RFC3339)
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}

	switch v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "-"
		}
		return v.String()
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if (v.Kind() != reflect.Struct) && v.Len() == 0 {
			return "-"
		}
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// Table is pre-built tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) render(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
