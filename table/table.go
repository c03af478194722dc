// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table implements an indexed table of numbers and strings, the
// common representation of all normalized API responses.
package table

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// Kind of a cell value.
type Kind uint8

// Values of Kind.
const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is a single table cell. Fields are exported for binary encoders; use
// the constructors and accessors otherwise.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Number creates a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text creates a string cell.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Missing creates an empty cell.
func Missing() Value { return Value{} }

// Parse creates a numeric cell if s is a number, and a string cell otherwise.
func Parse(s string) Value {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Number(f)
	}
	return Text(s)
}

// IsMissing checks whether the cell is empty.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Float returns the numeric value of the cell, if it is a number.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String representation of the cell, as written into CSV.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) {
			return "NaN"
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	}
	return ""
}

// Interface returns nil, float64 or string, for generic encoders.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Str
	}
	return nil
}

// Row of a table: the index label and one value per column.
type Row struct {
	Index  string
	Values []Value
}

// CSV is an encoding/csv compatible representation of the row, with the index
// in the first column.
func (r Row) CSV() []string {
	res := make([]string, len(r.Values)+1)
	res[0] = r.Index
	for i, v := range r.Values {
		res[i+1] = v.String()
	}
	return res
}

// Table container. Each row is labeled by an index (a date, a currency pair, a
// sector or a ticker, depending on the data), and has a value for each column.
//
// A typical use:
//   t := NewTable("date", "open", "close")
//   t.AddRow(NewRow("2022-01-03", Number(10.0), Number(10.5)))
type Table struct {
	IndexName string // label of the index column, may be empty
	Columns   []string
	Rows      []Row
}

// NewTable creates a new Table with the given index label and column names.
func NewTable(indexName string, columns ...string) *Table {
	return &Table{IndexName: indexName, Columns: columns}
}

// NewRow is a convenience constructor for a Row.
func NewRow(index string, values ...Value) Row {
	return Row{Index: index, Values: values}
}

// AddRow adds one or more rows to the table. Rows shorter than the number of
// columns are padded with missing values.
func (t *Table) AddRow(rows ...Row) {
	for _, r := range rows {
		for len(r.Values) < len(t.Columns) {
			r.Values = append(r.Values, Missing())
		}
		t.Rows = append(t.Rows, r)
	}
}

// NumRows in the table.
func (t *Table) NumRows() int { return len(t.Rows) }

// Header is the index label followed by the column names.
func (t *Table) Header() []string {
	return append([]string{t.IndexName}, t.Columns...)
}

// Index returns the index labels in row order.
func (t *Table) Index() []string {
	res := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		res[i] = r.Index
	}
	return res
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column in row order.
func (t *Table) Column(name string) ([]Value, bool) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	res := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		res[i] = r.Values[j]
	}
	return res, true
}

// Row returns the row with the given index label.
func (t *Table) Row(index string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Index == index {
			return r, true
		}
	}
	return Row{}, false
}

// SetColumns renames all the columns at once.
func (t *Table) SetColumns(names []string) error {
	if len(names) != len(t.Columns) {
		return errors.Reason("expected %d column names, got %d",
			len(t.Columns), len(names))
	}
	t.Columns = append([]string{}, names...)
	return nil
}

// Reverse the order of rows in place.
func (t *Table) Reverse() {
	for i, j := 0, len(t.Rows)-1; i < j; i, j = i+1, j-1 {
		t.Rows[i], t.Rows[j] = t.Rows[j], t.Rows[i]
	}
}

// SortByIndex sorts rows by their index labels in ascending order.
func (t *Table) SortByIndex() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Index < t.Rows[j].Index
	})
}

func countValid(values []Value) int {
	n := 0
	for _, v := range values {
		if !v.IsMissing() {
			n++
		}
	}
	return n
}

// DropSparseRows removes rows with fewer than thresh non-missing values.
func (t *Table) DropSparseRows(thresh int) {
	rows := t.Rows[:0]
	for _, r := range t.Rows {
		if countValid(r.Values) >= thresh {
			rows = append(rows, r)
		}
	}
	t.Rows = rows
}

// DropSparseColumns removes columns with fewer than thresh non-missing values.
func (t *Table) DropSparseColumns(thresh int) {
	var keep []int
	for j := range t.Columns {
		n := 0
		for _, r := range t.Rows {
			if !r.Values[j].IsMissing() {
				n++
			}
		}
		if n >= thresh {
			keep = append(keep, j)
		}
	}
	cols := make([]string, len(keep))
	for i, j := range keep {
		cols[i] = t.Columns[j]
	}
	t.Columns = cols
	for k, r := range t.Rows {
		values := make([]Value, len(keep))
		for i, j := range keep {
			values[i] = r.Values[j]
		}
		t.Rows[k].Values = values
	}
}

// FillMissing replaces every missing value with v.
func (t *Table) FillMissing(v Value) {
	for _, r := range t.Rows {
		for j := range r.Values {
			if r.Values[j].IsMissing() {
				r.Values[j] = v
			}
		}
	}
}

// Map replaces every value with f(value). It stops at the first error.
func (t *Table) Map(f func(Value) (Value, error)) error {
	for _, r := range t.Rows {
		for j, v := range r.Values {
			v2, err := f(v)
			if err != nil {
				return errors.Annotate(err, "row '%s', column '%s'", r.Index, t.Columns[j])
			}
			r.Values[j] = v2
		}
	}
	return nil
}

// Records is the column-oriented view of the table, {column: {index: value}},
// with values as returned by Value.Interface.
func (t *Table) Records() map[string]map[string]any {
	res := make(map[string]map[string]any, len(t.Columns))
	for j, c := range t.Columns {
		col := make(map[string]any, len(t.Rows))
		for _, r := range t.Rows {
			col[r.Index] = r.Values[j].Interface()
		}
		res[c] = col
	}
	return res
}
