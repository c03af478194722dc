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

package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

func (t *Table) rowLimit(p Params) int {
	if p.Rows > 0 && p.Rows < len(t.Rows) {
		return p.Rows
	}
	return len(t.Rows)
}

// WriteCSV writes the table to w in CSV format, the index being the first
// column.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader {
		if err := cw.Write(t.Header()); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for _, r := range t.Rows[:t.rowLimit(p)] {
		if err := cw.Write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row '%s'", r.Index)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths := make([]int, len(t.Columns)+1)
	update := func(row []string) error {
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i, s := range row {
			n := len([]rune(s))
			if p.MaxColWidth > 0 && n > p.MaxColWidth {
				n = p.MaxColWidth
			}
			if widths[i] < n {
				widths[i] = n
			}
		}
		return nil
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if r := []rune(s); len(r) > widths[i] {
				trimmed[i] = string(r[:widths[i]-2]) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	rows := t.Rows[:t.rowLimit(p)]
	if !p.NoHeader {
		if err := update(t.Header()); err != nil {
			return errors.Annotate(err, "failed to update header widths")
		}
	}
	for _, r := range rows {
		if err := update(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to update widths for row '%s'", r.Index)
		}
	}

	if !p.NoHeader {
		if err := write(t.Header()); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		if err := write(dashes); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for _, r := range rows {
		if err := write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row '%s'", r.Index)
		}
	}
	return nil
}

// WriteJSON writes the table as a JSON object {column: {index: value}}.
func (t *Table) WriteJSON(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(t.Records()); err != nil {
		return errors.Annotate(err, "failed to encode JSON")
	}
	return nil
}

// WriteHTML writes the table as an HTML <table> element.
func (t *Table) WriteHTML(w io.Writer) error {
	var b strings.Builder
	cell := func(tag, s string) {
		fmt.Fprintf(&b, "      <%s>%s</%s>\n", tag, html.EscapeString(s), tag)
	}
	b.WriteString("<table border=\"1\" class=\"dataframe\">\n  <thead>\n    <tr>\n")
	for _, h := range t.Header() {
		cell("th", h)
	}
	b.WriteString("    </tr>\n  </thead>\n  <tbody>\n")
	for _, r := range t.Rows {
		b.WriteString("    <tr>\n")
		cell("th", r.Index)
		for _, v := range r.Values {
			cell("td", v.String())
		}
		b.WriteString("    </tr>\n")
	}
	b.WriteString("  </tbody>\n</table>\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Annotate(err, "failed to write HTML")
	}
	return nil
}
