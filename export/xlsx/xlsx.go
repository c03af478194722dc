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

// Package xlsx registers the "xlsx" spreadsheet export format. Link it in with
// a blank import:
//
//   import _ "github.com/stockparfait/alphavantage/export/xlsx"
package xlsx

import (
	"strings"

	"github.com/stockparfait/alphavantage/export"
	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/xuri/excelize/v2"
)

// Format name of the spreadsheet export.
const Format = "xlsx"

// defaultSheet is the only sheet of a new excelize file.
const defaultSheet = "Sheet1"

func init() {
	export.Register(Format, Write)
}

// SheetName makes a valid sheet name out of a function name: at most 31
// characters and none of []:*?/\.
func SheetName(name string) string {
	r := strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_",
		"/", "_", `\`, "_")
	s := r.Replace(name)
	if len([]rune(s)) > 31 {
		s = string([]rune(s)[:31])
	}
	if s == "" {
		s = defaultSheet
	}
	return s
}

// Write the table into a single sheet named after the function, the header
// in the first row and the index in the first column.
func Write(path, name string, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(name)
	if sheet != defaultSheet {
		f.SetSheetName(defaultSheet, sheet)
	}
	header := make([]any, 0, len(t.Columns)+1)
	for _, h := range t.Header() {
		header = append(header, h)
	}
	rows := [][]any{header}
	for _, r := range t.Rows {
		row := make([]any, 0, len(r.Values)+1)
		row = append(row, r.Index)
		for _, v := range r.Values {
			row = append(row, v.Interface())
		}
		rows = append(rows, row)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Annotate(err, "invalid row %d", i+1)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return errors.Annotate(err, "failed to write row %d", i+1)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Annotate(err, "failed to save '%s'", path)
	}
	return nil
}
