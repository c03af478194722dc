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

package normalize

import (
	"regexp"
	"strings"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
)

var (
	// ExchangeRateColumns replace the leading exchange rate columns.
	ExchangeRateColumns = []string{"from", "from_name", "to", "to_name", "rate", "tz"}
	// SectorColumns replace the sector performance periods, most recent first.
	SectorColumns = []string{"RT", "1D", "5D", "1M", "3M", "YTD", "1Y", "3Y", "5Y", "10Y"}
)

// ordinalPrefix matches "1. ", "1a. " and similar label prefixes.
var ordinalPrefix = regexp.MustCompile(`\d+\w?\. `)

func stripOrdinal(s string) string {
	return ordinalPrefix.ReplaceAllString(s, "")
}

// mapColumns renames the columns by f. A column whose new name is already
// taken keeps its original name, so the names stay unique.
func mapColumns(t *table.Table, f func(string) string) {
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		if n := f(c); !seen[n] {
			t.Columns[i] = n
		}
		seen[t.Columns[i]] = true
	}
}

// Simplify replaces the verbose column names of the function's table, like
// "5. adjusted close", with short ones like "adj_close".
func Simplify(function string, t *table.Table) error {
	switch Strategy(function) {
	case ExchangeRate:
		if len(t.Columns) < len(ExchangeRateColumns) {
			return errors.Annotate(ErrShape, "expected at least %d exchange rate columns, got %d",
				len(ExchangeRateColumns), len(t.Columns))
		}
		mapColumns(t, func(c string) string {
			return strings.ReplaceAll(strings.ToLower(stripOrdinal(c)), " ", "_")
		})
		copy(t.Columns, ExchangeRateColumns)
		t.IndexName = "datetime"
	case Sector:
		if len(t.Columns) > len(SectorColumns) {
			return errors.Annotate(ErrShape, "expected at most %d sector periods, got %d",
				len(SectorColumns), len(t.Columns))
		}
		copy(t.Columns, SectorColumns)
	case Batch:
		r := strings.NewReplacer("timestamp", "datetime", "price", "last")
		batchName := func(c string) string { return r.Replace(stripOrdinal(c)) }
		mapColumns(t, batchName)
		t.IndexName = batchName(t.IndexName)
	default:
		r := strings.NewReplacer(" amount", "", "adjusted", "adj", " ", "_")
		mapColumns(t, func(c string) string { return r.Replace(stripOrdinal(c)) })
	}
	return nil
}
