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

// Package normalize converts JSON responses of the API into tables, and
// optionally shortens their verbose column names.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrShape is wrapped by errors about responses not matching the expected
// structure.
var ErrShape = errors.Reason("unexpected response shape")

// MetaPrefix starts the keys of response metadata objects.
const MetaPrefix = "Meta Data"

// Function names with dedicated response shapes.
const (
	ExchangeRateFunction = "CURRENCY_EXCHANGE_RATE"
	SectorFunction       = "SECTOR"
	BatchFunction        = "BATCH_STOCK_QUOTES"
)

// Kind of a response shape.
type Kind int

// Values of Kind.
const (
	TimeSeries Kind = iota
	ExchangeRate
	Sector
	Batch
)

func (k Kind) String() string {
	switch k {
	case ExchangeRate:
		return "exchange rate"
	case Sector:
		return "sector performance"
	case Batch:
		return "batch quotes"
	}
	return "time series"
}

// Strategy selects the response shape of the canonical function name.
func Strategy(function string) Kind {
	switch strings.ToUpper(function) {
	case ExchangeRateFunction:
		return ExchangeRate
	case SectorFunction:
		return Sector
	case BatchFunction:
		return Batch
	}
	return TimeSeries
}

// Normalize the JSON response of the function into a table.
func Normalize(function string, raw map[string]any) (*table.Table, error) {
	if len(raw) == 0 {
		return nil, errors.Annotate(ErrShape, "empty response for %s", function)
	}
	var t *table.Table
	var err error
	switch Strategy(function) {
	case ExchangeRate:
		t, err = exchangeRate(raw)
	case Sector:
		t, err = sectors(raw)
	case Batch:
		t, err = batch(raw)
	default:
		t, err = timeSeries(raw)
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to normalize %s response", function)
	}
	return t, nil
}

// remoteMessage extracts an explanation the API sends instead of data.
func remoteMessage(raw map[string]any) string {
	for _, k := range []string{"Error Message", "Note", "Information"} {
		if s, ok := raw[k].(string); ok {
			return fmt.Sprintf(" (%s: %s)", k, s)
		}
	}
	return ""
}

func dataKeys(raw map[string]any) []string {
	var keys []string
	for k := range raw {
		if !strings.HasPrefix(k, MetaPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// dataKey is the single key of raw carrying data rather than metadata.
func dataKey(raw map[string]any) (string, error) {
	keys := dataKeys(raw)
	switch len(keys) {
	case 0:
		return "", errors.Annotate(ErrShape, "no data key in response")
	case 1:
		return keys[0], nil
	}
	return "", errors.Annotate(ErrShape, "expected exactly one data key, got: %s%s",
		strings.Join(keys, ", "), remoteMessage(raw))
}

// ordinal splits a label like "1b. open (USD)" into its ordinal number and
// the rest. Labels without an ordinal get -1.
func ordinal(label string) (int, string) {
	i := 0
	for i < len(label) && label[i] >= '0' && label[i] <= '9' {
		i++
	}
	if i == 0 {
		return -1, label
	}
	n, err := strconv.Atoi(label[:i])
	if err != nil {
		return -1, label
	}
	return n, label[i:]
}

// sortLabels orders labels by their ordinal prefix, then alphabetically.
func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		ni, ri := ordinal(labels[i])
		nj, rj := ordinal(labels[j])
		if ni != nj {
			return ni < nj
		}
		return ri < rj
	})
}

// value converts a JSON scalar into a table cell, parsing numeric strings.
func value(jv any) table.Value {
	switch x := jv.(type) {
	case nil:
		return table.Missing()
	case string:
		return table.Parse(x)
	case float64:
		return table.Number(x)
	case bool:
		return table.Text(strconv.FormatBool(x))
	}
	return table.Text(fmt.Sprint(jv))
}

// objectTable builds a table from {index: {column: value}} rows. Columns are
// the union of all the row keys.
func objectTable(indexName string, rows map[string]map[string]any, conv func(any) table.Value) *table.Table {
	colSet := make(map[string]struct{})
	for _, r := range rows {
		for c := range r {
			colSet[c] = struct{}{}
		}
	}
	cols := maps.Keys(colSet)
	sortLabels(cols)
	t := table.NewTable(indexName, cols...)
	for _, idx := range maps.Keys(rows) {
		r := rows[idx]
		row := table.NewRow(idx)
		for _, c := range cols {
			if jv, ok := r[c]; ok {
				row.Values = append(row.Values, conv(jv))
			} else {
				row.Values = append(row.Values, table.Missing())
			}
		}
		t.AddRow(row)
	}
	t.SortByIndex()
	return t
}

func asObject(jv any, what string) (map[string]any, error) {
	obj, ok := jv.(map[string]any)
	if !ok {
		return nil, errors.Annotate(ErrShape, "%s is not an object: %v", what, jv)
	}
	return obj, nil
}

func timeSeries(raw map[string]any) (*table.Table, error) {
	key, err := dataKey(raw)
	if err != nil {
		return nil, err
	}
	series, ok := raw[key].(map[string]any)
	if !ok {
		return nil, errors.Annotate(ErrShape, "'%s' is not a time series%s",
			key, remoteMessage(raw))
	}
	rows := make(map[string]map[string]any, len(series))
	for date, jv := range series {
		r, err := asObject(jv, fmt.Sprintf("entry '%s'", date))
		if err != nil {
			return nil, err
		}
		rows[date] = r
	}
	return objectTable("date", rows, value), nil
}

func exchangeRate(raw map[string]any) (*table.Table, error) {
	obj := raw
	if keys := dataKeys(raw); len(keys) == 1 {
		if o, ok := raw[keys[0]].(map[string]any); ok {
			obj = o
		}
	}
	refreshed := ""
	for k := range obj {
		if _, rest := ordinal(k); strings.HasSuffix(rest, "Last Refreshed") {
			refreshed = k
		}
	}
	if refreshed == "" {
		return nil, errors.Annotate(ErrShape, "no 'Last Refreshed' field%s", remoteMessage(raw))
	}
	idx, ok := obj[refreshed].(string)
	if !ok {
		return nil, errors.Annotate(ErrShape, "'%s' is not a string: %v", refreshed, obj[refreshed])
	}
	fields := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == refreshed {
			continue
		}
		if _, nested := v.(map[string]any); nested {
			return nil, errors.Annotate(ErrShape, "field '%s' is an object", k)
		}
		fields[k] = v
	}
	return objectTable(refreshed, map[string]map[string]any{idx: fields}, value), nil
}

func percent(v table.Value) (table.Value, error) {
	if f, ok := v.Float(); ok {
		return table.Number(f / 100), nil
	}
	s := strings.Trim(v.String(), "% ")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v, errors.Annotate(ErrShape, "not a percentage: '%s'", v.String())
	}
	return table.Number(f / 100), nil
}

func text(jv any) table.Value {
	switch x := jv.(type) {
	case nil:
		return table.Missing()
	case string:
		return table.Text(x)
	case float64:
		return table.Number(x)
	}
	return table.Text(fmt.Sprint(jv))
}

// sectors builds a table of sectors (rows) by performance periods (columns).
// Metadata rows and columns have fewer than 3 values and are dropped.
func sectors(raw map[string]any) (*table.Table, error) {
	rows := make(map[string]map[string]any)
	for period, jv := range raw {
		obj, ok := jv.(map[string]any)
		if !ok {
			continue
		}
		for sector, v := range obj {
			if rows[sector] == nil {
				rows[sector] = make(map[string]any)
			}
			rows[sector][period] = v
		}
	}
	if len(rows) == 0 {
		return nil, errors.Annotate(ErrShape, "no sector data%s", remoteMessage(raw))
	}
	// Periods are ranked alphabetically: "Rank A: Real-Time Performance" etc.
	t := objectTable("", rows, text)
	t.DropSparseRows(3)
	t.DropSparseColumns(3)
	t.FillMissing(table.Text("0%"))
	if err := t.Map(percent); err != nil {
		return nil, err
	}
	return t, nil
}

func batch(raw map[string]any) (*table.Table, error) {
	key, err := dataKey(raw)
	if err != nil {
		return nil, err
	}
	quotes, ok := raw[key].([]any)
	if !ok {
		return nil, errors.Annotate(ErrShape, "'%s' is not a list of quotes%s",
			key, remoteMessage(raw))
	}
	colSet := make(map[string]struct{})
	objs := make([]map[string]any, len(quotes))
	for i, q := range quotes {
		obj, err := asObject(q, fmt.Sprintf("quote #%d", i))
		if err != nil {
			return nil, err
		}
		objs[i] = obj
		for c := range obj {
			colSet[c] = struct{}{}
		}
	}
	cols := maps.Keys(colSet)
	sortLabels(cols)
	symbolKey := ""
	for _, c := range cols {
		if _, rest := ordinal(c); strings.TrimSpace(strings.TrimPrefix(rest, ".")) == "symbol" {
			symbolKey = c
			break
		}
	}
	if i := slices.Index(cols, symbolKey); i >= 0 {
		cols = slices.Delete(cols, i, i+1)
	}
	t := table.NewTable(symbolKey, cols...)
	for i, obj := range objs {
		idx := strconv.Itoa(i)
		if s, ok := obj[symbolKey].(string); ok && symbolKey != "" {
			idx = s
		}
		row := table.NewRow(idx)
		for _, c := range cols {
			row.Values = append(row.Values, value(obj[c]))
		}
		t.AddRow(row)
	}
	return t, nil
}
