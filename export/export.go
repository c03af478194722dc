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

// Package export saves normalized tables to files named after the call which
// produced them.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// ErrIO is wrapped by errors about writing exported files.
var ErrIO = errors.Reason("export failed")

// ExpandHome replaces the leading "~" of path with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Annotate(err, "cannot expand '%s'", path)
	}
	return filepath.Join(home, path[1:]), nil
}

// Name of the exported file, without the extension, for the call of function
// with parameters p. The alias, when shorter, keeps the names short:
//
//   CURRENCY_EXCHANGE_RATE: USDJPY
//   SECTOR: sectors
//   BATCH_STOCK_QUOTES: batch
//   TIME_SERIES_INTRADAY: AAPL_5min
//   digital currencies (aliases C?): BTCUSD
//   indicators: AAPL_RSI_5min_C_14 (interval, series type, time period)
//   others: AAPL_D
func Name(function, alias string, isIndicator bool, p params.Params) string {
	switch function {
	case "CURRENCY_EXCHANGE_RATE":
		return p.Get("from_currency") + p.Get("to_currency")
	case "SECTOR":
		return "sectors"
	case "BATCH_STOCK_QUOTES":
		return "batch"
	case "TIME_SERIES_INTRADAY":
		return p.Get(params.Symbol) + "_" + p.Get(params.Interval)
	}
	if len(alias) == 2 && strings.HasPrefix(alias, "C") {
		return p.Get(params.Symbol) + p.Get("market")
	}
	name := p.Get(params.Symbol) + "_" + alias
	if !isIndicator {
		return name
	}
	if p.Has(params.Interval) {
		name += "_" + p.Get(params.Interval)
	}
	if s := p.Get("series_type"); s != "" {
		name += "_" + strings.ToUpper(s[:1])
	}
	if p.Has("time_period") {
		name += "_" + p.Get("time_period")
	}
	return name
}

// Path of the exported file under root.
func Path(root, function, alias string, isIndicator bool, p params.Params, format string) string {
	return filepath.Join(root, Name(function, alias, isIndicator, p)+"."+format)
}

// Exporter saves tables under Root in the given Format.
type Exporter struct {
	Root    string
	Format  string
	Catalog *catalog.Catalog // for function aliases; optional
}

// Save the table of the function called with parameters p, and return the
// path of the file. The Root directory is created as needed.
func (e *Exporter) Save(ctx context.Context, function string, t *table.Table, p params.Params) (string, error) {
	write, ok := Get(e.Format)
	if !ok {
		return "", errors.Annotate(ErrIO, "unsupported output format '%s'", e.Format)
	}
	root, err := ExpandHome(e.Root)
	if err != nil {
		return "", errors.Annotate(ErrIO, "%s", err.Error())
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", errors.Annotate(ErrIO, "failed to create directory '%s': %s", root, err.Error())
	}
	alias, isIndicator := function, false
	if e.Catalog != nil {
		alias = e.Catalog.Alias(function)
		isIndicator = e.Catalog.IsIndicator(function)
	}
	path := Path(root, function, alias, isIndicator, p, e.Format)
	if err := write(path, function, t); err != nil {
		return "", errors.Annotate(ErrIO, "failed to write '%s': %s", path, err.Error())
	}
	logging.Infof(ctx, "exported %s to %s", function, path)
	return path, nil
}
