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

package av

import (
	"context"
	"net/http"
	"strings"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/export"
	"github.com/stockparfait/alphavantage/normalize"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
)

// MaxBatchSymbols is the largest number of symbols in a batch quote request.
const MaxBatchSymbols = 100

const jsonDatatype = "json"

// Result of a single call.
type Result struct {
	Function string        // canonical function name
	Params   params.Params // parameters sent, except the API key
	Table    *table.Table  // normalized response for the JSON datatype
	Text     string        // raw response for other datatypes
	Path     string        // exported file, if any
}

// call sends the request with parameters p and post-processes the response
// according to the session settings.
func (c *Client) call(ctx context.Context, p params.Params, opts ...CallOption) (*Result, error) {
	s := c.snapshot()
	cc := callConfig{timeout: s.timeout, proxy: s.proxy}
	for _, o := range opts {
		o(&cc)
	}
	function := p.Get(params.Function)
	sent := p.Copy()
	sent[params.APIKey] = s.apiKey

	body, status, err := send(ctx, sent, cc)
	if err != nil {
		return nil, err
	}
	res := &Result{Function: function, Params: p.Copy()}
	datatype := s.datatype
	if p.Has(params.Datatype) {
		datatype = p.Get(params.Datatype)
	}
	if datatype != jsonDatatype {
		if status == http.StatusOK {
			c.history.Append(sent)
		}
		res.Text = string(body)
		return res, nil
	}
	raw, err := decode(function, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		c.history.Append(sent)
	}
	t, err := normalize.Normalize(function, raw)
	if err != nil {
		return nil, err
	}
	if s.clean {
		if err := normalize.Simplify(function, t); err != nil {
			return nil, errors.Annotate(err, "failed to simplify %s columns", function)
		}
	}
	if s.export {
		e := export.Exporter{Root: s.exportPath, Format: s.output, Catalog: c.catalog}
		if res.Path, err = e.Save(ctx, function, t, p); err != nil {
			return nil, err
		}
	}
	res.Table = t
	return res, nil
}

// Data queries a time series or an indicator for a single symbol. The
// function is a canonical name or an alias; args are the function's required
// and optional parameters (see Client.Help).
func (c *Client) Data(ctx context.Context, function, symbol string, args params.Args, opts ...CallOption) (*Result, error) {
	s := c.snapshot()
	p, err := params.Build(ctx, c.catalog, function, symbol, args, params.Defaults{
		Datatype:   s.datatype,
		OutputSize: s.outputSize,
	})
	if err != nil {
		return nil, err
	}
	return c.call(ctx, p, opts...)
}

type indexedResult struct {
	i   int
	res *Result
	err error
}

// DataList queries the function for each of the symbols, and returns the
// results in the order of symbols. The first failed query by symbol order
// fails the whole list. With more than one worker the queries run in parallel.
func (c *Client) DataList(ctx context.Context, function string, symbols []string, args params.Args, opts ...CallOption) ([]*Result, error) {
	if len(symbols) <= 1 {
		symbol := ""
		if len(symbols) == 1 {
			symbol = symbols[0]
		}
		r, err := c.Data(ctx, function, symbol, args, opts...)
		if err != nil {
			return nil, err
		}
		return []*Result{r}, nil
	}
	syms := make([]string, len(symbols))
	for i, s := range symbols {
		syms[i] = strings.ToUpper(s)
	}
	results := make([]*Result, len(syms))
	workers := c.snapshot().workers
	if workers <= 1 {
		for i, s := range syms {
			r, err := c.Data(ctx, function, s, args, opts...)
			if err != nil {
				return nil, errors.Annotate(err, "failed to query %s", s)
			}
			results[i] = r
		}
		return results, nil
	}

	idx := make([]int, len(syms))
	for i := range idx {
		idx[i] = i
	}
	f := func(i int) indexedResult {
		r, err := c.Data(ctx, function, syms[i], args, opts...)
		return indexedResult{i: i, res: r, err: err}
	}
	// Reduce drains pm, so all the started jobs finish before it returns.
	pm := iterator.ParallelMap(ctx, workers, iterator.FromSlice(idx), f)
	errs := make([]error, len(syms))
	done := make([]bool, len(syms))
	iterator.Reduce[indexedResult, int](pm, 0, func(r indexedResult, n int) int {
		results[r.i] = r.res
		errs[r.i] = r.err
		done[r.i] = true
		return n + 1
	})
	for i, err := range errs {
		if err != nil {
			return nil, errors.Annotate(err, "failed to query %s", syms[i])
		}
	}
	// A cancelled context stops launching new queries.
	if err := ctx.Err(); err != nil {
		return nil, errors.Annotate(err, "queries of %s interrupted", function)
	}
	for i, ok := range done {
		if !ok {
			return nil, errors.Reason("query for %s did not run", syms[i])
		}
	}
	logging.Debugf(ctx, "queried %s for %d symbols with %d workers",
		function, len(syms), workers)
	return results, nil
}

// FX queries the exchange rate of a currency pair; to defaults to USD.
func (c *Client) FX(ctx context.Context, from, to string, opts ...CallOption) (*Result, error) {
	if to == "" {
		to = "USD"
	}
	return c.call(ctx, params.Params{
		params.Function: normalize.ExchangeRateFunction,
		"from_currency":  strings.ToUpper(from),
		"to_currency":    strings.ToUpper(to),
	}, opts...)
}

// Sectors queries the sector performances.
func (c *Client) Sectors(ctx context.Context, opts ...CallOption) (*Result, error) {
	return c.call(ctx, params.Params{params.Function: normalize.SectorFunction}, opts...)
}

// Digital queries a digital currency time series by its alias (CI, CD, CW or
// CM; default CD) in the market currency (default USD).
func (c *Client) Digital(ctx context.Context, symbol, market, alias string, opts ...CallOption) (*Result, error) {
	if market == "" {
		market = "USD"
	}
	if alias == "" {
		alias = "CD"
	}
	alias = strings.ToUpper(alias)
	if !c.catalog.IsAlias(alias) {
		return nil, errors.Annotate(catalog.ErrNotFound, "unknown function alias '%s'", alias)
	}
	return c.call(ctx, params.Params{
		params.Function: c.catalog.ResolveAlias(alias),
		params.Symbol:   strings.ToUpper(symbol),
		"market":        strings.ToUpper(market),
	}, opts...)
}

// Batch queries the latest quotes of up to MaxBatchSymbols symbols; the rest
// are ignored.
func (c *Client) Batch(ctx context.Context, symbols []string, opts ...CallOption) (*Result, error) {
	if len(symbols) == 0 {
		return nil, errors.Annotate(params.ErrInvalid, "no symbols for a batch quote")
	}
	if len(symbols) > MaxBatchSymbols {
		logging.Warningf(ctx, "batch quote of %d symbols is truncated to %d",
			len(symbols), MaxBatchSymbols)
		symbols = symbols[:MaxBatchSymbols]
	}
	syms := make([]string, len(symbols))
	for i, s := range symbols {
		syms[i] = strings.ToUpper(s)
	}
	return c.call(ctx, params.Params{
		params.Function: normalize.BatchFunction,
		"symbols":       strings.Join(syms, ","),
	}, opts...)
}

// Intraday queries the intraday time series of the symbol. The interval is
// either a token like "5min" or a number of minutes.
func (c *Client) Intraday(ctx context.Context, symbol string, interval any, opts ...CallOption) (*Result, error) {
	iv, err := params.ResolveInterval(c.catalog, interval)
	if err != nil {
		return nil, err
	}
	s := c.snapshot()
	return c.call(ctx, params.Params{
		params.Function:   "TIME_SERIES_INTRADAY",
		params.Symbol:     strings.ToUpper(symbol),
		params.Datatype:   s.datatype,
		params.OutputSize: s.outputSize,
		params.Interval:   iv,
	}, opts...)
}
