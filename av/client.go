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
	"fmt"
	"sync"
	"time"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/history"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/errors"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// Client of the query API. It is safe for concurrent use.
type Client struct {
	catalog     *catalog.Catalog
	catalogPath string
	history     *history.History

	mu sync.Mutex
	s  settings
}

// NewClient creates a Client from cfg. The function catalog is loaded from
// cfg.Catalog, or the bundled one when empty. The only fatal configuration
// error is a missing API key; other invalid values fall back to defaults.
func NewClient(cfg Config) (*Client, error) {
	var cat *catalog.Catalog
	var err error
	if cfg.Catalog == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.LoadFile(cfg.Catalog)
	}
	if err != nil {
		return nil, errors.Annotate(err, "failed to load function catalog")
	}
	c := &Client{
		catalog:     cat,
		catalogPath: cfg.Catalog,
		history:     history.New(cfg.HistorySize),
	}
	if err := c.SetAPIKey(cfg.APIKey); err != nil {
		return nil, err
	}
	c.SetOutputSize(cfg.OutputSize)
	c.SetDatatype(cfg.Datatype)
	c.SetOutput(cfg.Output)
	c.SetExport(cfg.Export)
	if err := c.SetExportPath(cfg.ExportPath); err != nil {
		return nil, err
	}
	c.SetClean(cfg.Clean)
	c.SetProxy(cfg.Proxy)
	c.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	c.SetWorkers(cfg.Workers)
	return c, nil
}

// UseClient injects the client into the context.
func UseClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey, c)
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// Catalog of the functions known to the client.
func (c *Client) Catalog() *catalog.Catalog { return c.catalog }

// History of successful calls, oldest first. The records include the API key.
func (c *Client) History() []params.Params { return c.history.All() }

// Last returns the parameters of the n-th most recent successful call, n = 1
// being the latest.
func (c *Client) Last(n int) (params.Params, error) {
	return c.history.Last(n)
}

// Recent returns the parameters of up to n most recent successful calls,
// oldest first.
func (c *Client) Recent(n int) []params.Params { return c.history.Tail(n) }

// String summarizes the session with the API key masked.
func (c *Client) String() string {
	s := c.snapshot()
	key := ""
	if s.apiKey != "" {
		key = "***"
	}
	return fmt.Sprintf("AlphaVantage(end_point=%s, api_key=%s, export=%t, "+
		"export_path=%s, output_size=%s, output=%s, datatype=%s, clean=%t, "+
		"proxy=%v, timeout=%s, workers=%d)",
		URL, key, s.export, s.exportPath, s.outputSize, s.output, s.datatype,
		s.clean, s.proxy, s.timeout, s.workers)
}
