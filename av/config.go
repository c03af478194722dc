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
	"os"
	"strings"
	"time"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/export"
	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
)

// APIKeyEnv is the environment variable with the API key used when none is
// configured explicitly.
const APIKeyEnv = "AV_API_KEY"

const (
	DefaultTimeout    = 60 * time.Second
	DefaultExportPath = "~/av_data"
	DefaultOutput     = "csv"
)

// Config of a Client session. Invalid values fall back to defaults, except
// for a missing API key.
type Config struct {
	APIKey      string            `json:"api_key" toml:"api_key"`
	OutputSize  string            `json:"output_size" toml:"output_size"` // compact or full
	Datatype    string            `json:"datatype" toml:"datatype"`       // json or csv
	Export      bool              `json:"export" toml:"export"`
	ExportPath  string            `json:"export_path" toml:"export_path"`
	Output      string            `json:"output" toml:"output"` // export file format
	Clean       bool              `json:"clean" toml:"clean"`
	Proxy       map[string]string `json:"proxy" toml:"proxy"`               // URL scheme -> proxy URL
	Timeout     int               `json:"timeout" toml:"timeout"`           // seconds
	HistorySize int               `json:"history_size" toml:"history_size"` // 0 = unlimited
	Workers     int               `json:"workers" toml:"workers"`           // for symbol lists
	Catalog     string            `json:"catalog" toml:"catalog"`           // descriptor file; default: bundled
}

// settings is the validated state of a session, copied for each call.
type settings struct {
	apiKey     string
	outputSize string
	datatype   string
	export     bool
	exportPath string
	output     string
	clean      bool
	proxy      map[string]string
	timeout    time.Duration
	workers    int
}

// SetAPIKey sets the API key, reading it from the environment variable
// APIKeyEnv when key is empty.
func (c *Client) SetAPIKey(key string) error {
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return errors.Annotate(catalog.ErrConfiguration,
			"missing API key: set it explicitly or in %s", APIKeyEnv)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.apiKey = key
	return nil
}

// SetOutputSize sets the output size, defaulting to the first one in the
// catalog.
func (c *Client) SetOutputSize(size string) {
	size = strings.ToLower(size)
	if !c.catalog.ValidOutputSize(size) {
		size = c.catalog.OutputSizes()[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.outputSize = size
}

// SetDatatype sets the response datatype, defaulting to the first one in the
// catalog.
func (c *Client) SetDatatype(datatype string) {
	datatype = strings.ToLower(datatype)
	if !c.catalog.ValidDatatype(datatype) {
		datatype = c.catalog.Datatypes()[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.datatype = datatype
}

// SetOutput sets the export file format, defaulting to DefaultOutput when the
// format is not registered.
func (c *Client) SetOutput(format string) {
	format = strings.ToLower(format)
	if !export.Available(format) {
		format = DefaultOutput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.output = format
}

// SetExport turns exporting of tables on or off.
func (c *Client) SetExport(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.export = on
}

// SetExportPath sets the export directory, DefaultExportPath when empty. A
// leading "~" is expanded, and the directory is created when export is on.
func (c *Client) SetExportPath(path string) error {
	if path == "" {
		path = DefaultExportPath
	}
	p, err := export.ExpandHome(path)
	if err != nil {
		return errors.Annotate(catalog.ErrConfiguration, "%s", err.Error())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s.export {
		if err := os.MkdirAll(p, 0755); err != nil {
			return errors.Annotate(export.ErrIO, "failed to create '%s': %s", p, err.Error())
		}
	}
	c.s.exportPath = p
	return nil
}

// SetClean turns column simplification on or off.
func (c *Client) SetClean(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.clean = on
}

// SetProxy sets the proxies by URL scheme, e.g. {"https": "http://host:3128"}.
// Nil clears them.
func (c *Client) SetProxy(proxy map[string]string) {
	p := map[string]string{}
	if proxy != nil {
		p = maps.Clone(proxy)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.proxy = p
}

// SetTimeout sets the default timeout of a call; non-positive values reset it
// to DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.timeout = d
}

// SetWorkers sets the number of parallel requests for symbol lists.
func (c *Client) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.workers = n
}

// snapshot of the settings, safe to use without the lock.
func (c *Client) snapshot() settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	s.proxy = maps.Clone(c.s.proxy)
	return s
}

// Config returns the current, validated configuration.
func (c *Client) Config() Config {
	s := c.snapshot()
	return Config{
		APIKey:      s.apiKey,
		OutputSize:  s.outputSize,
		Datatype:    s.datatype,
		Export:      s.export,
		ExportPath:  s.exportPath,
		Output:      s.output,
		Clean:       s.clean,
		Proxy:       s.proxy,
		Timeout:     int(s.timeout / time.Second),
		HistorySize: c.history.Capacity(),
		Workers:     s.workers,
		Catalog:     c.catalogPath,
	}
}
