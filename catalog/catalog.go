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

// Package catalog describes the remote functions and technical indicators
// supported by the API: their aliases, parameters and descriptions.
package catalog

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/stockparfait/alphavantage/message"
	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Error kinds. Errors returned by this package wrap one of these.
var (
	ErrConfiguration = errors.Reason("configuration error")
	ErrNotFound      = errors.Reason("not found")
)

//go:embed api.json
var bundled []byte

// Descriptor of a single remote function or indicator.
type Descriptor struct {
	Function    string   `json:"function" required:"true"`
	Alias       string   `json:"alias"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional"`
	Description string   `json:"description"`
}

var _ message.Message = &Descriptor{}

// InitMessage implements message.Message.
func (d *Descriptor) InitMessage(js any) error {
	if err := message.Init(d, js); err != nil {
		return err
	}
	d.Function = strings.ToUpper(d.Function)
	d.Alias = strings.ToUpper(d.Alias)
	return nil
}

// descriptorFile is the schema of the catalog JSON document.
type descriptorFile struct {
	Series      []*Descriptor `json:"series" required:"true"`
	Indicators  []*Descriptor `json:"indicator" required:"true"`
	Datatypes   []string      `json:"datatype" required:"true"`
	OutputSizes []string      `json:"outputsize" required:"true"`
	Intervals   []string      `json:"series_interval" required:"true"`
	MATypes     []int         `json:"matype" required:"true"`
}

func (f *descriptorFile) InitMessage(js any) error {
	return message.Init(f, js)
}

// Catalog of the supported functions. It is immutable after loading and safe
// for concurrent use.
type Catalog struct {
	series      []string
	indicators  []string
	functions   map[string]*Descriptor
	indicator   map[string]bool
	toCanonical map[string]string // alias -> function
	toAlias     map[string]string // function -> alias
	datatypes   []string
	outputSizes []string
	intervals   []string
	maTypes     []int
}

func (c *Catalog) add(d *Descriptor, isIndicator bool) error {
	if _, ok := c.functions[d.Function]; ok {
		return errors.Reason("function %s is declared twice", d.Function)
	}
	if _, ok := c.toCanonical[d.Function]; ok {
		return errors.Reason("function %s is also an alias", d.Function)
	}
	c.functions[d.Function] = d
	if isIndicator {
		c.indicator[d.Function] = true
		c.indicators = append(c.indicators, d.Function)
	} else {
		c.series = append(c.series, d.Function)
	}
	if d.Alias == "" {
		return nil
	}
	if f, ok := c.toCanonical[d.Alias]; ok {
		return errors.Reason("alias %s is used by both %s and %s",
			d.Alias, f, d.Function)
	}
	if _, ok := c.functions[d.Alias]; ok {
		return errors.Reason("alias %s of %s is also a function name",
			d.Alias, d.Function)
	}
	c.toCanonical[d.Alias] = d.Function
	c.toAlias[d.Function] = d.Alias
	return nil
}

// Load a catalog from a JSON descriptor document.
func Load(r io.Reader) (*Catalog, error) {
	var f descriptorFile
	if err := message.Decode(r, &f); err != nil {
		return nil, errors.Annotate(ErrConfiguration, "invalid function descriptor: %s", err.Error())
	}
	c := &Catalog{
		functions:   make(map[string]*Descriptor),
		indicator:   make(map[string]bool),
		toCanonical: make(map[string]string),
		toAlias:     make(map[string]string),
		datatypes:   f.Datatypes,
		outputSizes: f.OutputSizes,
		intervals:   f.Intervals,
		maTypes:     f.MATypes,
	}
	for _, d := range f.Series {
		if err := c.add(d, false); err != nil {
			return nil, errors.Annotate(ErrConfiguration, "invalid series: %s", err.Error())
		}
	}
	for _, d := range f.Indicators {
		if err := c.add(d, true); err != nil {
			return nil, errors.Annotate(ErrConfiguration, "invalid indicator: %s", err.Error())
		}
	}
	if len(c.datatypes) == 0 || len(c.outputSizes) == 0 {
		return nil, errors.Annotate(ErrConfiguration, "datatype and outputsize lists must not be empty")
	}
	return c, nil
}

// LoadFile loads a catalog from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(ErrConfiguration, "cannot open descriptor file '%s': %s",
			path, err.Error())
	}
	defer f.Close()
	return Load(f)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default is the catalog bundled with the package.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(bytes.NewReader(bundled))
	})
	return defaultCatalog, defaultErr
}

// ResolveAlias returns the canonical function name for an alias, and the
// upper-cased name itself otherwise.
func (c *Catalog) ResolveAlias(name string) string {
	name = strings.ToUpper(name)
	if f, ok := c.toCanonical[name]; ok {
		return f
	}
	return name
}

// Alias of the function, or the function name itself when it has none.
func (c *Catalog) Alias(function string) string {
	function = strings.ToUpper(function)
	if a, ok := c.toAlias[function]; ok {
		return a
	}
	return function
}

// IsAlias checks whether name is a registered alias.
func (c *Catalog) IsAlias(name string) bool {
	_, ok := c.toCanonical[strings.ToUpper(name)]
	return ok
}

// Known checks whether name is a canonical function or indicator name.
func (c *Catalog) Known(name string) bool {
	_, ok := c.functions[strings.ToUpper(name)]
	return ok
}

// IsIndicator checks whether name is a canonical technical indicator name.
func (c *Catalog) IsIndicator(name string) bool {
	return c.indicator[strings.ToUpper(name)]
}

// IsSeries checks whether name is a canonical time series / quote function.
func (c *Catalog) IsSeries(name string) bool {
	return c.Known(name) && !c.IsIndicator(name)
}

// Descriptor of the canonical function name.
func (c *Catalog) Descriptor(name string) (*Descriptor, error) {
	d, ok := c.functions[strings.ToUpper(name)]
	if !ok {
		return nil, errors.Annotate(ErrNotFound, "unknown function '%s'", name)
	}
	return d, nil
}

// Required parameters of the function.
func (c *Catalog) Required(name string) ([]string, error) {
	d, err := c.Descriptor(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.Required), nil
}

// Optional parameters of the function.
func (c *Catalog) Optional(name string) ([]string, error) {
	d, err := c.Descriptor(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.Optional), nil
}

// Description of the function.
func (c *Catalog) Description(name string) (string, error) {
	d, err := c.Descriptor(name)
	if err != nil {
		return "", err
	}
	return d.Description, nil
}

// Series lists the time series function names in descriptor order.
func (c *Catalog) Series() []string { return slices.Clone(c.series) }

// Indicators lists the indicator names in descriptor order.
func (c *Catalog) Indicators() []string { return slices.Clone(c.indicators) }

// Aliases is the alias -> canonical name map.
func (c *Catalog) Aliases() map[string]string {
	return maps.Clone(c.toCanonical)
}

// Datatypes lists the valid response datatypes, the first being the default.
func (c *Catalog) Datatypes() []string { return slices.Clone(c.datatypes) }

// OutputSizes lists the valid output sizes, the first being the default.
func (c *Catalog) OutputSizes() []string { return slices.Clone(c.outputSizes) }

// Intervals lists the valid intraday intervals.
func (c *Catalog) Intervals() []string { return slices.Clone(c.intervals) }

// MATypes lists the valid moving average type codes.
func (c *Catalog) MATypes() []int { return slices.Clone(c.maTypes) }

func (c *Catalog) ValidDatatype(s string) bool   { return slices.Contains(c.datatypes, s) }
func (c *Catalog) ValidOutputSize(s string) bool { return slices.Contains(c.outputSizes, s) }
func (c *Catalog) ValidInterval(s string) bool   { return slices.Contains(c.intervals, s) }
func (c *Catalog) ValidMAType(n int) bool        { return slices.Contains(c.maTypes, n) }
