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

// Package params builds the exact query parameters of a remote API call from
// a function name, a symbol and caller supplied arguments.
package params

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

// ErrInvalid is wrapped by errors about argument values which abort a call.
var ErrInvalid = errors.Reason("invalid argument")

// Parameter names with a special meaning.
const (
	Function   = "function"
	Symbol     = "symbol"
	Datatype   = "datatype"
	OutputSize = "outputsize"
	Interval   = "interval"
	APIKey     = "apikey"
)

// Args are the caller's keyword arguments for a call, e.g.
// {"interval": "5min", "time_period": 14}.
type Args map[string]any

// Params is the parameter map sent to the API as a query string.
type Params map[string]any

// Copy makes a shallow copy of the map.
func (p Params) Copy() Params {
	res := make(Params, len(p))
	for k, v := range p {
		res[k] = v
	}
	return res
}

// Get the string value of the parameter as it appears in the query, or "".
func (p Params) Get(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	return format(v)
}

// Has checks whether the parameter is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Values converts the map to a URL query.
func (p Params) Values() url.Values {
	res := make(url.Values, len(p))
	for k, v := range p {
		res.Set(k, format(v))
	}
	return res
}

// String representation with sorted keys and a masked API key, for logging.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := format(p[k])
		if k == APIKey {
			v = "***"
		}
		parts[i] = k + "=" + v
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case []string:
		return strings.Join(x, ",")
	}
	return fmt.Sprint(v)
}

// Defaults are session settings added to the parameters of non-indicator
// functions.
type Defaults struct {
	Datatype   string
	OutputSize string
}

func resolve(cat *catalog.Catalog, name string) (string, bool) {
	if cat.IsAlias(name) {
		return cat.ResolveAlias(name), true
	}
	if cat.Known(name) {
		return name, true
	}
	return "", false
}

// Build the parameter map for a single-symbol call of function, which may be
// an alias or a canonical name. When function is not recognized but symbol
// is, the two are assumed to be swapped; this is logged as a warning.
//
// Required parameters present in args are copied verbatim. Optional ones are
// coerced by their rule (see Coerce) and silently dropped when rejected, as
// are arguments the function does not declare.
func Build(ctx context.Context, cat *catalog.Catalog, function, symbol string, args Args, d Defaults) (Params, error) {
	function = strings.ToUpper(function)
	symbol = strings.ToUpper(symbol)
	f, ok := resolve(cat, function)
	if !ok {
		if f, ok = resolve(cat, symbol); !ok {
			return nil, errors.Annotate(catalog.ErrNotFound, "unknown function '%s'", function)
		}
		logging.Warningf(ctx, "perhaps function and symbol are interchanged: function=%s, symbol=%s",
			function, symbol)
		symbol = function
	}
	p := Params{Function: f}
	if symbol != "" {
		p[Symbol] = symbol
	}
	if !cat.IsIndicator(f) {
		if d.Datatype != "" {
			p[Datatype] = d.Datatype
		}
		if d.OutputSize != "" {
			p[OutputSize] = d.OutputSize
		}
	}
	required, err := cat.Required(f)
	if err != nil {
		return nil, err
	}
	for _, name := range required {
		if name == Function || name == Symbol {
			continue
		}
		if v, ok := args[name]; ok {
			p[name] = v
		}
	}
	optional, err := cat.Optional(f)
	if err != nil {
		return nil, err
	}
	for _, name := range optional {
		v, ok := args[name]
		if !ok {
			continue
		}
		if c, ok := Coerce(cat, name, v); ok {
			p[name] = c
		} else {
			logging.Debugf(ctx, "dropping optional parameter %s=%v for %s", name, v, f)
		}
	}
	return p, nil
}

// ResolveInterval validates an intraday interval given either as a token like
// "5min" or as a number of minutes.
func ResolveInterval(cat *catalog.Catalog, v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprintf("%dmin", x)
	default:
		return "", errors.Annotate(ErrInvalid, "interval must be a string or a number of minutes, got %T", v)
	}
	if !cat.ValidInterval(s) {
		return "", errors.Annotate(ErrInvalid, "unsupported interval '%v', expected one of %s",
			v, strings.Join(cat.Intervals(), ", "))
	}
	return s, nil
}
