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

package params

import (
	"math"
	"strconv"
	"strings"

	"github.com/stockparfait/alphavantage/catalog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// rule coerces an optional indicator parameter. The absolute value of the
// argument is taken first, and truncated when integer is set.
type rule struct {
	integer bool
	accept  func(cat *catalog.Catalog, x float64) bool // nil accepts all
}

func maType(cat *catalog.Catalog, x float64) bool { return cat.ValidMAType(int(x)) }

func openUnit(_ *catalog.Catalog, x float64) bool { return x > 0 && x < 1 }

var (
	maTypeRule = rule{integer: true, accept: maType}
	periodRule = rule{integer: true}
	realRule   = rule{}
	limitRule  = rule{accept: openUnit}
)

var rules = map[string]rule{
	"matype":       maTypeRule,
	"fastmatype":   maTypeRule,
	"slowmatype":   maTypeRule,
	"signalmatype": maTypeRule,
	"fastdmatype":  maTypeRule,
	"slowkmatype":  maTypeRule,
	"slowdmatype":  maTypeRule,

	"nbdevup":      realRule,
	"nbdevdn":      realRule,
	"acceleration": realRule,
	"maximum":      realRule,

	"timeperiod1":  periodRule,
	"timeperiod2":  periodRule,
	"timeperiod3":  periodRule,
	"fastperiod":   periodRule,
	"slowperiod":   periodRule,
	"signalperiod": periodRule,
	"fastkperiod":  periodRule,
	"fastdperiod":  periodRule,
	"slowkperiod":  periodRule,
	"slowdperiod":  periodRule,

	"fastlimit": limitRule,
	"slowlimit": limitRule,
}

// Options lists the optional parameter names which have a coercion rule.
func Options() []string {
	res := maps.Keys(rules)
	slices.Sort(res)
	return res
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Coerce an optional parameter value by the rule for its name. The result is
// an int for integer options and a float64 otherwise. It returns false when
// the option has no rule, the value is not a number, or the rule rejects it.
func Coerce(cat *catalog.Catalog, option string, v any) (any, bool) {
	r, ok := rules[option]
	if !ok {
		return nil, false
	}
	x, ok := toFloat(v)
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, false
	}
	x = math.Abs(x)
	if r.integer {
		x = math.Trunc(x)
	}
	if r.accept != nil && !r.accept(cat, x) {
		return nil, false
	}
	if r.integer {
		return int(x), true
	}
	return x, true
}
