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
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Help keywords other than function names.
const (
	HelpAliases    = "aliases"
	HelpFunctions  = "functions"
	HelpIndicators = "indicators"
)

func (c *Client) functionsTable(names []string, kind string) *table.Table {
	t := table.NewTable("function", "alias", "kind")
	for _, n := range names {
		alias := c.catalog.Alias(n)
		if alias == n {
			alias = ""
		}
		t.AddRow(table.NewRow(n, table.Text(alias), table.Text(kind)))
	}
	return t
}

// Help writes to w the list of functions (keyword "" or HelpFunctions),
// indicators (HelpIndicators), aliases (HelpAliases), or the description and
// the parameters of a single function given by its name or alias.
func (c *Client) Help(w io.Writer, keyword string) error {
	var t *table.Table
	var title string
	switch strings.ToLower(keyword) {
	case "":
		title = "Functions and indicators"
		t = c.functionsTable(c.catalog.Series(), "series")
		for _, r := range c.functionsTable(c.catalog.Indicators(), "indicator").Rows {
			t.AddRow(r)
		}
	case HelpFunctions:
		title = "Functions"
		t = c.functionsTable(c.catalog.Series(), "series")
	case HelpIndicators:
		title = "Indicators"
		t = c.functionsTable(c.catalog.Indicators(), "indicator")
	case HelpAliases:
		title = "Aliases"
		aliases := c.catalog.Aliases()
		keys := maps.Keys(aliases)
		slices.Sort(keys)
		t = table.NewTable("alias", "function")
		for _, a := range keys {
			t.AddRow(table.NewRow(a, table.Text(aliases[a])))
		}
	default:
		name := strings.ToUpper(keyword)
		d, err := c.catalog.Descriptor(c.catalog.ResolveAlias(name))
		if err != nil {
			return errors.Annotate(err, "no help for '%s'", keyword)
		}
		t = table.NewTable("", "value")
		t.AddRow(
			table.NewRow("Function", table.Text(d.Function)),
			table.NewRow("Description", table.Text(d.Description)),
			table.NewRow("Required", table.Text(strings.Join(d.Required, ", "))),
		)
		if len(d.Optional) > 0 {
			t.AddRow(table.NewRow("Optional", table.Text(strings.Join(d.Optional, ", "))))
		}
		return t.WriteText(w, table.Params{NoHeader: true})
	}
	if _, err := fmt.Fprintf(w, "%s (%d):\n", title, t.NumRows()); err != nil {
		return errors.Annotate(err, "failed to write help")
	}
	return t.WriteText(w, table.Params{})
}
