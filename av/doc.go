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

// Package av is a client of the Alpha Vantage query API
// (https://www.alphavantage.co/documentation/).
//
// A Client holds the session configuration, the function catalog and the
// history of successful calls. Each query builds the parameters of a single
// function call from the catalog, sends it to the query endpoint and, for the
// JSON datatype, normalizes the response into a table. The table's columns
// may be simplified (Config.Clean) and the table exported to a file
// (Config.Export) before it is returned in a Result.
//
// Example:
//
//   c, err := av.NewClient(av.Config{APIKey: "demo", Clean: true})
//   if err != nil { ... }
//   res, err := c.Data(ctx, "DA", "IBM", nil)
//   if err != nil { ... }
//   res.Table.WriteText(os.Stdout, table.Params{Rows: 10})
//
// Queries for several symbols are dispatched by DataList, sequentially or, with
// Config.Workers > 1, in parallel; the results are always in the order of the
// symbols.
package av
