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

package table

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DescribeRows are the index labels of the table returned by Describe.
var DescribeRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func numbers(values []Value) []float64 {
	var res []float64
	for _, v := range values {
		if f, ok := v.Float(); ok && !math.IsNaN(f) {
			res = append(res, f)
		}
	}
	return res
}

func statValue(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Number(f)
}

// Describe summarizes each column having at least one number: count, mean,
// sample standard deviation, min, quartiles and max. Non-numeric cells are
// ignored.
func (t *Table) Describe() *Table {
	var cols []string
	var stats [][]Value
	for _, c := range t.Columns {
		values, _ := t.Column(c)
		x := numbers(values)
		if len(x) == 0 {
			continue
		}
		slices.Sort(x)
		std := math.NaN()
		if len(x) > 1 {
			std = stat.StdDev(x, nil)
		}
		cols = append(cols, c)
		stats = append(stats, []Value{
			Number(float64(len(x))),
			statValue(stat.Mean(x, nil)),
			statValue(std),
			Number(floats.Min(x)),
			Number(stat.Quantile(0.25, stat.Empirical, x, nil)),
			Number(stat.Quantile(0.5, stat.Empirical, x, nil)),
			Number(stat.Quantile(0.75, stat.Empirical, x, nil)),
			Number(floats.Max(x)),
		})
	}
	res := NewTable("", cols...)
	for i, name := range DescribeRows {
		row := NewRow(name)
		for j := range cols {
			row.Values = append(row.Values, stats[j][i])
		}
		res.AddRow(row)
	}
	return res
}
