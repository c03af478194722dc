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
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func testPrices() *Table {
	t := NewTable("date", "open", "close")
	t.AddRow(
		NewRow("2022-01-04", Number(11), Number(11.5)),
		NewRow("2022-01-03", Number(10), Number(10.25)),
	)
	return t
}

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("Values work", t, func() {
		So(Parse("12.5").Interface(), ShouldEqual, 12.5)
		So(Parse(" 7 ").Interface(), ShouldEqual, 7.0)
		So(Parse("USD").Interface(), ShouldEqual, "USD")
		So(Missing().Interface(), ShouldBeNil)
		So(Missing().IsMissing(), ShouldBeTrue)
		So(Number(0.1234).String(), ShouldEqual, "0.1234")
		So(Number(1e6).String(), ShouldEqual, "1000000")
		So(Number(math.NaN()).String(), ShouldEqual, "NaN")
		_, ok := Text("x").Float()
		So(ok, ShouldBeFalse)
	})

	Convey("Table methods work", t, func() {
		tbl := testPrices()

		Convey("accessors", func() {
			So(tbl.NumRows(), ShouldEqual, 2)
			So(tbl.Header(), ShouldResemble, []string{"date", "open", "close"})
			So(tbl.Index(), ShouldResemble, []string{"2022-01-04", "2022-01-03"})
			col, ok := tbl.Column("close")
			So(ok, ShouldBeTrue)
			So(col, ShouldResemble, []Value{Number(11.5), Number(10.25)})
			_, ok = tbl.Column("volume")
			So(ok, ShouldBeFalse)
			r, ok := tbl.Row("2022-01-03")
			So(ok, ShouldBeTrue)
			So(r.CSV(), ShouldResemble, []string{"2022-01-03", "10", "10.25"})
		})

		Convey("AddRow pads short rows", func() {
			tbl.AddRow(NewRow("2022-01-05", Number(12)))
			r, _ := tbl.Row("2022-01-05")
			So(r.Values[1].IsMissing(), ShouldBeTrue)
		})

		Convey("Reverse and SortByIndex", func() {
			tbl.Reverse()
			So(tbl.Index(), ShouldResemble, []string{"2022-01-03", "2022-01-04"})
			tbl.Reverse()
			tbl.SortByIndex()
			So(tbl.Index(), ShouldResemble, []string{"2022-01-03", "2022-01-04"})
		})

		Convey("SetColumns", func() {
			So(tbl.SetColumns([]string{"o", "c"}), ShouldBeNil)
			So(tbl.Columns, ShouldResemble, []string{"o", "c"})
			So(tbl.SetColumns([]string{"o"}), ShouldNotBeNil)
		})

		Convey("sparse rows and columns", func() {
			s := NewTable("", "a", "b", "meta")
			s.AddRow(
				NewRow("x", Number(1), Number(2), Missing()),
				NewRow("y", Number(3), Missing(), Missing()),
				NewRow("info", Missing(), Missing(), Text("i")),
			)
			s.DropSparseRows(1)
			So(s.Index(), ShouldResemble, []string{"x", "y", "info"})
			s.DropSparseRows(2)
			So(s.Index(), ShouldResemble, []string{"x"})
			s.DropSparseColumns(1)
			So(s.Columns, ShouldResemble, []string{"a", "b"})
			So(s.Rows[0].Values, ShouldResemble, []Value{Number(1), Number(2)})
		})

		Convey("FillMissing and Map", func() {
			s := NewTable("", "a")
			s.AddRow(NewRow("x", Missing()), NewRow("y", Text("2")))
			s.FillMissing(Text("0"))
			So(s.Map(func(v Value) (Value, error) { return Parse(v.String()), nil }), ShouldBeNil)
			So(s.Records(), ShouldResemble, map[string]map[string]any{
				"a": {"x": 0.0, "y": 2.0}})
			err := s.Map(func(v Value) (Value, error) { return v, fmt.Errorf("bad") })
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "row 'x', column 'a'")
		})
	})

	Convey("Writers work", t, func() {
		tbl := testPrices()

		Convey("WriteCSV", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
date,open,close
2022-01-04,11,11.5
2022-01-03,10,10.25
`)
		})

		Convey("WriteCSV, limited rows, no header", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "2022-01-04,11,11.5\n")
		})

		Convey("WriteText", func() {
			var buf bytes.Buffer
			So(tbl.WriteText(&buf, Params{}), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
      date | open | close
---------- | ---- | -----
2022-01-04 |   11 |  11.5
2022-01-03 |   10 | 10.25
`)
		})

		Convey("WriteText, limited width", func() {
			var buf bytes.Buffer
			So(tbl.WriteText(&buf, Params{Rows: 1, NoHeader: true, MaxColWidth: 4}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "20.. | 11 | 11.5\n")
			So(tbl.WriteText(&buf, Params{MaxColWidth: 2}), ShouldNotBeNil)
		})

		Convey("WriteJSON", func() {
			var buf bytes.Buffer
			So(tbl.WriteJSON(&buf), ShouldBeNil)
			So(testutil.JSON(buf.String()), ShouldResemble, testutil.JSON(`{
        "open": {"2022-01-04": 11, "2022-01-03": 10},
        "close": {"2022-01-04": 11.5, "2022-01-03": 10.25}}`))
		})

		Convey("WriteHTML", func() {
			var buf bytes.Buffer
			s := NewTable("sym", "name")
			s.AddRow(NewRow("T", Text("AT&T")))
			So(s.WriteHTML(&buf), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "<th>sym</th>")
			So(buf.String(), ShouldContainSubstring, "<td>AT&amp;T</td>")
			So(strings.Count(buf.String(), "<tr>"), ShouldEqual, 2)
		})
	})

	Convey("Describe works", t, func() {
		s := NewTable("date", "close", "note")
		s.AddRow(
			NewRow("d1", Number(3), Text("a")),
			NewRow("d2", Number(1), Missing()),
			NewRow("d3", Number(2), Text("b")),
		)
		d := s.Describe()
		So(d.Columns, ShouldResemble, []string{"close"})
		So(d.Index(), ShouldResemble, DescribeRows)
		col, _ := d.Column("close")
		got := make([]float64, len(col))
		for i, v := range col {
			f, ok := v.Float()
			So(ok, ShouldBeTrue)
			got[i] = testutil.Round(f, 5)
		}
		So(got, ShouldResemble, []float64{3, 2, 1, 1, 1, 2, 3, 3})

		Convey("single value has no deviation", func() {
			one := NewTable("", "x")
			one.AddRow(NewRow("a", Number(5)))
			col, _ := one.Describe().Column("x")
			So(col[2].IsMissing(), ShouldBeTrue)
		})
	})
}
