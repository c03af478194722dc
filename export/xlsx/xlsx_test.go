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

package xlsx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/alphavantage/export"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/alphavantage/table"
	"github.com/xuri/excelize/v2"

	. "github.com/smartystreets/goconvey/convey"
)

func TestXLSX(t *testing.T) {
	t.Parallel()

	Convey("SheetName works", t, func() {
		So(SheetName("TIME_SERIES_DAILY"), ShouldEqual, "TIME_SERIES_DAILY")
		So(SheetName("a/b:c"), ShouldEqual, "a_b_c")
		So(SheetName("TIME_SERIES_MONTHLY_ADJUSTED_EXTRA_LONG"), ShouldEqual,
			"TIME_SERIES_MONTHLY_ADJUSTED_EX")
		So(SheetName(""), ShouldEqual, "Sheet1")
	})

	Convey("xlsx format is registered and writes a sheet", t, func() {
		So(export.Available(Format), ShouldBeTrue)

		tmpdir, err := os.MkdirTemp("", "test_xlsx")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tmpdir)

		tbl := table.NewTable("date", "close", "note")
		tbl.AddRow(
			table.NewRow("2022-01-03", table.Number(10.5), table.Text("x")),
			table.NewRow("2022-01-04", table.Number(11.5), table.Missing()),
		)
		e := export.Exporter{Root: tmpdir, Format: Format}
		path, err := e.Save(context.Background(), "TIME_SERIES_DAILY", tbl,
			params.Params{"symbol": "IBM"})
		So(err, ShouldBeNil)
		So(path, ShouldEqual, filepath.Join(tmpdir, "IBM_TIME_SERIES_DAILY.xlsx"))

		f, err := excelize.OpenFile(path)
		So(err, ShouldBeNil)
		defer f.Close()
		So(f.GetSheetList(), ShouldResemble, []string{"TIME_SERIES_DAILY"})
		rows, err := f.GetRows("TIME_SERIES_DAILY")
		So(err, ShouldBeNil)
		So(len(rows), ShouldEqual, 3)
		So(rows[0], ShouldResemble, []string{"date", "close", "note"})
		So(rows[1][0], ShouldEqual, "2022-01-03")
		So(rows[1][2], ShouldEqual, "x")
	})
}
