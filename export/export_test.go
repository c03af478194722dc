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

package export

import (
	"context"
	"database/sql"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/alphavantage/table"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	. "github.com/smartystreets/goconvey/convey"
)

func testTable() *table.Table {
	t := table.NewTable("date", "close", "note")
	t.AddRow(
		table.NewRow("2022-01-03", table.Number(10.5), table.Text("x")),
		table.NewRow("2022-01-04", table.Number(11.25), table.Missing()),
	)
	return t
}

func TestExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load the catalog: %s", err.Error())
	}

	Convey("Name and Path work", t, func() {
		name := func(function string, p params.Params) string {
			return Name(function, cat.Alias(function), cat.IsIndicator(function), p)
		}
		So(name("CURRENCY_EXCHANGE_RATE", params.Params{
			"from_currency": "USD", "to_currency": "JPY"}), ShouldEqual, "USDJPY")
		So(name("SECTOR", params.Params{}), ShouldEqual, "sectors")
		So(name("BATCH_STOCK_QUOTES", params.Params{"symbols": "A,B"}), ShouldEqual, "batch")
		So(name("TIME_SERIES_INTRADAY", params.Params{
			"symbol": "MSFT", "interval": "5min"}), ShouldEqual, "MSFT_5min")
		So(name("DIGITAL_CURRENCY_DAILY", params.Params{
			"symbol": "BTC", "market": "USD"}), ShouldEqual, "BTCUSD")
		So(name("TIME_SERIES_DAILY_ADJUSTED", params.Params{"symbol": "IBM"}),
			ShouldEqual, "IBM_DA")
		So(name("RSI", params.Params{
			"symbol": "AAPL", "interval": "5min", "series_type": "close",
			"time_period": 14}), ShouldEqual, "AAPL_RSI_5min_C_14")
		So(name("MAMA", params.Params{
			"symbol": "AAPL", "interval": "daily", "series_type": "open"}),
			ShouldEqual, "AAPL_MAMA_daily_O")
		So(name("OBV", params.Params{"symbol": "AAPL"}), ShouldEqual, "AAPL_OBV")

		So(Path("/data", "RSI", "RSI", true, params.Params{
			"symbol": "AAPL", "interval": "5min", "series_type": "close",
			"time_period": 14}, "csv"), ShouldEqual, "/data/AAPL_RSI_5min_C_14.csv")
	})

	Convey("ExpandHome works", t, func() {
		home, err := os.UserHomeDir()
		So(err, ShouldBeNil)
		p, err := ExpandHome("~/av_data")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, filepath.Join(home, "av_data"))
		p, err = ExpandHome("~")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, home)
		p, err = ExpandHome("/tmp/~x")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, "/tmp/~x")
	})

	Convey("Registry works", t, func() {
		for _, f := range []string{"csv", "html", "json", "msgpack", "pkl", "sqlite", "txt", "yaml"} {
			So(Formats(), ShouldContain, f)
		}
		So(Available("csv"), ShouldBeTrue)
		So(Available("xlsx"), ShouldBeFalse)
		So(func() { Register("csv", Stream(writeCSV)) }, ShouldPanic)
	})

	Convey("Exporter works", t, func() {
		tmpdir, err := os.MkdirTemp("", "test_export")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tmpdir)

		root := filepath.Join(tmpdir, "sub", "dir")
		p := params.Params{"function": "TIME_SERIES_DAILY", "symbol": "IBM"}
		save := func(format string) string {
			e := Exporter{Root: root, Format: format, Catalog: cat}
			path, err := e.Save(ctx, "TIME_SERIES_DAILY", testTable(), p)
			So(err, ShouldBeNil)
			So(path, ShouldEqual, filepath.Join(root, "IBM_D."+format))
			return path
		}
		read := func(path string) string {
			b, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			return string(b)
		}

		Convey("csv", func() {
			So(read(save("csv")), ShouldEqual, `date,close,note
2022-01-03,10.5,x
2022-01-04,11.25,
`)
		})

		Convey("json", func() {
			So(read(save("json")), ShouldContainSubstring, `"close":{"2022-01-03":10.5`)
		})

		Convey("html", func() {
			So(read(save("html")), ShouldContainSubstring, "<td>11.25</td>")
		})

		Convey("txt", func() {
			So(read(save("txt")), ShouldStartWith, "      date | close | note\n")
		})

		Convey("pkl", func() {
			f, err := os.Open(save("pkl"))
			So(err, ShouldBeNil)
			defer f.Close()
			var tbl table.Table
			So(gob.NewDecoder(f).Decode(&tbl), ShouldBeNil)
			So(&tbl, ShouldResemble, testTable())
		})

		Convey("yaml", func() {
			var d Document
			So(yaml.Unmarshal([]byte(read(save("yaml"))), &d), ShouldBeNil)
			So(d.Name, ShouldEqual, "TIME_SERIES_DAILY")
			So(d.IndexName, ShouldEqual, "date")
			So(d.Columns, ShouldResemble, []string{"close", "note"})
			So(d.Rows, ShouldResemble, []DocumentRow{
				{Index: "2022-01-03", Values: []any{10.5, "x"}},
				{Index: "2022-01-04", Values: []any{11.25, nil}},
			})
		})

		Convey("msgpack", func() {
			var d Document
			So(msgpack.Unmarshal([]byte(read(save("msgpack"))), &d), ShouldBeNil)
			So(d, ShouldResemble, *NewDocument("TIME_SERIES_DAILY", testTable()))
		})

		Convey("sqlite", func() {
			path := save("sqlite")
			// Saving again replaces the table.
			save("sqlite")
			db, err := sql.Open("sqlite", path)
			So(err, ShouldBeNil)
			defer db.Close()
			var n int
			So(db.QueryRow(`SELECT COUNT(*) FROM "TIME_SERIES_DAILY"`).Scan(&n), ShouldBeNil)
			So(n, ShouldEqual, 2)
			var c float64
			var note sql.NullString
			So(db.QueryRow(`SELECT close, note FROM "TIME_SERIES_DAILY" WHERE date = ?`,
				"2022-01-04").Scan(&c, &note), ShouldBeNil)
			So(c, ShouldEqual, 11.25)
			So(note.Valid, ShouldBeFalse)
		})

		Convey("unsupported format", func() {
			e := Exporter{Root: root, Format: "xls"}
			_, err := e.Save(ctx, "TIME_SERIES_DAILY", testTable(), p)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unsupported output format 'xls'")
		})

		Convey("write errors are reported", func() {
			failing := Stream(func(w io.Writer, _ string, _ *table.Table) error {
				_, err := io.WriteString(w, "partial")
				So(err, ShouldBeNil)
				return os.ErrPermission
			})
			if !Available("failing") {
				Register("failing", failing)
			}
			e := Exporter{Root: root, Format: "failing"}
			_, err := e.Save(ctx, "SECTOR", testTable(), params.Params{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "sectors.failing")
		})

		Convey("root is not a directory", func() {
			file := filepath.Join(tmpdir, "file")
			So(os.WriteFile(file, []byte("x"), 0644), ShouldBeNil)
			e := Exporter{Root: filepath.Join(file, "sub"), Format: "csv"}
			_, err := e.Save(ctx, "SECTOR", testTable(), params.Params{})
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "failed to create directory"), ShouldBeTrue)
		})
	})
}
