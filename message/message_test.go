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

package message

import (
	"strings"
	"testing"

	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

type testFunction struct {
	Name       string            `json:"function" required:"true"`
	Alias      string            `json:"alias"`
	Datatype   string            `json:"datatype" default:"json" choices:"json,csv"`
	Retries    int               `json:"retries" default:"1"`
	Limit      *float64          `json:"limit" default:"0.5"`
	Premium    bool              `json:"premium" default:"true"`
	Required   []string          `json:"required"`
	Codes      []int             `json:"codes"`
	Labels     map[string]string `json:"labels"`
	Related    []*testFunction   `json:"related,omitempty"`
	Ignored    int               `json:"-"`
	unexported int
}

func (f *testFunction) InitMessage(js any) error {
	return Init(f, js)
}

type badChoice struct {
	Choice string `choices:"foo,bar"` // no default
}

func (b *badChoice) InitMessage(js any) error {
	return Init(b, js)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	Convey("Init() works", t, func() {
		Convey("with required fields only", func() {
			var f testFunction
			So(f.InitMessage(testutil.JSON(`{"function": "RSI"}`)), ShouldBeNil)
			So(f.Name, ShouldEqual, "RSI")
			So(f.Alias, ShouldEqual, "")
			So(f.Datatype, ShouldEqual, "json")
			So(f.Retries, ShouldEqual, 1)
			So(*f.Limit, ShouldEqual, 0.5)
			So(f.Premium, ShouldBeTrue)
			So(len(f.Required), ShouldEqual, 0)
		})

		Convey("with nested messages", func() {
			var f testFunction
			So(f.InitMessage(testutil.JSON(`{
        "function": "TIME_SERIES_DAILY", "alias": "D", "datatype": "csv",
        "limit": null, "premium": false, "codes": [0, 1, 8],
        "required": ["symbol"], "labels": {"1. open": "open"},
        "related": [{"function": "TIME_SERIES_WEEKLY", "retries": 3}]
      }`)), ShouldBeNil)
			So(f.Alias, ShouldEqual, "D")
			So(f.Datatype, ShouldEqual, "csv")
			So(f.Limit, ShouldBeNil)
			So(f.Premium, ShouldBeFalse)
			So(f.Codes, ShouldResemble, []int{0, 1, 8})
			So(f.Required, ShouldResemble, []string{"symbol"})
			So(f.Labels, ShouldResemble, map[string]string{"1. open": "open"})
			So(len(f.Related), ShouldEqual, 1)
			So(f.Related[0].Name, ShouldEqual, "TIME_SERIES_WEEKLY")
			So(f.Related[0].Retries, ShouldEqual, 3)
			So(f.Related[0].Datatype, ShouldEqual, "json")
			So(f.unexported, ShouldEqual, 0)
		})

		Convey("with a missing nested required field", func() {
			var f testFunction
			err := f.InitMessage(testutil.JSON(`{"function": "A", "related": [{"alias": "B"}]}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing required fields: function")
		})

		Convey("with a fractional integer", func() {
			var f testFunction
			err := f.InitMessage(testutil.JSON(`{"function": "A", "codes": [1.5]}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not an integer")
		})

		Convey("with ignored and unexported fields", func() {
			var f testFunction
			err := f.InitMessage(testutil.JSON(`{"function": "A", "unexported": 5, "Ignored": 1}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"unsupported fields for testFunction: Ignored, unexported")
		})

		Convey("with an invalid choice", func() {
			var f testFunction
			err := f.InitMessage(testutil.JSON(`{"function": "A", "datatype": "xml"}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring,
				"value for Datatype is not in its choice list: 'xml'")
		})

		Convey("with an invalid zero-value choice", func() {
			var b badChoice
			err := b.InitMessage(testutil.JSON(`{}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "error setting default value for Choice")
		})

		Convey("with a non-object value", func() {
			var f testFunction
			So(f.InitMessage(testutil.JSON(`[1, 2]`)), ShouldNotBeNil)
			So(f.InitMessage(nil), ShouldNotBeNil)
		})
	})

	Convey("Decode works", t, func() {
		var f testFunction
		So(Decode(strings.NewReader(`{"function": "SMA", "retries": 2}`), &f), ShouldBeNil)
		So(f.Name, ShouldEqual, "SMA")
		So(f.Retries, ShouldEqual, 2)

		err := Decode(strings.NewReader(`{"function": `), &f)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "failed to parse JSON")
	})
}
