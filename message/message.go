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

// Package message populates Go structs from generic JSON values with strict
// checking of required fields, defaults, enumerated choices and unknown keys.
package message

import (
	"encoding/json"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/slices"
)

// Message is a JSON object with a known schema, typically a struct pointer
// whose fields carry the schema in their tags. For example, a remote function
// descriptor:
//
//   type Function struct {
//     Name     string   `json:"function" required:"true"`
//     Alias    string   `json:"alias"`
//     Datatype string   `json:"datatype" default:"json" choices:"json,csv"`
//     Required []string `json:"required"`
//     Retries  int      `json:"retries" default:"1"`
//     Parent   *Function `json:"parent"` // nested Message, parsed recursively
//     Ignored  int      `json:"-"`
//   }
//
//   func (f *Function) InitMessage(js any) error {
//     return message.Init(f, js)
//   }
type Message interface {
	// InitMessage converts a generic JSON value, as produced by encoding/json,
	// into the specific message: it checks required fields, fills in defaults
	// and rejects unrecognized fields. Nested Messages are initialized
	// recursively.
	InitMessage(js any) error
}

// rMessage is the reflected Message interface type.
var rMessage = reflect.TypeOf((*Message)(nil)).Elem()

// Decode reads a single JSON value from r and initializes m from it.
func Decode(r io.Reader, m Message) error {
	var js any
	if err := json.NewDecoder(r).Decode(&js); err != nil {
		return errors.Annotate(err, "failed to parse JSON")
	}
	return m.InitMessage(js)
}

func initNested(jv any, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Kind() != reflect.Ptr {
		return Nil, errors.Reason(
			"type %s implements Message but is not a pointer", t.Name())
	}
	ptr := reflect.New(t.Elem())
	res := ptr.MethodByName("InitMessage").Call([]reflect.Value{reflect.ValueOf(jv)})
	if err, ok := res[0].Interface().(error); ok && err != nil {
		return Nil, errors.Annotate(err, "%s.InitMessage() failed", t.Elem().Name())
	}
	return ptr, nil
}

// toInt accepts only integral JSON numbers.
func toInt(jv any) (int, error) {
	f, ok := jv.(float64)
	if !ok {
		return 0, errors.Reason("not a numeric type: %v", jv)
	}
	if f != math.Trunc(f) {
		return 0, errors.Reason("not an integer: %v", jv)
	}
	return int(f), nil
}

// convert recursively converts a raw JSON value to the target type t. A nil
// value yields the zero value, or a default-initialized Message.
func convert(jv any, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Implements(rMessage) {
		if jv == nil {
			return reflect.Zero(t), nil
		}
		return initNested(jv, t)
	}
	if pt := reflect.PtrTo(t); pt.Implements(rMessage) {
		if jv == nil {
			jv = map[string]any{}
		}
		ptr, err := initNested(jv, pt)
		if err != nil {
			return Nil, err
		}
		return ptr.Elem(), nil
	}
	if jv == nil {
		return reflect.Zero(t), nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		v, err := convert(jv, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil

	case reflect.Bool:
		b, ok := jv.(bool)
		if !ok {
			return Nil, errors.Reason("not a bool type: %v", jv)
		}
		return reflect.ValueOf(b), nil

	case reflect.Int:
		i, err := toInt(jv)
		if err != nil {
			return Nil, err
		}
		return reflect.ValueOf(i), nil

	case reflect.Float64:
		f, ok := jv.(float64)
		if !ok {
			return Nil, errors.Reason("not a numeric type: %v", jv)
		}
		return reflect.ValueOf(f), nil

	case reflect.String:
		s, ok := jv.(string)
		if !ok {
			return Nil, errors.Reason("not a string type: %v", jv)
		}
		return reflect.ValueOf(s), nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Nil, errors.Reason("map[%s] is not supported", t.Key().Kind())
		}
		m, ok := jv.(map[string]any)
		if !ok {
			return Nil, errors.Reason("not a map[string] type: %v", jv)
		}
		res := reflect.MakeMapWithSize(t, len(m))
		for k, v := range m {
			el, err := convert(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "key '%s'", k)
			}
			res.SetMapIndex(reflect.ValueOf(k), el)
		}
		return res, nil

	case reflect.Slice:
		s, ok := jv.([]any)
		if !ok {
			return Nil, errors.Reason("not a list type: %v", jv)
		}
		res := reflect.MakeSlice(t, len(s), len(s))
		for i, v := range s {
			el, err := convert(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "element %d", i)
			}
			res.Index(i).Set(el)
		}
		return res, nil
	}
	return Nil, errors.Reason("unsupported type: %s", t)
}

// parseDefault converts the value of a `default` tag to the type t.
func parseDefault(s string, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	switch t.Kind() {
	case reflect.Ptr:
		v, err := parseDefault(s, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid bool value: %s", s)
		}
		return reflect.ValueOf(b), nil
	case reflect.Int:
		i, err := strconv.Atoi(s)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid int value: %s", s)
		}
		return reflect.ValueOf(i), nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid float64 value: %s", s)
		}
		return reflect.ValueOf(f), nil
	case reflect.String:
		return reflect.ValueOf(s), nil
	}
	return Nil, errors.Reason("default values for %s are not supported", t)
}

// assign sets field f to v, enforcing the `choices` tag.
func assign(f reflect.StructField, fv reflect.Value, v reflect.Value) error {
	if choices, ok := f.Tag.Lookup("choices"); ok {
		s, ok := v.Interface().(string)
		if !ok {
			return errors.Reason("choices tag on a non-string field %s", f.Name)
		}
		if !slices.Contains(strings.Split(choices, ","), s) {
			return errors.Reason(
				"value for %s is not in its choice list: '%s'", f.Name, s)
		}
	}
	fv.Set(v)
	return nil
}

// jsonName returns the JSON key of an exported field, or "" if the field is
// not part of the message.
func jsonName(f reflect.StructField) string {
	first, _ := utf8.DecodeRuneInString(f.Name)
	if !unicode.IsUpper(first) {
		return ""
	}
	name := strings.Split(f.Tag.Get("json"), ",")[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Init populates the struct pointed to by m from js, which must be a
// map[string]any as produced by encoding/json.
//
// Recognized struct tags:
//   `json:"key" required:"true" default:"value" choices:"one,two"`
//
// Only exported fields take part; a missing json tag means the key equals the
// field name and json options like omitempty are ignored. Fields that are
// neither present nor required get their default, or the zero value, which
// still has to satisfy `choices`. Unrecognized keys are an error.
func Init(m Message, js any) error {
	rt := reflect.TypeOf(m)
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return errors.Reason("expected a struct pointer, got %s", rt)
	}
	if js == nil {
		return errors.Reason("JSON object is nil")
	}
	obj, ok := js.(map[string]any)
	if !ok {
		return errors.Reason("JSON value is not an object: %v", js)
	}
	rt = rt.Elem()
	rv := reflect.ValueOf(m).Elem()
	seen := make(map[string]bool)
	var missing []string
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		fv := rv.Field(i)
		if jv, ok := obj[name]; ok {
			seen[name] = true
			v, err := convert(jv, f.Type)
			if err != nil {
				return errors.Annotate(err, "error assigning field %s", f.Name)
			}
			if err := assign(f, fv, v); err != nil {
				return err
			}
			continue
		}
		if f.Tag.Get("required") == "true" {
			missing = append(missing, name)
			continue
		}
		var v reflect.Value
		var err error
		if def, ok := f.Tag.Lookup("default"); ok {
			v, err = parseDefault(def, f.Type)
		} else {
			v, err = convert(nil, f.Type)
		}
		if err != nil {
			return errors.Annotate(err, "error setting default value for %s", f.Name)
		}
		if err := assign(f, fv, v); err != nil {
			return errors.Annotate(err, "error setting default value for %s", f.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Reason("missing required fields: %s", strings.Join(missing, ", "))
	}
	var extra []string
	for k := range obj {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		slices.Sort(extra)
		return errors.Reason("unsupported fields for %s: %s",
			rt.Name(), strings.Join(extra, ", "))
	}
	return nil
}
