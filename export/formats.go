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
	"encoding/gob"
	"io"
	"os"
	"sync"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// WriteFunc writes table t produced by the named function into the file at
// path, overwriting it.
type WriteFunc func(path, name string, t *table.Table) error

var (
	formatsMu sync.RWMutex
	formats   = make(map[string]WriteFunc)
)

// Register a file format. It panics when the format is already registered.
func Register(format string, f WriteFunc) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if f == nil {
		panic("export: nil WriteFunc for " + format)
	}
	if _, ok := formats[format]; ok {
		panic("export: format registered twice: " + format)
	}
	formats[format] = f
}

// Get the writer of the format.
func Get(format string) (WriteFunc, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[format]
	return f, ok
}

// Available checks whether the format is registered.
func Available(format string) bool {
	_, ok := Get(format)
	return ok
}

// Formats lists the registered formats.
func Formats() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	res := maps.Keys(formats)
	slices.Sort(res)
	return res
}

// Stream adapts a writer to an io.Writer into a WriteFunc.
func Stream(f func(w io.Writer, name string, t *table.Table) error) WriteFunc {
	return func(path, name string, t *table.Table) (err error) {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return errors.Annotate(err, "failed to open file for writing: '%s'", path)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = errors.Annotate(cerr, "failed to close '%s'", path)
			}
		}()
		return f(file, name, t)
	}
}

// Document is the serialized form of a table in the yaml and msgpack formats.
type Document struct {
	Name      string        `yaml:"name" msgpack:"name"`
	IndexName string        `yaml:"index_name" msgpack:"index_name"`
	Columns   []string      `yaml:"columns" msgpack:"columns"`
	Rows      []DocumentRow `yaml:"rows" msgpack:"rows"`
}

// DocumentRow is a row of a Document. Values are nil, float64 or string.
type DocumentRow struct {
	Index  string `yaml:"index" msgpack:"index"`
	Values []any  `yaml:"values" msgpack:"values"`
}

// NewDocument converts the table of the named function to a Document.
func NewDocument(name string, t *table.Table) *Document {
	d := &Document{
		Name:      name,
		IndexName: t.IndexName,
		Columns:   t.Columns,
		Rows:      make([]DocumentRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		values := make([]any, len(r.Values))
		for j, v := range r.Values {
			values[j] = v.Interface()
		}
		d.Rows[i] = DocumentRow{Index: r.Index, Values: values}
	}
	return d
}

func writeCSV(w io.Writer, _ string, t *table.Table) error {
	return t.WriteCSV(w, table.Params{})
}

func writeJSON(w io.Writer, _ string, t *table.Table) error {
	return t.WriteJSON(w)
}

func writeHTML(w io.Writer, _ string, t *table.Table) error {
	return t.WriteHTML(w)
}

func writeText(w io.Writer, _ string, t *table.Table) error {
	return t.WriteText(w, table.Params{})
}

// writeGob writes the table itself, to be read back with encoding/gob.
func writeGob(w io.Writer, _ string, t *table.Table) error {
	if err := gob.NewEncoder(w).Encode(t); err != nil {
		return errors.Annotate(err, "failed to encode gob")
	}
	return nil
}

func writeYAML(w io.Writer, name string, t *table.Table) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(NewDocument(name, t)); err != nil {
		return errors.Annotate(err, "failed to encode YAML")
	}
	return enc.Close()
}

func writeMsgpack(w io.Writer, name string, t *table.Table) error {
	if err := msgpack.NewEncoder(w).Encode(NewDocument(name, t)); err != nil {
		return errors.Annotate(err, "failed to encode msgpack")
	}
	return nil
}

func init() {
	Register("csv", Stream(writeCSV))
	Register("json", Stream(writeJSON))
	Register("pkl", Stream(writeGob))
	Register("html", Stream(writeHTML))
	Register("txt", Stream(writeText))
	Register("yaml", Stream(writeYAML))
	Register("msgpack", Stream(writeMsgpack))
	Register("sqlite", writeSQLite)
}
