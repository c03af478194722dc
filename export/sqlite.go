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
	"database/sql"
	"fmt"
	"strings"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"

	_ "modernc.org/sqlite"
)

// IndexColumn names the index column in SQL when the table's index is
// unnamed.
const IndexColumn = "index"

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// writeSQLite stores the table in the SQLite database at path, as an SQL
// table named after the function, replacing any previous one.
func writeSQLite(path, name string, t *table.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Annotate(err, "failed to open database '%s'", path)
	}
	defer db.Close()

	index := t.IndexName
	if index == "" {
		index = IndexColumn
	}
	cols := make([]string, 0, len(t.Columns)+1)
	for _, c := range append([]string{index}, t.Columns...) {
		cols = append(cols, quote(c))
	}
	tbl := quote(name)
	if _, err := db.Exec("DROP TABLE IF EXISTS " + tbl); err != nil {
		return errors.Annotate(err, "failed to drop table %s", tbl)
	}
	// Value columns have no declared type and keep numbers and strings as is.
	defs := append([]string{cols[0] + " TEXT"}, cols[1:]...)
	create := fmt.Sprintf("CREATE TABLE %s (%s)", tbl, strings.Join(defs, ", "))
	if _, err := db.Exec(create); err != nil {
		return errors.Annotate(err, "failed to create table %s", tbl)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Annotate(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tbl, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return errors.Annotate(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, r := range t.Rows {
		args := make([]any, 0, len(cols))
		args = append(args, r.Index)
		for _, v := range r.Values {
			args = append(args, v.Interface())
		}
		if _, err := stmt.Exec(args...); err != nil {
			return errors.Annotate(err, "failed to insert row '%s'", r.Index)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Annotate(err, "failed to commit")
	}
	return nil
}
