/*
Package sqlexamples provides methods to read labelled examples from
and write them to a SQL database, using a table with one row per
example that stores the label and the JSON-encoded descriptor.

The package registers no driver itself; Open uses the pure-Go
sqlite driver, while ReadExamples and WriteExamples work against any
database/sql handle with a compatible table.
*/
package sqlexamples

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/C8PAN/rafl/example"

	_ "modernc.org/sqlite"
)

/*
Open takes a path to a sqlite database file and returns a
database/sql handle for it or an error. The special path ":memory:"
opens a transient in-memory database.
*/
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %v", path, err)
	}
	return db, nil
}

/*
CreateTable takes a context, a database handle and a table name and
creates the examples table with that name if it does not exist yet.
*/
func CreateTable(ctx context.Context, db *sql.DB, table string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			descriptor TEXT NOT NULL
		)`, table))
	if err != nil {
		return fmt.Errorf("creating examples table %s: %v", table, err)
	}
	return nil
}

/*
ReadExamples takes a context, a database handle and a table name and
returns the examples stored on the table in insertion order or an
error. Each row's descriptor column is expected to hold a JSON array
of numbers.
*/
func ReadExamples(ctx context.Context, db *sql.DB, table string) ([]*example.Example[string], error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT label, descriptor FROM %s ORDER BY id", table))
	if err != nil {
		return nil, fmt.Errorf("querying examples from %s: %v", table, err)
	}
	defer rows.Close()
	var examples []*example.Example[string]
	for rows.Next() {
		var label, rawDescriptor string
		if err := rows.Scan(&label, &rawDescriptor); err != nil {
			return nil, fmt.Errorf("scanning example row from %s: %v", table, err)
		}
		var d example.Descriptor
		if err := json.Unmarshal([]byte(rawDescriptor), &d); err != nil {
			return nil, fmt.Errorf("parsing descriptor for example %d on %s: %v", len(examples)+1, table, err)
		}
		examples = append(examples, example.New(d, label))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating over examples from %s: %v", table, err)
	}
	return examples, nil
}

/*
WriteExamples takes a context, a database handle, a table name and a
slice of examples and appends the examples to the table, creating it
first if needed. It returns the number of examples written and an
error if not all of them could be written.
*/
func WriteExamples(ctx context.Context, db *sql.DB, table string, examples []*example.Example[string]) (int, error) {
	if err := CreateTable(ctx, db, table); err != nil {
		return 0, err
	}
	stmt, err := db.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (label, descriptor) VALUES (?, ?)", table))
	if err != nil {
		return 0, fmt.Errorf("preparing example insert on %s: %v", table, err)
	}
	defer stmt.Close()
	for i, e := range examples {
		rawDescriptor, err := json.Marshal(e.Descriptor())
		if err != nil {
			return i, fmt.Errorf("encoding descriptor for example %d: %v", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx, e.Label(), string(rawDescriptor)); err != nil {
			return i, fmt.Errorf("inserting example %d on %s: %v", i+1, table, err)
		}
	}
	return len(examples), nil
}
