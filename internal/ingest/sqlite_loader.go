package ingest

import (
	"database/sql"
	"fmt"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// ResultsKey is the field under which LoadSQLiteDocument lists the rows.
const ResultsKey = "results"

// LoadSQLite opens a SQLite database, reads all records from the results table
// in id order, and parses each JSON record.
func LoadSQLite(dbPath string) ([]any, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT record FROM results ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var records []any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		parsed, err := oj.ParseString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse record json: %w", err)
		}
		records = append(records, parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

// LoadSQLiteDocument wraps the database's records in a single root object,
// {"results": [...]}, so a root type can select them with "$.results[*]".
func LoadSQLiteDocument(dbPath string) (any, error) {
	records, err := LoadSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []any{}
	}
	return map[string]any{ResultsKey: records}, nil
}
