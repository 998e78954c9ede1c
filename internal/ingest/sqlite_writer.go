package ingest

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/agentic-research/flattree/internal/graph"
	_ "modernc.org/sqlite"
)

// SQLiteWriter exports snapshots to a SQLite database so other tools can
// query the flattened table with plain SQL.
type SQLiteWriter struct {
	db        *sql.DB
	tx        *sql.Tx
	stmtNode  *sql.Stmt
	stmtField *sql.Stmt
	batchSize int
	count     int
}

// NewSQLiteWriter creates a new writer and initializes the schema.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		key TEXT PRIMARY KEY,
		parent_key TEXT,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		depth INTEGER NOT NULL,
		ord INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS node_fields (
		key TEXT,
		field TEXT,
		value TEXT,
		PRIMARY KEY (key, field)
	) WITHOUT ROWID;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	// A database holds exactly one snapshot.
	if _, err := db.Exec(`DELETE FROM node_fields; DELETE FROM nodes;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clear previous export: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		batchSize: 10000,
	}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmtNode, err = w.tx.Prepare(`
		INSERT OR REPLACE INTO nodes (key, parent_key, title, type, depth, ord)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	w.stmtField, err = w.tx.Prepare(`INSERT OR REPLACE INTO node_fields (key, field, value) VALUES (?, ?, ?)`)
	return err
}

func (w *SQLiteWriter) commitTx() error {
	if w.stmtNode != nil {
		_ = w.stmtNode.Close()
	}
	if w.stmtField != nil {
		_ = w.stmtField.Close()
	}
	return w.tx.Commit()
}

// WriteSnapshot writes every node of snap in flattening order. ord is the
// node's position among its siblings.
func (w *SQLiteWriter) WriteSnapshot(snap *graph.Snapshot) error {
	ords := make(map[string]int, snap.Len())
	for i, k := range snap.Roots() {
		ords[k] = i
	}
	var err error
	snap.Walk(func(n *graph.Node) bool {
		// Parents precede their children, so every ord is known by now.
		for i, k := range n.ChildKeys {
			ords[k] = i
		}
		err = w.addNode(n, ords[n.Key])
		return err == nil
	})
	return err
}

func (w *SQLiteWriter) addNode(n *graph.Node, ord int) error {
	if _, err := w.stmtNode.Exec(n.Key, n.ParentKey, n.Title, n.Type, n.Depth, ord); err != nil {
		return fmt.Errorf("insert node %q: %w", n.Key, err)
	}

	fields := make([]string, 0, len(n.Fields))
	for f := range n.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if _, err := w.stmtField.Exec(n.Key, f, n.Fields[f]); err != nil {
			return fmt.Errorf("insert field %s of %q: %w", f, n.Key, err)
		}
	}

	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		w.count = 0
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}

	// Create indices after bulk load for speed
	if _, err := w.db.Exec(`CREATE INDEX IF NOT EXISTS idx_parent_ord ON nodes(parent_key, ord)`); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("create index: %w", err)
	}
	return w.db.Close()
}

// ExportSQLite writes snap to the database at dbPath, replacing any
// previously exported snapshot.
func ExportSQLite(snap *graph.Snapshot, dbPath string) error {
	w, err := NewSQLiteWriter(dbPath)
	if err != nil {
		return err
	}
	if err := w.WriteSnapshot(snap); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
