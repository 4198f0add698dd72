package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Schema is the table layout SQLite sources use. parent_id is NULL for
// top-level nodes; position orders siblings.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id        TEXT PRIMARY KEY,
	parent_id TEXT,
	name      TEXT NOT NULL,
	is_folder INTEGER NOT NULL DEFAULT 0,
	position  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS nodes_parent ON nodes(parent_id, position);
`

// ErrNotFound is returned when an edit targets a missing node.
var ErrNotFound = errors.New("node not found")

// SQLiteReader provides access to a SQLite tree source. Opened read-only
// it only loads; opened writable it also persists edits.
type SQLiteReader struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// NewSQLiteReader opens a SQLite source.
func NewSQLiteReader(source Source, readOnly bool) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	return openSQLite(source.Path, readOnly)
}

func openSQLite(path string, readOnly bool) (*SQLiteReader, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if readOnly {
		for _, pragma := range []string{
			"PRAGMA cache_size = -16000", // 16MB cache
			"PRAGMA temp_store = MEMORY",
		} {
			if _, err := db.Exec(pragma); err != nil {
				debug.Log("datasource: %s: %v", pragma, err)
			}
		}
	}
	return &SQLiteReader{db: db, path: path, readOnly: readOnly}, nil
}

// CreateSQLite writes entries into a new nodes table at path.
func CreateSQLite(ctx context.Context, path string, entries []model.Entry) error {
	r, err := openSQLite(path, false)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (id, parent_id, name, is_folder, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	type frame struct {
		list   []model.Entry
		parent sql.NullString
	}
	stack := []frame{{list: entries}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i, e := range f.list {
			if _, err := stmt.ExecContext(ctx, e.ID, f.parent, e.Name, e.IsInternal(), i); err != nil {
				return fmt.Errorf("inserting %q: %w", e.ID, err)
			}
			if len(e.Children) > 0 {
				stack = append(stack, frame{e.Children, sql.NullString{String: e.ID, Valid: true}})
			}
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

type row struct {
	id     string
	parent sql.NullString
	name   string
	folder bool
}

// LoadEntries reads the nodes table into a tree. Rows whose parent is
// missing are shown at the top level; rows caught in a parent cycle are
// dropped.
func (r *SQLiteReader) LoadEntries(ctx context.Context) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, parent_id, name, is_folder
		FROM nodes
		ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var all []row
	known := make(map[string]bool)
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.parent, &rw.name, &rw.folder); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		all = append(all, rw)
		known[rw.id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}

	children := make(map[string][]row)
	var top []row
	for _, rw := range all {
		switch {
		case !rw.parent.Valid || rw.parent.String == "":
			top = append(top, rw)
		case !known[rw.parent.String]:
			debug.Warn("datasource: %s: node %q has unknown parent %q", r.path, rw.id, rw.parent.String)
			top = append(top, rw)
		default:
			children[rw.parent.String] = append(children[rw.parent.String], rw)
		}
	}

	entries := make([]model.Entry, len(top))
	type frame struct {
		entry *model.Entry
	}
	var stack []frame
	placed := 0
	for i, rw := range top {
		entries[i] = model.Entry{ID: rw.id, Name: rw.name, Folder: rw.folder}
		stack = append(stack, frame{&entries[i]})
		placed++
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := children[f.entry.ID]
		if len(kids) == 0 {
			continue
		}
		f.entry.Children = make([]model.Entry, len(kids))
		for i, rw := range kids {
			f.entry.Children[i] = model.Entry{ID: rw.id, Name: rw.name, Folder: rw.folder}
			stack = append(stack, frame{&f.entry.Children[i]})
			placed++
		}
	}
	if placed < len(all) {
		debug.Warn("datasource: %s: %d nodes unreachable from the top level", r.path, len(all)-placed)
	}
	return entries, nil
}

func (r *SQLiteReader) writable() error {
	if r.readOnly {
		return fmt.Errorf("%s: opened read-only", r.path)
	}
	return nil
}

// Rename sets the display name of a node.
func (r *SQLiteReader) Rename(ctx context.Context, key, name string) error {
	if err := r.writable(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("name must not be empty")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE nodes SET name = ? WHERE id = ?`, name, key)
	if err != nil {
		return fmt.Errorf("renaming %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("renaming %q: %w", key, ErrNotFound)
	}
	return nil
}

// Delete removes nodes and their descendants.
func (r *SQLiteReader) Delete(ctx context.Context, keys []string) error {
	if err := r.writable(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, key := range keys {
		_, err := tx.ExecContext(ctx, `
			WITH RECURSIVE sub(id) AS (
				SELECT id FROM nodes WHERE id = ?
				UNION
				SELECT n.id FROM nodes n JOIN sub ON n.parent_id = sub.id
			)
			DELETE FROM nodes WHERE id IN (SELECT id FROM sub)`, key)
		if err != nil {
			return fmt.Errorf("deleting %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// Create inserts a new node at the requested position and returns it.
func (r *SQLiteReader) Create(ctx context.Context, req tree.CreateRequest) (model.Entry, error) {
	if err := r.writable(); err != nil {
		return model.Entry{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Entry{}, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(rowid), 0) + 1 FROM nodes`).Scan(&next); err != nil {
		return model.Entry{}, fmt.Errorf("allocating id: %w", err)
	}
	e := model.Entry{ID: fmt.Sprintf("node-%d", next), Name: "untitled", Folder: req.Internal}
	if req.Internal {
		e.Name = "new folder"
	}

	parent := sql.NullString{String: req.ParentKey, Valid: req.ParentKey != ""}
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET position = position + 1 WHERE parent_id IS ? AND position >= ?`,
		parent, req.Index); err != nil {
		return model.Entry{}, fmt.Errorf("shifting siblings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (id, parent_id, name, is_folder, position) VALUES (?, ?, ?, ?, ?)`,
		e.ID, parent, e.Name, e.Folder, req.Index); err != nil {
		return model.Entry{}, fmt.Errorf("inserting node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}
