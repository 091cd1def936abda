package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zhubert/parley/internal/backend"
)

// SQLEngine keeps every document in one table keyed by (collection, id).
type SQLEngine struct {
	db     *sql.DB
	driver string
}

var _ Engine = (*SQLEngine)(nil)

var schemas = map[string]string{
	"sqlite3": `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(512) NOT NULL,
		id VARCHAR(255) NOT NULL,
		seq BIGINT NOT NULL,
		data LONGTEXT NOT NULL,
		PRIMARY KEY (collection, id)
	) DEFAULT CHARSET=utf8mb4`,
}

// OpenSQL connects with database/sql and creates the documents table.
func OpenSQL(driver, dsn string) (*SQLEngine, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if driver == "sqlite3" && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if driver == "sqlite3" {
		// one writer; sqlite serializes anyway and this avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLEngine{db: db, driver: driver}, nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (e *SQLEngine) rebind(query string) string {
	if e.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (e *SQLEngine) Get(ctx context.Context, collection, id string) (backend.Document, error) {
	var (
		seq  int64
		data string
	)
	err := e.db.QueryRowContext(ctx,
		e.rebind(`SELECT seq, data FROM documents WHERE collection = ? AND id = ?`),
		collection, id).Scan(&seq, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Document{}, backend.ErrNotFound
	}
	if err != nil {
		return backend.Document{}, err
	}
	return decodeRow(collection, id, seq, data)
}

func (e *SQLEngine) Put(ctx context.Context, collection, id string, fields backend.Fields, mode PutMode) (bool, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var (
		seq     int64
		data    string
		current backend.Fields
	)
	err = tx.QueryRowContext(ctx,
		e.rebind(`SELECT seq, data FROM documents WHERE collection = ? AND id = ?`),
		collection, id).Scan(&seq, &data)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if exists {
		if err := json.Unmarshal([]byte(data), &current); err != nil {
			return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}

	switch mode {
	case PutCreate:
		if exists {
			return false, nil
		}
	case PutMerge:
		if !exists {
			return false, backend.ErrNotFound
		}
		fields = backend.Merge(current, fields)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return false, err
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			e.rebind(`UPDATE documents SET data = ? WHERE collection = ? AND id = ?`),
			string(encoded), collection, id)
	} else {
		var next int64
		if err := tx.QueryRowContext(ctx,
			e.rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE collection = ?`),
			collection).Scan(&next); err != nil {
			return false, err
		}
		_, err = tx.ExecContext(ctx,
			e.rebind(`INSERT INTO documents (collection, id, seq, data) VALUES (?, ?, ?, ?)`),
			collection, id, next, string(encoded))
	}
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (e *SQLEngine) List(ctx context.Context, collection string) ([]backend.Document, error) {
	rows, err := e.db.QueryContext(ctx,
		e.rebind(`SELECT id, seq, data FROM documents WHERE collection = ? ORDER BY seq`),
		collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		var (
			id   string
			seq  int64
			data string
		)
		if err := rows.Scan(&id, &seq, &data); err != nil {
			return nil, err
		}
		doc, err := decodeRow(collection, id, seq, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (e *SQLEngine) Close() error {
	return e.db.Close()
}

func decodeRow(collection, id string, seq int64, data string) (backend.Document, error) {
	var fields backend.Fields
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return backend.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return toDocument(collection, id, record{Seq: seq, Fields: fields}), nil
}
