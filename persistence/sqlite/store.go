// Package sqlite persists records, flows, jobs and execution records in a
// single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/util"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db            *sql.DB
	flowEncDec    util.EncoderDecoder[[]model.Block]
	connEncDec    util.EncoderDecoder[[]model.Connection]
	triggerEncDec util.EncoderDecoder[model.TriggerData]
	inputEncDec   util.EncoderDecoder[model.ExecutionInput]
	outputEncDec  util.EncoderDecoder[model.ExecutionOutput]
	errorEncDec   util.EncoderDecoder[model.ExecutionError]
}

// blockEncDec stores block configs exactly as they were given.
type blockEncDec struct {
	util.JsonEncDec[[]model.Block]
}

func (blockEncDec) Encode(blocks []model.Block) ([]byte, error) {
	return model.EncodeBlocks(blocks)
}

// Open creates or opens the database at path, applying pragmas and the schema.
// SQLite allows one writer, so the pool is limited to one connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{
		db:            db,
		flowEncDec:    &blockEncDec{},
		connEncDec:    util.NewJsonEncoderDecoder[[]model.Connection](),
		triggerEncDec: util.NewJsonEncoderDecoder[model.TriggerData](),
		inputEncDec:   util.NewJsonEncoderDecoder[model.ExecutionInput](),
		outputEncDec:  util.NewJsonEncoderDecoder[model.ExecutionOutput](),
		errorEncDec:   util.NewJsonEncoderDecoder[model.ExecutionError](),
	}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

func storageError(op string, err error) error {
	return persistence.StorageLayerError{Message: fmt.Sprintf("%s: %v", op, err)}
}
