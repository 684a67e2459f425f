package statestore

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/psumond/internal/errors"
	"codeberg.org/mutker/psumond/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

type repository struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating as needed) the sqlite-backed state store.
func Open(dbPath string) (Store, error) {
	errFactory := errors.New()

	if dbPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  dbPath,
			Error: err.Error(),
		})
	}

	// WAL keeps the sole-writer daemon from blocking observer reads
	dsn := dbPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	switch version {
	case 0:
		if err := InitSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Found    int
			Expected int
		}{
			Found:    version,
			Expected: SchemaVersion,
		})
	}

	logger.Debug().
		Str("path", dbPath).
		Int("schema_version", SchemaVersion).
		Msg("State store opened")

	return &repository{db: db}, nil
}

func (r *repository) SetField(key, field, value string) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(upsertFieldSQL, key, field, value); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) SetFields(key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(upsertFieldSQL)
	if err != nil {
		if err := tx.Rollback(); err != nil {
			logger.Debug().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for field, value := range fields {
		if _, err := stmt.Exec(key, field, value); err != nil {
			if err := tx.Rollback(); err != nil {
				logger.Debug().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	return nil
}

func (r *repository) GetField(key, field string) (string, bool, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	var value string
	err := r.db.QueryRow(selectFieldSQL, key, field).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errFactory.Wrap(ErrStorageAccess, err)
	}

	return value, true, nil
}

func (r *repository) Fields(key string) (map[string]string, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(selectFieldsSQL, key)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		fields[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return fields, nil
}

func (r *repository) DeleteKey(key string) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(deleteKeySQL, key); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	logger.Debug().Msg("State store closed")

	return nil
}
