package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore keeps slots as rows of a single table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dbPath and applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openSlotDB(dbPath)
	if err != nil {
		return nil, ioErr("open", "", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Write upserts the slot in a single attempt. It does not retry: callers on
// crash-adjacent paths must not wait on backoff.
func (s *SQLiteStore) Write(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO slots (name, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, name, data)
	if err != nil {
		return ioErr("write", name, err)
	}
	return nil
}

func (s *SQLiteStore) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var payload []byte
	err := retryBusy(func() error {
		return s.db.QueryRowContext(context.Background(), `SELECT payload FROM slots WHERE name = ?`, name).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, ioErr("read", name, err)
	}
	return payload, nil
}

func (s *SQLiteStore) Rename(oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}

	err := s.inTx(func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM slots WHERE name = ?`, newName).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check rename target: %w", err)
		}
		if exists > 0 {
			return &ConflictError{OldName: oldName, NewName: newName}
		}

		res, err := tx.ExecContext(context.Background(), `
			UPDATE slots SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?
		`, newName, oldName)
		if err != nil {
			return fmt.Errorf("rename slot: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("count renamed slots: %w", err)
		}
		if n == 0 {
			return notFound(oldName)
		}
		return nil
	})
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return ioErr("rename", oldName, err)
}

func (s *SQLiteStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	var n int64
	err := retryBusy(func() error {
		res, err := s.db.ExecContext(context.Background(), `DELETE FROM slots WHERE name = ?`, name)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return ioErr("delete", name, err)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

func (s *SQLiteStore) ListNames() ([]string, error) {
	var names []string
	err := retryBusy(func() error {
		rows, err := s.db.QueryContext(context.Background(), `SELECT name FROM slots ORDER BY name`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		names = make([]string, 0)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, ioErr("list", "", err)
	}
	return names, nil
}

// inTx runs fn in a transaction, retrying the whole attempt while the
// database is busy.
func (s *SQLiteStore) inTx(fn func(tx *sql.Tx) error) error {
	return retryBusy(func() error {
		tx, err := s.db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// DB exposes the underlying handle for diagnostics.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
