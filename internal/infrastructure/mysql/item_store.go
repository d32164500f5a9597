package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"auction-ledger/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLItemStore keeps items as JSON records keyed by id:
//
//	CREATE TABLE items (
//	    id         BIGINT UNSIGNED PRIMARY KEY,
//	    record     JSON NOT NULL,
//	    updated_at DATETIME NOT NULL
//	);
type MySQLItemStore struct {
	db            *sql.DB
	maxRecordSize int
}

func NewMySQLItemStore(db *sql.DB, maxRecordSize int) *MySQLItemStore {
	return &MySQLItemStore{db: db, maxRecordSize: maxRecordSize}
}

func (s *MySQLItemStore) Get(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	query := `SELECT record FROM items WHERE id = ?`

	var record []byte
	err := s.db.QueryRowContext(ctx, query, uint64(id)).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var item domain.Item
	if err := json.Unmarshal(record, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Insert replaces the record and returns the previous value, nil if the
// id was new. The select and the write run in one transaction so the
// previous value matches what was replaced.
func (s *MySQLItemStore) Insert(ctx context.Context, id domain.ItemID, item *domain.Item) (*domain.Item, error) {
	record, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	if s.maxRecordSize > 0 && len(record) > s.maxRecordSize {
		return nil, fmt.Errorf("item record %d bytes exceeds limit of %d", len(record), s.maxRecordSize)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var previousRecord []byte
	err = tx.QueryRowContext(ctx, `SELECT record FROM items WHERE id = ? FOR UPDATE`, uint64(id)).Scan(&previousRecord)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	query := `
        INSERT INTO items (id, record, updated_at) VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE record = VALUES(record), updated_at = VALUES(updated_at)
    `
	if _, err := tx.ExecContext(ctx, query, uint64(id), record, time.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if previousRecord == nil {
		return nil, nil
	}

	var previous domain.Item
	if err := json.Unmarshal(previousRecord, &previous); err != nil {
		return nil, err
	}
	return &previous, nil
}

func (s *MySQLItemStore) Iterate(ctx context.Context, fn func(id domain.ItemID, item *domain.Item) bool) error {
	query := `SELECT id, record FROM items ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uint64
		var record []byte

		if err := rows.Scan(&id, &record); err != nil {
			return err
		}

		var item domain.Item
		if err := json.Unmarshal(record, &item); err != nil {
			return err
		}

		if !fn(domain.ItemID(id), &item) {
			break
		}
	}

	return rows.Err()
}

func (s *MySQLItemStore) Len(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}
