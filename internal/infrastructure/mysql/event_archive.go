package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-ledger/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLEventArchive keeps one row per published item event:
//
//	CREATE TABLE item_events (
//	    id         VARCHAR(36) PRIMARY KEY,
//	    item_id    BIGINT UNSIGNED NOT NULL,
//	    event_type VARCHAR(32) NOT NULL,
//	    actor      VARCHAR(128) NOT NULL,
//	    amount     BIGINT UNSIGNED NOT NULL,
//	    created_at DATETIME NOT NULL,
//	    INDEX idx_item_events_item (item_id, created_at)
//	);
type MySQLEventArchive struct {
	db *sql.DB
}

func NewMySQLEventArchive(db *sql.DB) *MySQLEventArchive {
	return &MySQLEventArchive{db: db}
}

func (r *MySQLEventArchive) SaveItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	query := `
        INSERT INTO item_events (id, item_id, event_type, actor, amount, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ID, uint64(event.ItemID), string(event.Type),
		string(event.Actor), event.Amount, event.Timestamp)
	return err
}

func (r *MySQLEventArchive) GetItemHistory(ctx context.Context, itemID domain.ItemID) ([]*domain.ItemEvent, error) {
	query := `
        SELECT id, item_id, event_type, actor, amount, created_at
        FROM item_events WHERE item_id = ?
        ORDER BY created_at ASC
    `

	rows, err := r.db.QueryContext(ctx, query, uint64(itemID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.ItemEvent
	for rows.Next() {
		var event domain.ItemEvent
		var id uint64
		var eventType, actor string
		var createdAt time.Time

		if err := rows.Scan(&event.ID, &id, &eventType, &actor, &event.Amount, &createdAt); err != nil {
			return nil, err
		}

		event.ItemID = domain.ItemID(id)
		event.Type = domain.ItemEventType(eventType)
		event.Actor = domain.Principal(actor)
		event.Timestamp = createdAt
		events = append(events, &event)
	}

	return events, rows.Err()
}
