package msglog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relaygo/internal/models"
)

// StorageError reports a failed append or read against the message log.
// A failed append means the message was never logged and must not be
// broadcast.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("message log %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Log is the durable, append-only message log. The underlying store assigns
// each appended message the next position; the server never picks positions
// itself.
type Log struct {
	db *sql.DB
}

func New(db *sql.DB) *Log {
	return &Log{db: db}
}

// Append durably persists one message and returns its assigned position.
func (l *Log) Append(ctx context.Context, content, author string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO messages (content, author, created_at) VALUES (?, ?, ?)`,
		content, author, time.Now().UTC(),
	)
	if err != nil {
		return 0, &StorageError{Op: "append", Err: err}
	}
	position, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "append", Err: err}
	}
	return position, nil
}

// ReadSince returns every message with position > offset, ascending. An
// empty slice is a valid result when the offset is already caught up.
func (l *Log) ReadSince(ctx context.Context, offset int64) ([]models.Message, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT position, content, author, created_at FROM messages WHERE position > ? ORDER BY position ASC`,
		offset,
	)
	if err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Position, &m.Content, &m.Author, &m.CreatedAt); err != nil {
			return nil, &StorageError{Op: "read", Err: err}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	return messages, nil
}
