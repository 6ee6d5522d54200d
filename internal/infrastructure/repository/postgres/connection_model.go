package postgres

import (
	"database/sql"
	"time"
)

type connectionTableModel struct {
	ID         int64          `db:"id"`
	SessionKey string         `db:"session_key"`
	Connected  bool           `db:"connected"`
	Username   sql.NullString `db:"username"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	DeletedAt  *time.Time     `db:"deleted_at"`
}

type connectionInsertModel struct {
	SessionKey string  `db:"session_key"`
	Connected  bool    `db:"connected"`
	Username   *string `db:"username"`
}
