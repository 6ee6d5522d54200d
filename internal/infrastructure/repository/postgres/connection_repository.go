package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/openquest/onboarding-api/internal/domain/connection"
	qb "github.com/openquest/onboarding-api/internal/platform/querybuilder"
)

// ConnectionRepository persists the durable provider link per session. The
// access token is never written here; only the connected flag and account
// name survive restarts.
type ConnectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) GetBySessionKey(ctx context.Context, sessionKey string) (connection.Link, bool, error) {
	query, args, err := qb.Select("*").
		From("github_connections").
		Where(
			qb.Eq("session_key", sessionKey),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return connection.Link{}, false, fmt.Errorf("build get github connection query: %w", err)
	}

	var row connectionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return connection.Link{}, false, nil
		}
		return connection.Link{}, false, fmt.Errorf("get github connection: %w", err)
	}

	return connectionFromRow(row), true, nil
}

func (r *ConnectionRepository) Upsert(ctx context.Context, sessionKey string, link connection.Link) error {
	username, _ := link.Username()
	insertModel := connectionInsertModel{
		SessionKey: strings.TrimSpace(sessionKey),
		Connected:  link.Connected(),
		Username:   optionalString(username),
	}

	query, args, err := qb.InsertModel("github_connections", insertModel, `ON CONFLICT (session_key) WHERE deleted_at IS NULL
DO UPDATE SET
    connected = EXCLUDED.connected,
    username = EXCLUDED.username,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert github connection query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert github connection: %w", err)
	}

	return nil
}

func connectionFromRow(row connectionTableModel) connection.Link {
	if !row.Connected {
		return connection.Disconnected()
	}
	return connection.LinkedAs(row.Username.String)
}
