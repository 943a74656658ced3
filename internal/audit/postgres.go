package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository persists audit events to Postgres.
//
// Expected schema:
//
//	CREATE TABLE audit_events (
//	    event_id    UUID PRIMARY KEY,
//	    ts          TIMESTAMPTZ NOT NULL,
//	    severity    TEXT NOT NULL,
//	    category    TEXT NOT NULL,
//	    message     TEXT NOT NULL,
//	    user_id     TEXT,
//	    username    TEXT,
//	    roles       TEXT[],
//	    client_ip   TEXT,
//	    request_id  TEXT,
//	    resource    TEXT,
//	    action      TEXT,
//	    outcome     TEXT,
//	    metadata    JSONB,
//	    service     TEXT NOT NULL,
//	    environment TEXT NOT NULL
//	);
//
// No UPDATE or DELETE is ever issued: the table is append-only.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert appends an event.
func (r *PostgresRepository) Insert(ctx context.Context, event *Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			event_id, ts, severity, category, message,
			user_id, username, roles, client_ip, request_id,
			resource, action, outcome, metadata, service, environment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.EventID, event.Timestamp, string(event.Severity), event.Category, event.Message,
		nullable(event.UserID), nullable(event.Username), pq.Array(event.Roles),
		nullable(event.ClientIP), nullable(event.RequestID),
		nullable(event.Resource), nullable(event.Action), nullable(event.Outcome),
		metadata, event.Service, event.Environment,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// QueryByUser retrieves events for a user, newest first.
func (r *PostgresRepository) QueryByUser(ctx context.Context, userID string, limit int) ([]*Event, error) {
	return r.query(ctx, "user_id = $1", userID, limit)
}

// QueryByCategory retrieves events in a category, newest first.
func (r *PostgresRepository) QueryByCategory(ctx context.Context, category string, limit int) ([]*Event, error) {
	return r.query(ctx, "category = $1", category, limit)
}

func (r *PostgresRepository) query(ctx context.Context, where string, arg any, limit int) ([]*Event, error) {
	q := `
		SELECT event_id, ts, severity, category, message,
		       COALESCE(user_id, ''), COALESCE(username, ''), roles,
		       COALESCE(client_ip, ''), COALESCE(request_id, ''),
		       COALESCE(resource, ''), COALESCE(action, ''), COALESCE(outcome, ''),
		       metadata, service, environment
		FROM audit_events
		WHERE ` + where + `
		ORDER BY ts DESC`
	args := []any{arg}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []*Event
	for rows.Next() {
		var event Event
		var severity string
		var roles pq.StringArray
		var metadata []byte

		if err := rows.Scan(
			&event.EventID, &event.Timestamp, &severity, &event.Category, &event.Message,
			&event.UserID, &event.Username, &roles,
			&event.ClientIP, &event.RequestID,
			&event.Resource, &event.Action, &event.Outcome,
			&metadata, &event.Service, &event.Environment,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Severity = Severity(severity)
		event.Roles = roles
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
