package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"landlock/pkg/domain"
)

// PostgresStore persists audit events through database/sql (lib/pq driver).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the audit table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         TEXT PRIMARY KEY,
			action     TEXT NOT NULL,
			actor      TEXT NOT NULL,
			subject    TEXT NOT NULL DEFAULT '',
			details    JSONB,
			request_id TEXT NOT NULL DEFAULT '',
			client_ip  TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			ts         TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_events_actor_idx ON audit_events (actor, ts);
	`)
	if err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, action, actor, subject, details, request_id, client_ip, user_agent, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, string(event.Action), string(event.Actor), event.Subject,
		details, event.RequestID, event.ClientIP, event.UserAgent, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor domain.PublicKey) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor, subject, details, request_id, client_ip, user_agent, ts
		FROM audit_events WHERE actor = $1 ORDER BY ts`,
		string(actor))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var action, actorCol string
		var details []byte
		if err := rows.Scan(&e.ID, &action, &actorCol, &e.Subject, &details,
			&e.RequestID, &e.ClientIP, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.Actor = domain.PublicKey(actorCol)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
