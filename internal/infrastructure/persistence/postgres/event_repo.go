package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	alertDomain "property-alerts/internal/domain/alert"
)

// EventRepo 追加稽核事件，append-only。
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo 建立 EventRepo。
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append 寫入一筆事件與其內容快照。
func (r *EventRepo) Append(ctx context.Context, ev alertDomain.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	const q = `
INSERT INTO alert_events (id, alert_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err = r.db.ExecContext(ctx, q, ev.ID, ev.AlertID, string(ev.Type), payload, ev.CreatedAt)
	return err
}
