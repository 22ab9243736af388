package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO reminders (
			user_id, text, scheduled_ts, delivery_kind, channel_id, status,
			auto_action, auto_action_payload, created_by, created_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		create.UserID, create.Text, create.ScheduledTs, string(create.DeliveryKind),
		create.ChannelID, string(create.Status), string(create.AutoAction),
		create.AutoActionPayload, create.CreatedBy, create.CreatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reminder")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read insert id")
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}
	if find.DueBefore != nil {
		where, args = append(where, "scheduled_ts <= ?"), append(args, *find.DueBefore)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, text, scheduled_ts, delivery_kind, channel_id, status,
			auto_action, auto_action_payload, delivered_ts, cancelled_ts, fail_reason,
			created_by, created_ts
		FROM reminders
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY scheduled_ts ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminders")
	}
	defer rows.Close()

	list := make([]*store.Reminder, 0)
	for rows.Next() {
		r := &store.Reminder{}
		var kind, status, action string
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Text, &r.ScheduledTs, &kind, &r.ChannelID, &status,
			&action, &r.AutoActionPayload, &r.DeliveredTs, &r.CancelledTs, &r.FailReason,
			&r.CreatedBy, &r.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		r.DeliveryKind = store.DeliveryKind(kind)
		r.Status = store.ReminderStatus(status)
		r.AutoAction = store.AutoActionKind(action)
		list = append(list, r)
	}
	return list, rows.Err()
}

func (d *DB) TransitionReminder(ctx context.Context, id int32, to store.ReminderStatus, ts int64, failReason string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var stmt string
	switch to {
	case store.ReminderDelivered, store.ReminderFailed:
		stmt = `UPDATE reminders SET status = ?, delivered_ts = ?, fail_reason = ?
			WHERE id = ? AND status = 'pending'`
	case store.ReminderCancelled:
		stmt = `UPDATE reminders SET status = ?, cancelled_ts = ?, fail_reason = ?
			WHERE id = ? AND status = 'pending'`
	default:
		return false, errors.Errorf("invalid reminder transition to %q", to)
	}

	result, err := d.db.ExecContext(ctx, stmt, string(to), ts, failReason, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to transition reminder")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	return n > 0, nil
}
